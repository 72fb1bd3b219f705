package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidewatch/intelsentry/internal/models"
	_ "modernc.org/sqlite"
)

// SQLite wraps a SQLite database providing durable state stores and an alert
// history log.
type SQLite struct {
	db        *sql.DB
	maxAlerts int
}

// NewSQLite opens or creates the database at dbPath.
// An empty dbPath defaults to $TMPDIR/intelsentry/data.db.
func NewSQLite(dbPath string, maxAlerts int) (*SQLite, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "intelsentry", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &SQLite{db: db, maxAlerts: maxAlerts}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS eval_state (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			last_band       TEXT NOT NULL DEFAULT '',
			last_net_flow   REAL,
			candidated_news TEXT NOT NULL DEFAULT '{}',
			last_fired      TEXT NOT NULL DEFAULT '{}',
			updated_at      INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dispatch_state (
			id                INTEGER PRIMARY KEY CHECK (id = 1),
			last_sent_global  INTEGER NOT NULL DEFAULT 0,
			last_sent_by_type TEXT NOT NULL DEFAULT '{}',
			delivered_news    TEXT NOT NULL DEFAULT '{}',
			updated_at        INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			severity   TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			score      REAL NOT NULL,
			ref_id     TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Eval returns the durable EvalStore view of this database.
func (s *SQLite) Eval() EvalStore {
	return &sqliteEvalStore{s: s}
}

// Dispatch returns the durable DispatchStore view of this database.
func (s *SQLite) Dispatch() DispatchStore {
	return &sqliteDispatchStore{s: s}
}

type sqliteEvalStore struct {
	s *SQLite
}

func (e *sqliteEvalStore) Load() (models.EvalState, error) {
	row := e.s.db.QueryRow(`SELECT last_band, last_net_flow, candidated_news, last_fired FROM eval_state WHERE id = 1`)

	var (
		band       string
		netFlow    sql.NullFloat64
		candidated string
		fired      string
	)
	err := row.Scan(&band, &netFlow, &candidated, &fired)
	if err == sql.ErrNoRows {
		return models.NewEvalState(), nil
	}
	if err != nil {
		return models.EvalState{}, fmt.Errorf("failed to load evaluation state: %w", err)
	}

	state := models.NewEvalState()
	state.LastBand = models.Band(band)
	if netFlow.Valid {
		flow := netFlow.Float64
		state.LastNetFlow = &flow
	}
	if err := json.Unmarshal([]byte(candidated), &state.CandidatedNews); err != nil {
		return models.EvalState{}, fmt.Errorf("failed to unmarshal candidated news: %w", err)
	}
	if err := json.Unmarshal([]byte(fired), &state.LastFired); err != nil {
		return models.EvalState{}, fmt.Errorf("failed to unmarshal last fired: %w", err)
	}
	return state, nil
}

func (e *sqliteEvalStore) Save(state models.EvalState) error {
	candidated, err := json.Marshal(state.CandidatedNews)
	if err != nil {
		return fmt.Errorf("failed to marshal candidated news: %w", err)
	}
	fired, err := json.Marshal(state.LastFired)
	if err != nil {
		return fmt.Errorf("failed to marshal last fired: %w", err)
	}

	var netFlow sql.NullFloat64
	if state.LastNetFlow != nil {
		netFlow = sql.NullFloat64{Float64: *state.LastNetFlow, Valid: true}
	}

	_, err = e.s.db.Exec(`
		INSERT OR REPLACE INTO eval_state
			(id, last_band, last_net_flow, candidated_news, last_fired, updated_at)
		VALUES (1,?,?,?,?,?)`,
		string(state.LastBand), netFlow, string(candidated), string(fired), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation state: %w", err)
	}
	return nil
}

type sqliteDispatchStore struct {
	s *SQLite
}

func (d *sqliteDispatchStore) Load() (models.DispatchState, error) {
	row := d.s.db.QueryRow(`SELECT last_sent_global, last_sent_by_type, delivered_news FROM dispatch_state WHERE id = 1`)

	var (
		globalNano int64
		byType     string
		delivered  string
	)
	err := row.Scan(&globalNano, &byType, &delivered)
	if err == sql.ErrNoRows {
		return models.NewDispatchState(), nil
	}
	if err != nil {
		return models.DispatchState{}, fmt.Errorf("failed to load dispatch state: %w", err)
	}

	state := models.NewDispatchState()
	if globalNano != 0 {
		state.LastSentGlobal = time.Unix(0, globalNano)
	}
	if err := json.Unmarshal([]byte(byType), &state.LastSentByType); err != nil {
		return models.DispatchState{}, fmt.Errorf("failed to unmarshal last sent by type: %w", err)
	}
	if err := json.Unmarshal([]byte(delivered), &state.DeliveredNews); err != nil {
		return models.DispatchState{}, fmt.Errorf("failed to unmarshal delivered news: %w", err)
	}
	return state, nil
}

func (d *sqliteDispatchStore) Save(state models.DispatchState) error {
	byType, err := json.Marshal(state.LastSentByType)
	if err != nil {
		return fmt.Errorf("failed to marshal last sent by type: %w", err)
	}
	delivered, err := json.Marshal(state.DeliveredNews)
	if err != nil {
		return fmt.Errorf("failed to marshal delivered news: %w", err)
	}

	var globalNano int64
	if !state.LastSentGlobal.IsZero() {
		globalNano = state.LastSentGlobal.UnixNano()
	}

	_, err = d.s.db.Exec(`
		INSERT OR REPLACE INTO dispatch_state
			(id, last_sent_global, last_sent_by_type, delivered_news, updated_at)
		VALUES (1,?,?,?,?)`,
		globalNano, string(byType), string(delivered), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save dispatch state: %w", err)
	}
	return nil
}

// LogAlert appends a candidate alert to the history log and prunes the log to
// the newest maxAlerts rows.
func (s *SQLite) LogAlert(alert models.CandidateAlert) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	id := fmt.Sprintf("%s:%d", alert.Type, alert.CreatedAt.UnixNano())
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO alerts
			(id, type, severity, title, message, score, ref_id, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		id, string(alert.Type), string(alert.Severity), alert.Title, alert.Message,
		alert.Score, alert.RefID, alert.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	if s.maxAlerts > 0 {
		if _, err = tx.Exec(`
			DELETE FROM alerts WHERE id NOT IN (
				SELECT id FROM alerts ORDER BY created_at DESC LIMIT ?
			)`, s.maxAlerts); err != nil {
			return fmt.Errorf("failed to prune alert history: %w", err)
		}
	}

	return tx.Commit()
}

// RecentAlerts returns up to k alerts from the history log, newest first.
func (s *SQLite) RecentAlerts(k int) ([]models.CandidateAlert, error) {
	rows, err := s.db.Query(`
		SELECT type, severity, title, message, score, ref_id, created_at
		FROM alerts ORDER BY created_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.CandidateAlert
	for rows.Next() {
		var (
			a           models.CandidateAlert
			typ, sev    string
			refID       sql.NullString
			createdNano int64
		)
		if err := rows.Scan(&typ, &sev, &a.Title, &a.Message, &a.Score, &refID, &createdNano); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Type = models.AlertType(typ)
		a.Severity = models.Severity(sev)
		a.RefID = refID.String
		a.CreatedAt = time.Unix(0, createdNano)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

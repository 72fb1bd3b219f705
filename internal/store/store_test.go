package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tidewatch/intelsentry/internal/models"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleEvalState() models.EvalState {
	flow := 12500.0
	state := models.NewEvalState()
	state.LastBand = models.BandAbove
	state.LastNetFlow = &flow
	state.CandidatedNews["n1"] = true
	state.CandidatedNews["n2"] = true
	state.LastFired[models.AlertMarketState] = base
	state.LastFired[models.AlertHighImpactNews] = base.Add(-time.Hour)
	return state
}

func TestMemoryEvalStore_CloneIsolation(t *testing.T) {
	s := NewMemoryEvalStore()
	state := sampleEvalState()
	if err := s.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	state.CandidatedNews["rogue"] = true
	*state.LastNetFlow = -1

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.CandidatedNews["rogue"] {
		t.Error("store aliased the saved candidated set")
	}
	if *loaded.LastNetFlow != 12500 {
		t.Errorf("store aliased the saved net flow: %v", *loaded.LastNetFlow)
	}

	// Mutating a loaded copy must not corrupt the store either.
	loaded.CandidatedNews["rogue2"] = true
	again, _ := s.Load()
	if again.CandidatedNews["rogue2"] {
		t.Error("store aliased the loaded candidated set")
	}
}

func TestMemoryDispatchStore_RoundTrip(t *testing.T) {
	s := NewMemoryDispatchStore()
	state := models.NewDispatchState()
	state.LastSentGlobal = base
	state.LastSentByType[models.AlertWhaleActivity] = base
	state.DeliveredNews["n1"] = true
	if err := s.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.LastSentGlobal.Equal(base) {
		t.Errorf("global last-sent = %v, want %v", loaded.LastSentGlobal, base)
	}
	if !loaded.DeliveredNews["n1"] {
		t.Error("delivered set lost on round trip")
	}
}

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), 100)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return s
}

func TestSQLiteEvalStore_FreshLoad(t *testing.T) {
	s := newTestDB(t)
	state, err := s.Eval().Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.LastBand != "" || state.LastNetFlow != nil {
		t.Errorf("fresh state not empty: %+v", state)
	}
	if state.CandidatedNews == nil || state.LastFired == nil {
		t.Error("fresh state maps must be initialized")
	}
}

func TestSQLiteEvalStore_RoundTrip(t *testing.T) {
	s := newTestDB(t)
	saved := sampleEvalState()
	if err := s.Eval().Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Eval().Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LastBand != models.BandAbove {
		t.Errorf("band = %s, want %s", loaded.LastBand, models.BandAbove)
	}
	if loaded.LastNetFlow == nil || *loaded.LastNetFlow != 12500 {
		t.Errorf("net flow = %v, want 12500", loaded.LastNetFlow)
	}
	if !loaded.CandidatedNews["n1"] || !loaded.CandidatedNews["n2"] {
		t.Errorf("candidated set = %v", loaded.CandidatedNews)
	}
	if !loaded.LastFired[models.AlertMarketState].Equal(base) {
		t.Errorf("market last-fired = %v, want %v", loaded.LastFired[models.AlertMarketState], base)
	}
}

func TestSQLiteDispatchStore_RoundTrip(t *testing.T) {
	s := newTestDB(t)
	saved := models.NewDispatchState()
	saved.LastSentGlobal = base
	saved.LastSentByType[models.AlertMarketState] = base.Add(-time.Hour)
	saved.DeliveredNews["n1"] = true
	if err := s.Dispatch().Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Dispatch().Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.LastSentGlobal.Equal(base) {
		t.Errorf("global last-sent = %v, want %v", loaded.LastSentGlobal, base)
	}
	if !loaded.LastSentByType[models.AlertMarketState].Equal(base.Add(-time.Hour)) {
		t.Errorf("per-type last-sent = %v", loaded.LastSentByType)
	}
	if !loaded.DeliveredNews["n1"] {
		t.Error("delivered set lost on round trip")
	}
}

func TestSQLite_AlertHistory(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"), 2)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		alert := models.CandidateAlert{
			Type:      models.AlertHighImpactNews,
			Severity:  models.SeverityInfo,
			Title:     "Story",
			Message:   "body",
			Score:     9,
			RefID:     uuid.New().String(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.LogAlert(alert); err != nil {
			t.Fatalf("LogAlert failed: %v", err)
		}
	}

	alerts, err := s.RecentAlerts(10)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected history pruned to 2, got %d", len(alerts))
	}
	if !alerts[0].CreatedAt.After(alerts[1].CreatedAt) {
		t.Error("history must be ordered newest first")
	}
}

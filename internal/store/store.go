// Package store provides the injectable state stores backing the alert
// engine and the dispatcher. The reference behavior is in-memory and
// process-local; the SQLite implementation adds optional cross-restart
// durability behind the same interfaces.
package store

import "github.com/tidewatch/intelsentry/internal/models"

// EvalStore holds the engine's evaluation state between cycles.
type EvalStore interface {
	Load() (models.EvalState, error)
	Save(models.EvalState) error
}

// DispatchStore holds the dispatcher's delivery history.
type DispatchStore interface {
	Load() (models.DispatchState, error)
	Save(models.DispatchState) error
}

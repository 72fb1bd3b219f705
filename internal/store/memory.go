package store

import "github.com/tidewatch/intelsentry/internal/models"

// MemoryEvalStore keeps evaluation state in memory for the process lifetime.
// Load and Save exchange deep copies so callers never alias the stored maps.
type MemoryEvalStore struct {
	state models.EvalState
}

func NewMemoryEvalStore() *MemoryEvalStore {
	return &MemoryEvalStore{state: models.NewEvalState()}
}

func (s *MemoryEvalStore) Load() (models.EvalState, error) {
	return s.state.Clone(), nil
}

func (s *MemoryEvalStore) Save(state models.EvalState) error {
	s.state = state.Clone()
	return nil
}

// MemoryDispatchStore keeps dispatch state in memory for the process lifetime.
type MemoryDispatchStore struct {
	state models.DispatchState
}

func NewMemoryDispatchStore() *MemoryDispatchStore {
	return &MemoryDispatchStore{state: models.NewDispatchState()}
}

func (s *MemoryDispatchStore) Load() (models.DispatchState, error) {
	return s.state.Clone(), nil
}

func (s *MemoryDispatchStore) Save(state models.DispatchState) error {
	s.state = state.Clone()
	return nil
}

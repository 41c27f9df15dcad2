package scheduler

import (
	"sort"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// StateStore is the in-memory collection of card states owned by a
// Scheduler. It is not safe for concurrent use on its own; the Scheduler
// guards it.
type StateStore struct {
	states map[string]*domain.CardMemoryState
}

// NewStateStore returns an empty store.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]*domain.CardMemoryState)}
}

// Get returns a copy of the state for cardID.
func (s *StateStore) Get(cardID string) (*domain.CardMemoryState, bool) {
	state, ok := s.states[cardID]
	if !ok {
		return nil, false
	}
	return state.Clone(), true
}

// Put stores a copy of state under its card ID.
func (s *StateStore) Put(state *domain.CardMemoryState) {
	s.states[state.CardID] = state.Clone()
}

// Delete removes the state for cardID and reports whether it existed.
func (s *StateStore) Delete(cardID string) bool {
	_, ok := s.states[cardID]
	delete(s.states, cardID)
	return ok
}

// Clear removes every state.
func (s *StateStore) Clear() {
	s.states = make(map[string]*domain.CardMemoryState)
}

// Len returns the number of tracked cards.
func (s *StateStore) Len() int {
	return len(s.states)
}

// All returns copies of every state ordered by card ID.
func (s *StateStore) All() []*domain.CardMemoryState {
	out := make([]*domain.CardMemoryState, 0, len(s.states))
	for _, state := range s.states {
		out = append(out, state.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardID < out[j].CardID })
	return out
}

// each calls fn for every stored state without copying.
func (s *StateStore) each(fn func(*domain.CardMemoryState)) {
	for _, state := range s.states {
		fn(state)
	}
}

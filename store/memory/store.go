package memory

import (
	"context"
	"sync"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/store"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of TransitionStore.
// It provides thread-safe access to the journal using a sync.RWMutex.
type Store struct {
	mu            sync.RWMutex
	transitions   []store.Transition
	byCorrelation map[projections.CorrelationID][]int // correlationID -> indexes into transitions
}

// Compile-time check that Store implements TransitionStore.
var _ store.TransitionStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		byCorrelation: make(map[projections.CorrelationID][]int),
	}
}

// RecordTransition appends a transition to the journal.
// Assigns a new ID when t.ID is empty and OccurredAt when it is zero.
func (s *Store) RecordTransition(ctx context.Context, t store.Transition) (store.Transition, error) {
	if t.To == "" {
		return store.Transition{}, store.ErrInvalidTransition
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.transitions = append(s.transitions, t)
	s.byCorrelation[t.CorrelationID] = append(s.byCorrelation[t.CorrelationID], len(s.transitions)-1)

	return t, nil
}

// ListTransitions returns the transitions recorded for a correlation id in recording order.
func (s *Store) ListTransitions(ctx context.Context, correlationID projections.CorrelationID) ([]store.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indexes := s.byCorrelation[correlationID]
	out := make([]store.Transition, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, s.transitions[i])
	}
	return out, nil
}

// LatestTransition returns the most recently recorded transition.
// Returns projections.ErrTransitionNotFound if the journal is empty.
func (s *Store) LatestTransition(ctx context.Context) (store.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.transitions) == 0 {
		return store.Transition{}, projections.ErrTransitionNotFound
	}
	return s.transitions[len(s.transitions)-1], nil
}

// Len returns the number of recorded transitions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transitions)
}

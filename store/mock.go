package store

import (
	"context"
	"sync"

	"github.com/getpup/pupsourcing-projections"
)

// MockTransitionStore is a configurable mock implementation of TransitionStore
// for use in tests. It allows setting up return values, tracking method calls,
// and injecting errors for testing error paths.
type MockTransitionStore struct {
	mu sync.RWMutex

	// RecordTransitionFunc is called by RecordTransition if set.
	RecordTransitionFunc func(ctx context.Context, t Transition) (Transition, error)

	// ListTransitionsFunc is called by ListTransitions if set.
	ListTransitionsFunc func(ctx context.Context, correlationID projections.CorrelationID) ([]Transition, error)

	// LatestTransitionFunc is called by LatestTransition if set.
	LatestTransitionFunc func(ctx context.Context) (Transition, error)

	// Call tracking
	RecordTransitionCalls []Transition
	ListTransitionsCalls  []projections.CorrelationID
	LatestTransitionCalls int
}

// Compile-time check that MockTransitionStore implements TransitionStore.
var _ TransitionStore = (*MockTransitionStore)(nil)

// NewMockTransitionStore creates a new mock store with empty call tracking.
func NewMockTransitionStore() *MockTransitionStore {
	return &MockTransitionStore{
		RecordTransitionCalls: make([]Transition, 0),
		ListTransitionsCalls:  make([]projections.CorrelationID, 0),
	}
}

// RecordTransition records the call and delegates to RecordTransitionFunc.
// Returns t unchanged when no function is set.
func (m *MockTransitionStore) RecordTransition(ctx context.Context, t Transition) (Transition, error) {
	m.mu.Lock()
	m.RecordTransitionCalls = append(m.RecordTransitionCalls, t)
	m.mu.Unlock()

	if m.RecordTransitionFunc != nil {
		return m.RecordTransitionFunc(ctx, t)
	}
	return t, nil
}

// ListTransitions records the call and delegates to ListTransitionsFunc.
// Returns an empty slice when no function is set.
func (m *MockTransitionStore) ListTransitions(ctx context.Context, correlationID projections.CorrelationID) ([]Transition, error) {
	m.mu.Lock()
	m.ListTransitionsCalls = append(m.ListTransitionsCalls, correlationID)
	m.mu.Unlock()

	if m.ListTransitionsFunc != nil {
		return m.ListTransitionsFunc(ctx, correlationID)
	}
	return []Transition{}, nil
}

// LatestTransition records the call and delegates to LatestTransitionFunc.
// Returns projections.ErrTransitionNotFound when no function is set.
func (m *MockTransitionStore) LatestTransition(ctx context.Context) (Transition, error) {
	m.mu.Lock()
	m.LatestTransitionCalls++
	m.mu.Unlock()

	if m.LatestTransitionFunc != nil {
		return m.LatestTransitionFunc(ctx)
	}
	return Transition{}, projections.ErrTransitionNotFound
}

// RecordedTransitions returns a copy of the transitions passed to RecordTransition.
func (m *MockTransitionStore) RecordedTransitions() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Transition, len(m.RecordTransitionCalls))
	copy(out, m.RecordTransitionCalls)
	return out
}

// Reset clears all call tracking.
func (m *MockTransitionStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordTransitionCalls = make([]Transition, 0)
	m.ListTransitionsCalls = make([]projections.CorrelationID, 0)
	m.LatestTransitionCalls = 0
}

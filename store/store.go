package store

import (
	"context"
	"time"

	"github.com/getpup/pupsourcing-projections"
)

// Transition is one recorded subsystem state change.
type Transition struct {
	ID            string
	CorrelationID projections.CorrelationID
	From          projections.SubsystemState
	To            projections.SubsystemState
	OccurredAt    time.Time
}

// TransitionStore persists the subsystem transition journal.
// Implementations must be safe for concurrent access.
type TransitionStore interface {
	// RecordTransition appends a transition to the journal.
	// Assigns a new ID when t.ID is empty and returns the stored transition.
	// Returns ErrInvalidTransition if t.To is empty.
	RecordTransition(ctx context.Context, t Transition) (Transition, error)

	// ListTransitions returns the transitions recorded for a correlation id in the order they were recorded.
	// Returns an empty slice if none exist.
	ListTransitions(ctx context.Context, correlationID projections.CorrelationID) ([]Transition, error)

	// LatestTransition returns the most recently recorded transition.
	// Returns projections.ErrTransitionNotFound if the journal is empty.
	LatestTransition(ctx context.Context) (Transition, error)
}

// Package journal persists subsystem state transitions to a TransitionStore.
package journal

import (
	"context"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/metrics"
	"github.com/getpup/pupsourcing-projections/store"
	"github.com/getpup/pupsourcing/es"
)

// Config holds configuration for the Journal.
type Config struct {
	// Store receives every transition (required).
	Store store.TransitionStore

	// Timeout bounds each write (default: 5s).
	Timeout time.Duration

	// Logger is for observability (optional).
	Logger es.Logger

	// Collector records metrics (optional).
	Collector *metrics.Collector
}

// Journal records SubsystemStateChanged messages.
// Write failures are logged and counted; they never reach the coordinators.
type Journal struct {
	config Config
}

// New creates a new Journal. Applies default values for zero fields.
func New(cfg Config) *Journal {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Journal{config: cfg}
}

// SetupMessaging subscribes the journal to state changes on b through dest.
// dest is normally the journal's own queue so that slow writes do not hold up the publisher.
func (j *Journal) SetupMessaging(b *bus.InMemoryBus, dest projections.Publisher) {
	b.Subscribe(projections.TypeSubsystemStateChanged, bus.HandlerFunc(dest.Publish))
}

// Handle records msg if it is a SubsystemStateChanged. Other messages are ignored.
func (j *Journal) Handle(msg projections.Message) {
	changed, ok := msg.(projections.SubsystemStateChanged)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.config.Timeout)
	defer cancel()

	recorded, err := j.config.Store.RecordTransition(ctx, store.Transition{
		CorrelationID: changed.CorrelationID,
		From:          changed.From,
		To:            changed.To,
		OccurredAt:    changed.At,
	})
	if err != nil {
		j.config.Collector.IncJournalErrors()
		if j.config.Logger != nil {
			j.config.Logger.Error(ctx, "failed to record transition",
				"correlationID", changed.CorrelationID,
				"from", changed.From,
				"to", changed.To,
				"error", err)
		}
		return
	}

	if j.config.Logger != nil {
		j.config.Logger.Debug(ctx, "transition recorded",
			"id", recorded.ID,
			"correlationID", recorded.CorrelationID,
			"to", recorded.To)
	}
}

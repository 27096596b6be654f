// Package lifecycle implements the projection management component, the logical component
// that runs beside the core coordinator and owns the catalogue of projections.
package lifecycle

import (
	"context"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing/es"
)

// Config holds configuration for the lifecycle Manager.
type Config struct {
	// Publisher receives ComponentStarted, ComponentStopped and ProjectionStopped (required).
	Publisher projections.Publisher

	// Logger is for observability (optional).
	Logger es.Logger
}

// Manager is the projection management component.
// It is not safe for concurrent use: every message must be delivered by one serialised queue.
type Manager struct {
	config Config

	started       bool
	correlationID projections.CorrelationID
	created       bool
	enabled       []string
	enabledSet    map[string]struct{}
}

// New creates a new lifecycle Manager in the stopped state.
func New(cfg Config) *Manager {
	return &Manager{
		config:     cfg,
		enabledSet: make(map[string]struct{}),
	}
}

// SetupMessaging subscribes the manager to its inbound messages on b.
func (m *Manager) SetupMessaging(b *bus.InMemoryBus) {
	h := bus.HandlerFunc(m.Handle)
	b.Subscribe(projections.TypeStartComponents, h)
	b.Subscribe(projections.TypeStopComponents, h)
	b.Subscribe(projections.TypeEnableProjection, h)
}

// Handle processes one inbound message. Unknown message types are ignored.
func (m *Manager) Handle(msg projections.Message) {
	switch msg := msg.(type) {
	case projections.StartComponents:
		m.start(msg.CorrelationID)
	case projections.StopComponents:
		m.stop(msg.CorrelationID)
	case projections.EnableProjection:
		m.enable(msg.Name)
	}
}

// Started reports whether the manager is running.
func (m *Manager) Started() bool {
	return m.started
}

// CorrelationID returns the correlation id of the current or last cycle.
func (m *Manager) CorrelationID() projections.CorrelationID {
	return m.correlationID
}

// Enabled returns the enabled projections in the order they were enabled.
func (m *Manager) Enabled() []string {
	out := make([]string, len(m.enabled))
	copy(out, m.enabled)
	return out
}

func (m *Manager) start(id projections.CorrelationID) {
	if m.started {
		if m.config.Logger != nil {
			m.config.Logger.Debug(context.Background(), "ignored StartComponents, manager already started",
				"correlationID", id, "activeCorrelationID", m.correlationID)
		}
		return
	}

	m.started = true
	m.correlationID = id
	m.config.Publisher.Publish(projections.ComponentStarted{
		ComponentName: projections.ComponentProjectionManager,
		CorrelationID: id,
	})

	if m.config.Logger != nil {
		m.config.Logger.Info(context.Background(), "projection manager started", "correlationID", id)
	}

	if m.created {
		return
	}
	// Standard projections are created once and report the stopped status of a new projection.
	m.created = true
	for _, name := range projections.StandardProjections() {
		m.config.Publisher.Publish(projections.ProjectionStopped{Name: name})
	}
}

func (m *Manager) stop(id projections.CorrelationID) {
	if !m.started || id != m.correlationID {
		if m.config.Logger != nil {
			m.config.Logger.Debug(context.Background(), "ignored StopComponents",
				"started", m.started, "correlationID", id, "activeCorrelationID", m.correlationID)
		}
		return
	}

	m.started = false
	m.config.Publisher.Publish(projections.ComponentStopped{
		ComponentName: projections.ComponentProjectionManager,
		CorrelationID: id,
	})

	if m.config.Logger != nil {
		m.config.Logger.Info(context.Background(), "projection manager stopped", "correlationID", id)
	}
}

func (m *Manager) enable(name string) {
	if _, ok := m.enabledSet[name]; ok {
		return
	}
	m.enabledSet[name] = struct{}{}
	m.enabled = append(m.enabled, name)

	if m.config.Logger != nil {
		m.config.Logger.Info(context.Background(), "projection enabled", "projection", name)
	}
}

// Package subsystem implements the subsystem coordinator: the state machine that gates the
// projection subsystem on node readiness and cluster leadership, aggregates its two logical
// components into one lifecycle and serves restart requests.
package subsystem

import (
	"context"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/metrics"
	"github.com/getpup/pupsourcing/es"
)

// Config holds configuration for the Coordinator.
type Config struct {
	// StartStandardProjections enables each standard projection the first time it reports stopped.
	StartStandardProjections bool

	// Publisher receives StartComponents, StopComponents and EnableProjection (required).
	Publisher projections.Publisher

	// Output receives SubsystemInitialized and SubsystemStateChanged (required).
	Output projections.Publisher

	// Logger is for observability (optional).
	Logger es.Logger

	// Collector records metrics (optional).
	Collector *metrics.Collector

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// Coordinator is the subsystem coordinator state machine.
// It is not safe for concurrent use: every message must be delivered by one serialised queue.
type Coordinator struct {
	config Config

	state         projections.SubsystemState
	role          projections.NodeRole
	correlationID projections.CorrelationID
	pending       int
	active        int
	restarting    bool

	standard map[string]struct{}
}

// New creates a new Coordinator in the not_ready state with an unknown role.
func New(cfg Config) *Coordinator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Coordinator{
		config: cfg,
		state:  projections.SubsystemStateNotReady,
		role:   projections.NodeRoleUnknown,
	}
	if cfg.StartStandardProjections {
		c.standard = make(map[string]struct{})
		for _, name := range projections.StandardProjections() {
			c.standard[name] = struct{}{}
		}
	}
	cfg.Collector.SetSubsystemState(string(c.state))

	return c
}

// SetupMessaging subscribes the coordinator to its inbound messages on b.
func (c *Coordinator) SetupMessaging(b *bus.InMemoryBus) {
	h := bus.HandlerFunc(c.Handle)
	b.Subscribe(projections.TypeSystemCoreReady, h)
	b.Subscribe(projections.TypeRoleChanged, h)
	b.Subscribe(projections.TypeComponentStarted, h)
	b.Subscribe(projections.TypeComponentStopped, h)
	b.Subscribe(projections.TypeRestartSubsystem, h)
	b.Subscribe(projections.TypeProjectionStopped, h)
}

// Handle processes one inbound message. Unknown message types are ignored.
func (c *Coordinator) Handle(msg projections.Message) {
	switch m := msg.(type) {
	case projections.SystemCoreReady:
		c.handleSystemCoreReady()
	case projections.RoleChanged:
		c.handleRoleChanged(m)
	case projections.ComponentStarted:
		c.handleComponentStarted(m)
	case projections.ComponentStopped:
		c.handleComponentStopped(m)
	case projections.RestartSubsystem:
		c.handleRestart(m)
	case projections.ProjectionStopped:
		c.handleProjectionStopped(m)
	}
}

// State returns the current state.
func (c *Coordinator) State() projections.SubsystemState {
	return c.state
}

// Role returns the last known node role.
func (c *Coordinator) Role() projections.NodeRole {
	return c.role
}

// CorrelationID returns the correlation id of the current or last cycle.
func (c *Coordinator) CorrelationID() projections.CorrelationID {
	return c.correlationID
}

// Restarting reports whether an accepted restart has not yet completed its stop half.
func (c *Coordinator) Restarting() bool {
	return c.restarting
}

// PendingStandardProjections returns the standard projections not yet enabled.
func (c *Coordinator) PendingStandardProjections() []string {
	var out []string
	for _, name := range projections.StandardProjections() {
		if _, ok := c.standard[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (c *Coordinator) handleSystemCoreReady() {
	if c.state != projections.SubsystemStateNotReady {
		c.ignore(projections.SystemCoreReady{}, "state", c.state)
		return
	}

	c.setState(projections.SubsystemStateReady)
	if c.role == projections.NodeRoleLeader {
		c.attemptStart()
	}
}

func (c *Coordinator) handleRoleChanged(m projections.RoleChanged) {
	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "node role changed",
			"from", c.role, "to", m.Role, "state", c.state)
	}

	c.role = m.Role
	if m.Role == projections.NodeRoleLeader {
		c.attemptStart()
	} else {
		c.attemptStop()
	}
}

func (c *Coordinator) attemptStart() {
	if c.role != projections.NodeRoleLeader {
		c.debug("start skipped, node is not leader", "role", c.role, "state", c.state)
		return
	}
	if c.state != projections.SubsystemStateReady && c.state != projections.SubsystemStateStopped {
		c.debug("start skipped", "state", c.state)
		return
	}
	if c.pending != 0 || c.active != 0 {
		c.debug("start skipped, components still converging", "pending", c.pending, "active", c.active)
		return
	}

	c.correlationID = projections.NewCorrelationID()
	c.pending = projections.ComponentCount
	c.setState(projections.SubsystemStateStarting)
	c.config.Collector.IncStarts()

	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "starting projections subsystem", "correlationID", c.correlationID)
	}

	c.config.Publisher.Publish(projections.StartComponents{CorrelationID: c.correlationID})
}

func (c *Coordinator) handleComponentStarted(m projections.ComponentStarted) {
	if c.state != projections.SubsystemStateStarting || m.CorrelationID != c.correlationID {
		c.ignore(m, "state", c.state, "component", m.ComponentName,
			"correlationID", m.CorrelationID, "activeCorrelationID", c.correlationID)
		return
	}

	c.pending--
	c.active++
	if c.config.Logger != nil {
		c.config.Logger.Debug(context.Background(), "component started",
			"component", m.ComponentName, "correlationID", m.CorrelationID, "pending", c.pending)
	}
	if c.pending > 0 {
		return
	}

	c.setState(projections.SubsystemStateStarted)

	// A role change that arrived mid-start must not leave the subsystem running.
	if c.role != projections.NodeRoleLeader {
		if c.config.Logger != nil {
			c.config.Logger.Info(context.Background(), "node lost leadership while starting, stopping",
				"correlationID", c.correlationID, "role", c.role)
		}
		c.attemptStop()
		return
	}

	c.config.Collector.IncInitialized()
	c.config.Output.Publish(projections.SubsystemInitialized{Name: projections.SubsystemName})

	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "projections subsystem started", "correlationID", c.correlationID)
	}
}

func (c *Coordinator) attemptStop() {
	if c.state != projections.SubsystemStateStarted {
		c.debug("stop skipped", "state", c.state)
		return
	}

	c.setState(projections.SubsystemStateStopping)
	c.config.Collector.IncStops()

	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "stopping projections subsystem",
			"correlationID", c.correlationID, "restarting", c.restarting)
	}

	c.config.Publisher.Publish(projections.StopComponents{CorrelationID: c.correlationID})
}

func (c *Coordinator) handleComponentStopped(m projections.ComponentStopped) {
	if c.state != projections.SubsystemStateStopping || m.CorrelationID != c.correlationID {
		c.ignore(m, "state", c.state, "component", m.ComponentName,
			"correlationID", m.CorrelationID, "activeCorrelationID", c.correlationID)
		return
	}

	c.active--
	if c.config.Logger != nil {
		c.config.Logger.Debug(context.Background(), "component stopped",
			"component", m.ComponentName, "correlationID", m.CorrelationID, "active", c.active)
	}
	if c.active > 0 {
		return
	}

	c.setState(projections.SubsystemStateStopped)
	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "projections subsystem stopped", "correlationID", c.correlationID)
	}

	if c.restarting {
		c.restarting = false
		if c.config.Logger != nil {
			c.config.Logger.Info(context.Background(), "restarting projections subsystem")
		}
	}
	if c.role == projections.NodeRoleLeader {
		c.attemptStart()
	}
}

func (c *Coordinator) handleRestart(m projections.RestartSubsystem) {
	reply := m.Reply
	if reply == nil {
		reply = projections.NoopEnvelope{}
	}

	if c.state != projections.SubsystemStateStarted || c.restarting {
		c.config.Collector.IncRestartRequests(false)
		if c.config.Logger != nil {
			c.config.Logger.Info(context.Background(), "restart rejected",
				"state", c.state, "restarting", c.restarting)
		}
		reply.ReplyWith(projections.InvalidSubsystemRestart{State: c.state})
		return
	}

	c.restarting = true
	c.config.Collector.IncRestartRequests(true)
	reply.ReplyWith(projections.SubsystemRestarting{})
	c.attemptStop()
}

func (c *Coordinator) handleProjectionStopped(m projections.ProjectionStopped) {
	if _, ok := c.standard[m.Name]; !ok {
		return
	}

	delete(c.standard, m.Name)
	c.config.Collector.AddStandardProjectionsEnabled(1)
	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "enabling standard projection", "projection", m.Name)
	}
	c.config.Publisher.Publish(projections.EnableProjection{Name: m.Name})
}

func (c *Coordinator) setState(state projections.SubsystemState) {
	from := c.state
	c.state = state
	c.config.Collector.SetSubsystemState(string(state))
	c.config.Output.Publish(projections.SubsystemStateChanged{
		CorrelationID: c.correlationID,
		From:          from,
		To:            state,
		At:            c.config.Now(),
	})
}

func (c *Coordinator) ignore(msg projections.Message, args ...interface{}) {
	c.config.Collector.IncStaleMessages("subsystem", msg.MessageType())
	c.debug("ignored "+msg.MessageType(), args...)
}

func (c *Coordinator) debug(msg string, args ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(context.Background(), msg, args...)
	}
}

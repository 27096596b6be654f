// Package coordinator implements the core coordinator: the logical component that fans one
// start or stop command out to every worker partition and reports a single completion
// event once every sub-component has acknowledged.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/metrics"
	"github.com/getpup/pupsourcing-projections/timer"
	"github.com/getpup/pupsourcing/es"
)

// Ticker drives the expired timeouts of one partition.
type Ticker interface {
	Tick() int
}

// Config holds configuration for the Coordinator.
type Config struct {
	// RunMode decides whether partitions run projection logic (required).
	RunMode projections.RunMode

	// Partitions are the inboxes of the worker partitions, one per partition (required).
	Partitions []projections.Publisher

	// TimeoutSchedulers are the partition-local timeout schedulers pumped on every tick.
	TimeoutSchedulers []Ticker

	// Publisher receives ComponentStarted and ComponentStopped (required).
	Publisher projections.Publisher

	// Inbox is where the coordinator's own RegularTimeout ticks are delivered (required).
	Inbox projections.Publisher

	// Timer schedules the periodic tick (required).
	Timer timer.Scheduler

	// TickInterval is the period of the regular timeout (default: 100ms).
	TickInterval time.Duration

	// Logger is for observability (optional).
	Logger es.Logger

	// Collector records metrics (optional).
	Collector *metrics.Collector
}

// Coordinator is the core coordinator state machine.
// It is not safe for concurrent use: every message must be delivered by one serialised queue.
type Coordinator struct {
	config Config

	state         projections.CoreState
	correlationID projections.CorrelationID
	pending       int
	active        int
	since         time.Time

	stopTokens []projections.StopToken
	partitions map[projections.StopToken]int // stopToken -> partition index
}

// New creates a new Coordinator in the stopped state and mints one stop token per partition.
// Applies default values for zero fields.
func New(cfg Config) *Coordinator {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}

	c := &Coordinator{
		config:     cfg,
		state:      projections.CoreStateStopped,
		stopTokens: make([]projections.StopToken, len(cfg.Partitions)),
		partitions: make(map[projections.StopToken]int, len(cfg.Partitions)),
	}
	for i := range cfg.Partitions {
		token := projections.NewStopToken()
		c.stopTokens[i] = token
		c.partitions[token] = i
	}
	cfg.Collector.SetCoreState(string(c.state))

	return c
}

// SetupMessaging subscribes the coordinator to its inbound messages on b.
// RegularTimeout is only subscribed when the run mode executes projections.
func (c *Coordinator) SetupMessaging(b *bus.InMemoryBus) {
	h := bus.HandlerFunc(c.Handle)
	b.Subscribe(projections.TypeStartComponents, h)
	b.Subscribe(projections.TypeStopComponents, h)
	b.Subscribe(projections.TypeSubComponentStarted, h)
	b.Subscribe(projections.TypeSubComponentStopped, h)
	if c.config.RunMode.ExecutesProjections() {
		b.Subscribe(projections.TypeRegularTimeout, h)
	}
}

// Handle processes one inbound message. Unknown message types are ignored.
func (c *Coordinator) Handle(msg projections.Message) {
	switch m := msg.(type) {
	case projections.StartComponents:
		c.handleStartComponents(m)
	case projections.StopComponents:
		c.handleStopComponents(m)
	case projections.SubComponentStarted:
		c.handleSubComponentStarted(m)
	case projections.SubComponentStopped:
		c.handleSubComponentStopped(m)
	case projections.RegularTimeout:
		c.handleRegularTimeout(m)
	}
}

// State returns the current state.
func (c *Coordinator) State() projections.CoreState {
	return c.state
}

// CorrelationID returns the correlation id of the current or last cycle.
func (c *Coordinator) CorrelationID() projections.CorrelationID {
	return c.correlationID
}

// Pending returns the number of start acknowledgments still awaited.
func (c *Coordinator) Pending() int {
	return c.pending
}

// Active returns the number of sub-components believed to be running.
func (c *Coordinator) Active() int {
	return c.active
}

// StopTokens returns the stop token of each partition, indexed by partition.
func (c *Coordinator) StopTokens() []projections.StopToken {
	out := make([]projections.StopToken, len(c.stopTokens))
	copy(out, c.stopTokens)
	return out
}

func (c *Coordinator) handleStartComponents(m projections.StartComponents) {
	if c.state != projections.CoreStateStopped {
		c.ignore(m, "state", c.state, "correlationID", m.CorrelationID, "activeCorrelationID", c.correlationID)
		return
	}
	c.start(m.CorrelationID)
}

func (c *Coordinator) start(id projections.CorrelationID) {
	if c.state != projections.CoreStateStopped {
		panic(fmt.Errorf("core coordinator start in state %s: %w", c.state, projections.ErrAlreadyStarted))
	}

	c.correlationID = id
	c.pending = 0
	c.active = 0
	c.since = time.Now()
	c.setState(projections.CoreStateStarting)

	runCore := c.config.RunMode.ExecutesProjections()
	for _, partition := range c.config.Partitions {
		partition.Publish(projections.StartReader{CorrelationID: id})
		c.pending++
		if runCore {
			partition.Publish(projections.StartCore{CorrelationID: id})
			c.pending += 2
		}
	}

	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "starting core components",
			"correlationID", id, "partitions", len(c.config.Partitions), "pending", c.pending, "runMode", c.config.RunMode)
	}

	c.scheduleTick()
	if c.pending == 0 {
		c.finishStart()
	}
}

func (c *Coordinator) handleSubComponentStarted(m projections.SubComponentStarted) {
	if c.state != projections.CoreStateStarting || m.CorrelationID != c.correlationID {
		c.ignore(m, "state", c.state, "kind", m.Kind, "correlationID", m.CorrelationID, "activeCorrelationID", c.correlationID)
		return
	}

	c.pending--
	c.active++
	c.config.Collector.IncSubComponentAck(m.Kind.String(), "started")

	if c.config.Logger != nil {
		c.config.Logger.Debug(context.Background(), "sub-component started",
			"kind", m.Kind, "correlationID", m.CorrelationID, "pending", c.pending)
	}

	if c.pending == 0 {
		c.finishStart()
	}
}

func (c *Coordinator) finishStart() {
	c.setState(projections.CoreStateStarted)
	c.config.Collector.ObserveConvergenceDuration(projections.ComponentCoreCoordinator, "start", time.Since(c.since).Seconds())
	c.config.Publisher.Publish(projections.ComponentStarted{
		ComponentName: projections.ComponentCoreCoordinator,
		CorrelationID: c.correlationID,
	})

	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "core components started",
			"correlationID", c.correlationID, "active", c.active)
	}
}

func (c *Coordinator) handleStopComponents(m projections.StopComponents) {
	if c.state != projections.CoreStateStarted || m.CorrelationID != c.correlationID {
		c.ignore(m, "state", c.state, "correlationID", m.CorrelationID, "activeCorrelationID", c.correlationID)
		return
	}

	c.since = time.Now()
	c.setState(projections.CoreStateStopping)

	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "stopping core components",
			"correlationID", c.correlationID, "active", c.active)
	}

	if c.active == 0 {
		c.finishStop()
		return
	}

	runCore := c.config.RunMode.ExecutesProjections()
	for i, partition := range c.config.Partitions {
		token := c.stopTokens[i]
		if runCore {
			partition.Publish(projections.StopCore{StopToken: token})
		} else {
			partition.Publish(projections.StopReader{StopToken: token})
		}
	}
}

func (c *Coordinator) handleSubComponentStopped(m projections.SubComponentStopped) {
	if c.state != projections.CoreStateStopping {
		c.ignore(m, "state", c.state, "kind", m.Kind, "stopToken", m.StopToken)
		return
	}

	c.active--
	c.config.Collector.IncSubComponentAck(m.Kind.String(), "stopped")

	if c.config.Logger != nil {
		c.config.Logger.Debug(context.Background(), "sub-component stopped",
			"kind", m.Kind, "stopToken", m.StopToken, "active", c.active)
	}

	// The reader of a partition is torn down only after its core service has stopped.
	if m.Kind == projections.SubComponentCoreService {
		if i, ok := c.partitions[m.StopToken]; ok {
			c.config.Partitions[i].Publish(projections.StopReader{StopToken: m.StopToken})
		} else if c.config.Logger != nil {
			c.config.Logger.Error(context.Background(), "core service stopped with unknown stop token",
				"stopToken", m.StopToken, "correlationID", c.correlationID)
		}
	}

	if c.active <= 0 {
		c.finishStop()
	}
}

func (c *Coordinator) finishStop() {
	c.active = 0
	c.setState(projections.CoreStateStopped)
	c.config.Collector.ObserveConvergenceDuration(projections.ComponentCoreCoordinator, "stop", time.Since(c.since).Seconds())
	c.config.Publisher.Publish(projections.ComponentStopped{
		ComponentName: projections.ComponentCoreCoordinator,
		CorrelationID: c.correlationID,
	})

	if c.config.Logger != nil {
		c.config.Logger.Info(context.Background(), "core components stopped", "correlationID", c.correlationID)
	}
}

func (c *Coordinator) handleRegularTimeout(m projections.RegularTimeout) {
	if c.state == projections.CoreStateStopped || m.CorrelationID != c.correlationID {
		// A tick armed by an earlier cycle ends its chain here.
		if c.config.Logger != nil {
			c.config.Logger.Debug(context.Background(), "regular timeout dropped",
				"state", c.state, "correlationID", m.CorrelationID, "activeCorrelationID", c.correlationID)
		}
		return
	}

	c.scheduleTick()
	for _, scheduler := range c.config.TimeoutSchedulers {
		scheduler.Tick()
	}
	c.config.Collector.IncTimeoutTicks()
}

func (c *Coordinator) scheduleTick() {
	c.config.Timer.Schedule(c.config.TickInterval, c.config.Inbox, projections.RegularTimeout{CorrelationID: c.correlationID})
}

func (c *Coordinator) setState(state projections.CoreState) {
	c.state = state
	c.config.Collector.SetCoreState(string(state))
}

func (c *Coordinator) ignore(msg projections.Message, args ...interface{}) {
	c.config.Collector.IncStaleMessages(projections.ComponentCoreCoordinator, msg.MessageType())
	if c.config.Logger != nil {
		c.config.Logger.Debug(context.Background(), "ignored "+msg.MessageType(), args...)
	}
}

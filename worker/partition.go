// Package worker implements in-process worker partitions: the event reader, projection core
// service and command reader that the core coordinator starts and stops.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/timer"
	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/pupsourcing/es/projection"
)

// TypeCheckpointTimeout is the message type of a partition-local checkpoint timeout.
const TypeCheckpointTimeout = "CheckpointTimeout"

// checkpointTimeout is delivered to the partition's own inbox when a checkpoint is due.
type checkpointTimeout struct {
	generation uint64
}

func (checkpointTimeout) MessageType() string { return TypeCheckpointTimeout }

// Config configures a worker Partition.
type Config struct {
	// Index identifies the partition in logs.
	Index int

	// Reply receives sub-component acknowledgments (required).
	Reply projections.Publisher

	// Inbox is the partition's own queue, used to deliver checkpoint timeouts (required with Projections).
	Inbox projections.Publisher

	// Timeouts is the partition-local timeout scheduler ticked by the core coordinator (required with Projections).
	Timeouts *timer.TimeoutScheduler

	// Projections are registered with the core service.
	Projections []projection.Projection

	// CheckpointInterval is how often running projections checkpoint (default: 1s).
	CheckpointInterval time.Duration

	// Logger is for observability (optional).
	Logger es.Logger
}

// Partition is one worker partition.
// Handle must be called from a single goroutine; accessors are safe for concurrent use.
type Partition struct {
	config Config

	mu            sync.Mutex
	reader        bool
	core          bool
	commandReader bool
	correlationID projections.CorrelationID
	generation    uint64
	checkpoints   map[string]int
}

// New creates a new Partition with every sub-component stopped.
// Applies default values for zero fields.
func New(cfg Config) *Partition {
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = time.Second
	}

	return &Partition{
		config:      cfg,
		checkpoints: make(map[string]int),
	}
}

// SetupMessaging subscribes the partition to its inbound messages on b.
func (p *Partition) SetupMessaging(b *bus.InMemoryBus) {
	h := bus.HandlerFunc(p.Handle)
	b.Subscribe(projections.TypeStartReader, h)
	b.Subscribe(projections.TypeStopReader, h)
	b.Subscribe(projections.TypeStartCore, h)
	b.Subscribe(projections.TypeStopCore, h)
	b.Subscribe(TypeCheckpointTimeout, h)
}

// Handle processes one inbound message. Unknown message types are ignored.
func (p *Partition) Handle(msg projections.Message) {
	p.mu.Lock()
	var acks []projections.Message
	switch m := msg.(type) {
	case projections.StartReader:
		acks = p.startReader(m)
	case projections.StopReader:
		acks = p.stopReader(m)
	case projections.StartCore:
		acks = p.startCore(m)
	case projections.StopCore:
		acks = p.stopCore(m)
	case checkpointTimeout:
		p.checkpoint(m)
	}
	p.mu.Unlock()

	for _, ack := range acks {
		p.config.Reply.Publish(ack)
	}
}

// ReaderRunning reports whether the event reader is running.
func (p *Partition) ReaderRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reader
}

// CoreRunning reports whether the core service and its command reader are running.
func (p *Partition) CoreRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.core && p.commandReader
}

// CorrelationID returns the correlation id of the cycle that last started a sub-component.
func (p *Partition) CorrelationID() projections.CorrelationID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.correlationID
}

// Checkpoints returns how many checkpoints each registered projection has taken.
func (p *Partition) Checkpoints() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]int, len(p.checkpoints))
	for name, n := range p.checkpoints {
		out[name] = n
	}
	return out
}

func (p *Partition) startReader(m projections.StartReader) []projections.Message {
	if p.reader {
		p.ignore(m, "correlationID", m.CorrelationID)
		return nil
	}

	p.reader = true
	p.correlationID = m.CorrelationID
	p.info("event reader started", "correlationID", m.CorrelationID)

	return []projections.Message{
		projections.SubComponentStarted{Kind: projections.SubComponentReader, CorrelationID: m.CorrelationID},
	}
}

func (p *Partition) stopReader(m projections.StopReader) []projections.Message {
	if !p.reader {
		p.ignore(m, "stopToken", m.StopToken)
		return nil
	}

	p.reader = false
	p.info("event reader stopped", "stopToken", m.StopToken, "correlationID", p.correlationID)

	return []projections.Message{
		projections.SubComponentStopped{Kind: projections.SubComponentReader, StopToken: m.StopToken},
	}
}

func (p *Partition) startCore(m projections.StartCore) []projections.Message {
	if p.core {
		p.ignore(m, "correlationID", m.CorrelationID)
		return nil
	}

	p.core = true
	p.commandReader = true
	p.correlationID = m.CorrelationID
	p.generation++
	p.scheduleCheckpoint()

	names := make([]string, len(p.config.Projections))
	for i, proj := range p.config.Projections {
		names[i] = proj.Name()
	}
	p.info("projection core service started", "correlationID", m.CorrelationID, "projections", names)

	return []projections.Message{
		projections.SubComponentStarted{Kind: projections.SubComponentCoreService, CorrelationID: m.CorrelationID},
		projections.SubComponentStarted{Kind: projections.SubComponentCommandReader, CorrelationID: m.CorrelationID},
	}
}

func (p *Partition) stopCore(m projections.StopCore) []projections.Message {
	if !p.core {
		p.ignore(m, "stopToken", m.StopToken)
		return nil
	}

	// The command reader goes first so no command reaches a stopping core service.
	p.commandReader = false
	p.core = false
	p.info("projection core service stopped", "stopToken", m.StopToken, "correlationID", p.correlationID)

	return []projections.Message{
		projections.SubComponentStopped{Kind: projections.SubComponentCommandReader, StopToken: m.StopToken},
		projections.SubComponentStopped{Kind: projections.SubComponentCoreService, StopToken: m.StopToken},
	}
}

func (p *Partition) checkpoint(m checkpointTimeout) {
	if !p.core || m.generation != p.generation {
		return
	}

	for _, proj := range p.config.Projections {
		p.checkpoints[proj.Name()]++
	}
	if p.config.Logger != nil {
		p.config.Logger.Debug(context.Background(), "projection checkpoint",
			"partition", p.config.Index, "correlationID", p.correlationID, "projections", len(p.config.Projections))
	}
	p.scheduleCheckpoint()
}

// scheduleCheckpoint arms the next checkpoint for the running core service generation.
func (p *Partition) scheduleCheckpoint() {
	if p.config.Timeouts == nil || p.config.Inbox == nil || len(p.config.Projections) == 0 {
		return
	}

	inbox := p.config.Inbox
	msg := checkpointTimeout{generation: p.generation}
	p.config.Timeouts.Schedule(p.config.CheckpointInterval, func() {
		inbox.Publish(msg)
	})
}

func (p *Partition) info(msg string, args ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(context.Background(), msg, append([]interface{}{"partition", p.config.Index}, args...)...)
	}
}

func (p *Partition) ignore(msg projections.Message, args ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(context.Background(), "ignored "+msg.MessageType(),
			append([]interface{}{"partition", p.config.Index}, args...)...)
	}
}

// Package host wires the projection subsystem together: the subsystem coordinator, the core
// coordinator and the management component share one serialised main queue, every worker
// partition gets its own queue, and state changes flow out through an output bus to the
// transition journal.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/coordinator"
	"github.com/getpup/pupsourcing-projections/journal"
	"github.com/getpup/pupsourcing-projections/lifecycle"
	"github.com/getpup/pupsourcing-projections/metrics"
	"github.com/getpup/pupsourcing-projections/store"
	"github.com/getpup/pupsourcing-projections/store/memory"
	"github.com/getpup/pupsourcing-projections/subsystem"
	"github.com/getpup/pupsourcing-projections/timer"
	"github.com/getpup/pupsourcing-projections/worker"
	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/pupsourcing/es/projection"
)

// ErrAlreadyRunning indicates Run was called on a host that is running or has run.
var ErrAlreadyRunning = errors.New("host already running")

// Config holds configuration for the Host.
type Config struct {
	// RunMode decides whether worker partitions run projection logic (default: RunModeNone).
	RunMode projections.RunMode

	// WorkerCount is the number of worker partitions (default: 1).
	// Forced to 1 unless RunMode is RunModeAll.
	WorkerCount int

	// StartStandardProjections enables the standard projections on first start.
	StartStandardProjections bool

	// TickInterval is the period of the core coordinator's regular timeout (default: 100ms).
	TickInterval time.Duration

	// CheckpointInterval is how often running projections checkpoint (default: 1s).
	CheckpointInterval time.Duration

	// Projections are registered with every partition's core service.
	Projections []projection.Projection

	// Store receives the transition journal (default: in-memory store).
	Store store.TransitionStore

	// Logger is for observability (optional).
	Logger es.Logger

	// MetricsEnabled enables Prometheus metrics collection (default: true).
	// Set to false explicitly to disable metrics.
	MetricsEnabled *bool
}

// Host runs one projection subsystem in-process.
type Host struct {
	config    Config
	collector *metrics.Collector

	mainBus   *bus.InMemoryBus
	mainQueue *bus.QueuedHandler
	output    *bus.InMemoryBus

	partitions      []*worker.Partition
	partitionQueues []*bus.QueuedHandler

	timer        *timer.Service
	journalQueue *bus.QueuedHandler

	subsystem *subsystem.Coordinator
	core      *coordinator.Coordinator
	manager   *lifecycle.Manager

	state   atomic.Value // projections.SubsystemState
	mu      sync.Mutex
	running bool
}

// Compile-time check that Host implements Subsystem.
var _ projections.Subsystem = (*Host)(nil)

// New creates a new Host and wires every component. Nothing runs until Run is called.
// Applies default values for zero fields.
func New(cfg Config) *Host {
	if cfg.WorkerCount <= 0 || cfg.RunMode != projections.RunModeAll {
		cfg.WorkerCount = 1
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = time.Second
	}
	if cfg.Store == nil {
		cfg.Store = memory.New()
	}

	// Create metrics collector if enabled (default: true)
	var collector *metrics.Collector
	metricsEnabled := true
	if cfg.MetricsEnabled != nil {
		metricsEnabled = *cfg.MetricsEnabled
	}
	if metricsEnabled {
		collector = metrics.NewCollector(projections.SubsystemName)
	}

	queueConfig := bus.QueueConfig{Logger: cfg.Logger}
	h := &Host{
		config:    cfg,
		collector: collector,
		mainBus:   bus.NewInMemoryBus("main"),
		output:    bus.NewInMemoryBus("output"),
		timer:     timer.NewService(timer.ServiceConfig{Logger: cfg.Logger}),
	}
	h.state.Store(projections.SubsystemStateNotReady)
	h.mainQueue = bus.NewQueuedHandler("main", h.mainBus, queueConfig)

	inboxes := make([]projections.Publisher, cfg.WorkerCount)
	tickers := make([]coordinator.Ticker, cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		name := fmt.Sprintf("partition-%d", i)
		partitionBus := bus.NewInMemoryBus(name)
		queue := bus.NewQueuedHandler(name, partitionBus, queueConfig)
		timeouts := timer.NewTimeoutScheduler(nil)

		p := worker.New(worker.Config{
			Index:              i,
			Reply:              h.mainQueue,
			Inbox:              queue,
			Timeouts:           timeouts,
			Projections:        cfg.Projections,
			CheckpointInterval: cfg.CheckpointInterval,
			Logger:             cfg.Logger,
		})
		p.SetupMessaging(partitionBus)

		h.partitions = append(h.partitions, p)
		h.partitionQueues = append(h.partitionQueues, queue)
		inboxes[i] = queue
		tickers[i] = timeouts
	}

	h.subsystem = subsystem.New(subsystem.Config{
		StartStandardProjections: cfg.StartStandardProjections,
		Publisher:                h.mainQueue,
		Output:                   h.output,
		Logger:                   cfg.Logger,
		Collector:                collector,
	})
	h.subsystem.SetupMessaging(h.mainBus)

	h.core = coordinator.New(coordinator.Config{
		RunMode:           cfg.RunMode,
		Partitions:        inboxes,
		TimeoutSchedulers: tickers,
		Publisher:         h.mainQueue,
		Inbox:             h.mainQueue,
		Timer:             h.timer,
		TickInterval:      cfg.TickInterval,
		Logger:            cfg.Logger,
		Collector:         collector,
	})
	h.core.SetupMessaging(h.mainBus)

	h.manager = lifecycle.New(lifecycle.Config{
		Publisher: h.mainQueue,
		Logger:    cfg.Logger,
	})
	h.manager.SetupMessaging(h.mainBus)

	j := journal.New(journal.Config{
		Store:     cfg.Store,
		Logger:    cfg.Logger,
		Collector: collector,
	})
	h.journalQueue = bus.NewQueuedHandler("journal", bus.HandlerFunc(j.Handle), queueConfig)
	j.SetupMessaging(h.output, h.journalQueue)

	h.output.Subscribe(projections.TypeSubsystemStateChanged, bus.HandlerFunc(func(msg projections.Message) {
		h.state.Store(msg.(projections.SubsystemStateChanged).To)
	}))

	return h
}

// Run starts every queue and blocks until ctx is cancelled, then stops them.
// Signals sent before Run are queued and handled once it starts.
func (h *Host) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	if h.config.Logger != nil {
		h.config.Logger.Info(ctx, "projection subsystem host starting",
			"runMode", h.config.RunMode,
			"workerCount", h.config.WorkerCount,
			"projections", len(h.config.Projections))
	}

	h.journalQueue.Start(ctx)
	for _, q := range h.partitionQueues {
		q.Start(ctx)
	}
	h.mainQueue.Start(ctx)

	<-ctx.Done()

	h.timer.Stop()
	h.mainQueue.Stop()
	for _, q := range h.partitionQueues {
		q.Stop()
	}
	h.journalQueue.Stop()

	if h.config.Logger != nil {
		h.config.Logger.Info(context.Background(), "projection subsystem host stopped",
			"state", h.State())
	}

	return ctx.Err()
}

// SystemReady signals that the node core finished initialising.
func (h *Host) SystemReady() {
	h.mainQueue.Publish(projections.SystemCoreReady{})
}

// SetRole signals a new cluster role for this node.
func (h *Host) SetRole(role projections.NodeRole) {
	h.mainQueue.Publish(projections.RoleChanged{Role: role})
}

// Restart requests a restart of the subsystem. The returned channel receives exactly one
// reply, SubsystemRestarting or InvalidSubsystemRestart, once the request is handled.
func (h *Host) Restart() <-chan projections.Message {
	reply := make(chan projections.Message, 1)
	h.mainQueue.Publish(projections.RestartSubsystem{
		Reply: projections.EnvelopeFunc(func(msg projections.Message) {
			reply <- msg
		}),
	})
	return reply
}

// Subscribe registers handler for messages of msgType published on the output bus:
// SubsystemInitialized and SubsystemStateChanged.
// Handlers run on the main queue and must not block.
func (h *Host) Subscribe(msgType string, handler bus.Handler) {
	h.output.Subscribe(msgType, handler)
}

// State returns the last published subsystem state.
func (h *Host) State() projections.SubsystemState {
	return h.state.Load().(projections.SubsystemState)
}

// WorkerCount returns the effective number of worker partitions.
func (h *Host) WorkerCount() int {
	return h.config.WorkerCount
}

// Partitions returns the worker partitions.
func (h *Host) Partitions() []*worker.Partition {
	return h.partitions
}

// Store returns the transition journal store.
func (h *Host) Store() store.TransitionStore {
	return h.config.Store
}

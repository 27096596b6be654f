// Package projections is the public entry point for running the projection subsystem.
//
// It builds a host.Host from functional options:
//
//	h, err := projections.New(
//	    projections.WithRunMode(projections.RunModeAll),
//	    projections.WithWorkerCount(4),
//	    projections.WithStandardProjections(true),
//	    projections.WithDatabase(db, sqlstore.DialectPostgres),
//	)
//	if err != nil {
//	    return err
//	}
//	go h.Run(ctx)
//	h.SystemReady()
//	h.SetRole(projections.NodeRoleLeader)
package projections

import (
	"database/sql"
	"fmt"
	"time"

	rootpkg "github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/host"
	"github.com/getpup/pupsourcing-projections/store"
	"github.com/getpup/pupsourcing-projections/store/sqlstore"
	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/pupsourcing/es/projection"
)

// Re-export core types from root package
type (
	// RunMode controls which projections a node executes.
	RunMode = rootpkg.RunMode

	// NodeRole is the cluster role of this node.
	NodeRole = rootpkg.NodeRole

	// SubsystemState is the lifecycle state of the subsystem.
	SubsystemState = rootpkg.SubsystemState

	// Host runs one projection subsystem in-process.
	Host = host.Host
)

// Re-export run modes and roles from root package
const (
	RunModeNone   = rootpkg.RunModeNone
	RunModeSystem = rootpkg.RunModeSystem
	RunModeAll    = rootpkg.RunModeAll

	NodeRoleUnknown  = rootpkg.NodeRoleUnknown
	NodeRoleLeader   = rootpkg.NodeRoleLeader
	NodeRoleFollower = rootpkg.NodeRoleFollower
)

// Option configures a Host.
type Option func(*config)

// config holds the internal configuration for creating a Host.
type config struct {
	runMode            RunMode
	workerCount        int
	standard           bool
	tickInterval       time.Duration
	checkpointInterval time.Duration
	projections        []projection.Projection
	store              store.TransitionStore
	db                 *sql.DB
	dialect            sqlstore.Dialect
	logger             es.Logger
	metricsEnabled     *bool
}

// New creates a new Host with the given options.
//
// Optional configuration (with defaults):
//   - WithRunMode: which projections run (default: RunModeNone)
//   - WithWorkerCount: worker partitions, only honoured with RunModeAll (default: 1)
//   - WithStandardProjections: enable the standard projections on first start (default: false)
//   - WithTickInterval: period of the regular timeout (default: 100ms)
//   - WithCheckpointInterval: how often projections checkpoint (default: 1s)
//   - WithProjections: projections registered with every partition (default: none)
//   - WithTransitionStore: custom journal store (default: in-memory)
//   - WithDatabase: SQL journal store on db, takes precedence over WithTransitionStore
//   - WithLogger: logger for observability (default: nil)
//   - WithMetricsEnabled: enable Prometheus metrics (default: true)
//
// Returns an error if an option holds an invalid value.
func New(opts ...Option) (*Host, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.workerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative: %d", cfg.workerCount)
	}
	if cfg.tickInterval < 0 {
		return nil, fmt.Errorf("tick interval must not be negative: %s", cfg.tickInterval)
	}
	if cfg.checkpointInterval < 0 {
		return nil, fmt.Errorf("checkpoint interval must not be negative: %s", cfg.checkpointInterval)
	}

	if cfg.db != nil {
		s, err := sqlstore.New(cfg.db, cfg.dialect)
		if err != nil {
			return nil, fmt.Errorf("failed to create transition store: %w", err)
		}
		cfg.store = s
	}

	return host.New(host.Config{
		RunMode:                  cfg.runMode,
		WorkerCount:              cfg.workerCount,
		StartStandardProjections: cfg.standard,
		TickInterval:             cfg.tickInterval,
		CheckpointInterval:       cfg.checkpointInterval,
		Projections:              cfg.projections,
		Store:                    cfg.store,
		Logger:                   cfg.logger,
		MetricsEnabled:           cfg.metricsEnabled,
	}), nil
}

// WithRunMode sets which projections the node executes.
func WithRunMode(mode RunMode) Option {
	return func(c *config) {
		c.runMode = mode
	}
}

// WithWorkerCount sets the number of worker partitions.
func WithWorkerCount(count int) Option {
	return func(c *config) {
		c.workerCount = count
	}
}

// WithStandardProjections enables the standard projections the first time the subsystem starts.
func WithStandardProjections(enabled bool) Option {
	return func(c *config) {
		c.standard = enabled
	}
}

// WithTickInterval sets the period of the regular timeout that drives partition timeouts.
func WithTickInterval(interval time.Duration) Option {
	return func(c *config) {
		c.tickInterval = interval
	}
}

// WithCheckpointInterval sets how often running projections checkpoint.
func WithCheckpointInterval(interval time.Duration) Option {
	return func(c *config) {
		c.checkpointInterval = interval
	}
}

// WithProjections registers projections with every partition's core service.
func WithProjections(projections ...projection.Projection) Option {
	return func(c *config) {
		c.projections = append(c.projections, projections...)
	}
}

// WithTransitionStore sets a custom transition journal store.
func WithTransitionStore(s store.TransitionStore) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithDatabase journals transitions to db using the given SQL dialect.
// The journal table must exist; see sqlstore.Store.Migrate and cmd/migrate-gen.
func WithDatabase(db *sql.DB, dialect sqlstore.Dialect) Option {
	return func(c *config) {
		c.db = db
		c.dialect = dialect
	}
}

// WithLogger sets the logger for observability.
func WithLogger(logger es.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetricsEnabled enables or disables Prometheus metrics collection.
func WithMetricsEnabled(enabled bool) Option {
	return func(c *config) {
		c.metricsEnabled = &enabled
	}
}

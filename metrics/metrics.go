package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubsystemState tracks the subsystem coordinator state (value 1 for current state, 0 otherwise).
var SubsystemState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "pupsourcing_projections_subsystem_state",
		Help: "Subsystem coordinator state (1 for current state, 0 otherwise)",
	},
	[]string{"subsystem", "state"},
)

// CoreState tracks the core coordinator state (value 1 for current state, 0 otherwise).
var CoreState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "pupsourcing_projections_core_state",
		Help: "Core coordinator state (1 for current state, 0 otherwise)",
	},
	[]string{"subsystem", "state"},
)

// SubsystemStartsTotal tracks the total number of start cycles begun.
var SubsystemStartsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_subsystem_starts_total",
		Help: "Total subsystem start cycles begun",
	},
	[]string{"subsystem"},
)

// SubsystemStopsTotal tracks the total number of stop cycles begun.
var SubsystemStopsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_subsystem_stops_total",
		Help: "Total subsystem stop cycles begun",
	},
	[]string{"subsystem"},
)

// SubsystemInitializedTotal tracks the total number of completed full starts.
var SubsystemInitializedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_subsystem_initialized_total",
		Help: "Total completed subsystem starts",
	},
	[]string{"subsystem"},
)

// RestartRequestsTotal tracks restart requests by result (accepted or rejected).
var RestartRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_restart_requests_total",
		Help: "Total subsystem restart requests by result",
	},
	[]string{"subsystem", "result"},
)

// SubComponentAcksTotal tracks sub-component acknowledgments by kind and event (started or stopped).
var SubComponentAcksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_subcomponent_acks_total",
		Help: "Total sub-component acknowledgments accepted",
	},
	[]string{"subsystem", "kind", "event"},
)

// StaleMessagesTotal tracks messages ignored because of a stale id or an unexpected state.
var StaleMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_stale_messages_total",
		Help: "Total messages ignored as stale or out of state",
	},
	[]string{"subsystem", "component", "message"},
)

// StandardProjectionsEnabledTotal tracks standard projections enabled on first start.
var StandardProjectionsEnabledTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_standard_projections_enabled_total",
		Help: "Total standard projections enabled",
	},
	[]string{"subsystem"},
)

// TimeoutTicksTotal tracks regular timeout ticks handled while started.
var TimeoutTicksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_timeout_ticks_total",
		Help: "Total regular timeout ticks pumped to partitions",
	},
	[]string{"subsystem"},
)

// JournalErrorsTotal tracks failures to persist subsystem transitions.
var JournalErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pupsourcing_projections_journal_errors_total",
		Help: "Total transition journal write failures",
	},
	[]string{"subsystem"},
)

// ConvergenceDuration tracks how long a start or stop cycle takes to converge.
var ConvergenceDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pupsourcing_projections_convergence_duration_seconds",
		Help:    "Time from issuing start or stop commands to the last acknowledgment",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"subsystem", "component", "transition"},
)

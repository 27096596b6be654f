package metrics

import "github.com/prometheus/client_golang/prometheus"

var subsystemStates = []string{"not_ready", "ready", "starting", "started", "stopping", "stopped"}

var coreStates = []string{"stopped", "starting", "started", "stopping"}

// Collector wraps metrics and provides helper methods with pre-filled labels.
// A nil *Collector is valid and records nothing.
type Collector struct {
	subsystem string
}

// NewCollector creates a new Collector for the given subsystem label.
func NewCollector(subsystem string) *Collector {
	return &Collector{subsystem: subsystem}
}

// SetSubsystemState sets the subsystem state gauge. Sets value to 1 for the given state, 0 for others.
func (c *Collector) SetSubsystemState(state string) {
	if c == nil {
		return
	}
	setOneHot(c.subsystem, state, subsystemStates, SubsystemState)
}

// SetCoreState sets the core state gauge. Sets value to 1 for the given state, 0 for others.
func (c *Collector) SetCoreState(state string) {
	if c == nil {
		return
	}
	setOneHot(c.subsystem, state, coreStates, CoreState)
}

// IncStarts increments the start cycles counter.
func (c *Collector) IncStarts() {
	if c == nil {
		return
	}
	SubsystemStartsTotal.WithLabelValues(c.subsystem).Inc()
}

// IncStops increments the stop cycles counter.
func (c *Collector) IncStops() {
	if c == nil {
		return
	}
	SubsystemStopsTotal.WithLabelValues(c.subsystem).Inc()
}

// IncInitialized increments the completed starts counter.
func (c *Collector) IncInitialized() {
	if c == nil {
		return
	}
	SubsystemInitializedTotal.WithLabelValues(c.subsystem).Inc()
}

// IncRestartRequests increments the restart requests counter for a result.
func (c *Collector) IncRestartRequests(accepted bool) {
	if c == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	RestartRequestsTotal.WithLabelValues(c.subsystem, result).Inc()
}

// IncSubComponentAck increments the acknowledgments counter for a sub-component kind and event.
func (c *Collector) IncSubComponentAck(kind string, event string) {
	if c == nil {
		return
	}
	SubComponentAcksTotal.WithLabelValues(c.subsystem, kind, event).Inc()
}

// IncStaleMessages increments the ignored messages counter for a component and message type.
func (c *Collector) IncStaleMessages(component string, message string) {
	if c == nil {
		return
	}
	StaleMessagesTotal.WithLabelValues(c.subsystem, component, message).Inc()
}

// AddStandardProjectionsEnabled adds to the standard projections enabled counter.
func (c *Collector) AddStandardProjectionsEnabled(count int) {
	if c == nil {
		return
	}
	StandardProjectionsEnabledTotal.WithLabelValues(c.subsystem).Add(float64(count))
}

// IncTimeoutTicks increments the timeout ticks counter.
func (c *Collector) IncTimeoutTicks() {
	if c == nil {
		return
	}
	TimeoutTicksTotal.WithLabelValues(c.subsystem).Inc()
}

// IncJournalErrors increments the journal errors counter.
func (c *Collector) IncJournalErrors() {
	if c == nil {
		return
	}
	JournalErrorsTotal.WithLabelValues(c.subsystem).Inc()
}

// ObserveConvergenceDuration records how long a component took to finish a start or stop.
func (c *Collector) ObserveConvergenceDuration(component string, transition string, seconds float64) {
	if c == nil {
		return
	}
	ConvergenceDuration.WithLabelValues(c.subsystem, component, transition).Observe(seconds)
}

func setOneHot(subsystem, state string, states []string, gauge *prometheus.GaugeVec) {
	for _, s := range states {
		if s == state {
			gauge.WithLabelValues(subsystem, s).Set(1)
		} else {
			gauge.WithLabelValues(subsystem, s).Set(0)
		}
	}
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSubsystemStartsTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(SubsystemStartsTotal.WithLabelValues("test-sub"))
	SubsystemStartsTotal.WithLabelValues("test-sub").Inc()
	after := testutil.ToFloat64(SubsystemStartsTotal.WithLabelValues("test-sub"))

	assert.Equal(t, before+1, after)
}

func TestSubsystemState_SetValue(t *testing.T) {
	SubsystemState.WithLabelValues("test-sub-2", "started").Set(1)
	value := testutil.ToFloat64(SubsystemState.WithLabelValues("test-sub-2", "started"))

	assert.Equal(t, float64(1), value)
}

func TestStaleMessagesTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(StaleMessagesTotal.WithLabelValues("test-sub-3", "core", "StopComponents"))
	StaleMessagesTotal.WithLabelValues("test-sub-3", "core", "StopComponents").Inc()
	after := testutil.ToFloat64(StaleMessagesTotal.WithLabelValues("test-sub-3", "core", "StopComponents"))

	assert.Equal(t, before+1, after)
}

func TestConvergenceDuration_Observe(t *testing.T) {
	ConvergenceDuration.WithLabelValues("test-sub-4", "core", "start").Observe(0.25)
	count := testutil.CollectAndCount(ConvergenceDuration)

	assert.Greater(t, count, 0)
}

package host

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/store/memory"
	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/pupsourcing/es/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProjection is a test projection
type mockProjection struct {
	name string
}

func (m *mockProjection) Name() string {
	return m.name
}

func (m *mockProjection) Handle(ctx context.Context, event es.PersistedEvent) error {
	return nil
}

func disabled() *bool {
	v := false
	return &v
}

// runHost starts h and returns a function that cancels it and waits for Run to return.
func runHost(t *testing.T, h *Host) func() error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	var once sync.Once
	var err error
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case err = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("host did not stop")
			}
		})
		return err
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func receive(t *testing.T, ch <-chan projections.Message) projections.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no reply received")
		return nil
	}
}

func TestNew_AppliesDefaultValues(t *testing.T) {
	h := New(Config{MetricsEnabled: disabled()})

	assert.Equal(t, 1, h.WorkerCount())
	assert.Equal(t, 100*time.Millisecond, h.config.TickInterval)
	assert.Equal(t, time.Second, h.config.CheckpointInterval)
	assert.IsType(t, &memory.Store{}, h.Store())
	assert.Equal(t, projections.SubsystemStateNotReady, h.State())
	assert.Nil(t, h.collector)
}

func TestNew_WorkerCount(t *testing.T) {
	t.Run("forced to one without all projections", func(t *testing.T) {
		for _, mode := range []projections.RunMode{projections.RunModeNone, projections.RunModeSystem} {
			h := New(Config{RunMode: mode, WorkerCount: 4, MetricsEnabled: disabled()})
			assert.Equal(t, 1, h.WorkerCount(), mode.String())
			assert.Len(t, h.Partitions(), 1)
		}
	})

	t.Run("kept with all projections", func(t *testing.T) {
		h := New(Config{RunMode: projections.RunModeAll, WorkerCount: 4, MetricsEnabled: disabled()})
		assert.Equal(t, 4, h.WorkerCount())
		assert.Len(t, h.Partitions(), 4)
	})
}

func TestNew_MetricsEnabledByDefault(t *testing.T) {
	h := New(Config{})
	assert.NotNil(t, h.collector)
}

func TestRun_ReturnsContextErrorAndRejectsSecondRun(t *testing.T) {
	h := New(Config{MetricsEnabled: disabled()})
	stop := runHost(t, h)

	assert.ErrorIs(t, stop(), context.Canceled)
	assert.ErrorIs(t, h.Run(context.Background()), ErrAlreadyRunning)
}

func TestHost_FullLifecycle(t *testing.T) {
	s := memory.New()
	h := New(Config{
		RunMode:                  projections.RunModeAll,
		WorkerCount:              3,
		StartStandardProjections: true,
		TickInterval:             2 * time.Millisecond,
		CheckpointInterval:       5 * time.Millisecond,
		Projections:              []projection.Projection{&mockProjection{name: "orders"}},
		Store:                    s,
		MetricsEnabled:           disabled(),
	})

	var initialized atomic.Int32
	h.Subscribe(projections.TypeSubsystemInitialized, bus.HandlerFunc(func(msg projections.Message) {
		initialized.Add(1)
	}))

	runHost(t, h)

	h.SystemReady()
	h.SetRole(projections.NodeRoleLeader)

	require.Eventually(t, func() bool {
		return h.State() == projections.SubsystemStateStarted && initialized.Load() == 1
	}, 5*time.Second, 5*time.Millisecond)

	for _, p := range h.Partitions() {
		assert.True(t, p.ReaderRunning())
		assert.True(t, p.CoreRunning())
	}

	assert.Eventually(t, func() bool {
		for _, p := range h.Partitions() {
			if p.Checkpoints()["orders"] == 0 {
				return false
			}
		}
		return true
	}, 5*time.Second, 5*time.Millisecond, "regular ticks drive partition checkpoints")

	t.Run("restart while started", func(t *testing.T) {
		reply := receive(t, h.Restart())
		assert.Equal(t, projections.SubsystemRestarting{}, reply)

		require.Eventually(t, func() bool {
			return h.State() == projections.SubsystemStateStarted && initialized.Load() == 2
		}, 5*time.Second, 5*time.Millisecond)
	})

	t.Run("losing leadership stops everything", func(t *testing.T) {
		h.SetRole(projections.NodeRoleFollower)

		require.Eventually(t, func() bool {
			return h.State() == projections.SubsystemStateStopped
		}, 5*time.Second, 5*time.Millisecond)

		for _, p := range h.Partitions() {
			assert.False(t, p.ReaderRunning())
			assert.False(t, p.CoreRunning())
		}

		reply := receive(t, h.Restart())
		assert.Equal(t, projections.InvalidSubsystemRestart{State: projections.SubsystemStateStopped}, reply)
	})

	t.Run("transitions are journaled", func(t *testing.T) {
		// ready, start, restart, stop
		require.Eventually(t, func() bool {
			return s.Len() == 1+2+4+2
		}, 5*time.Second, 5*time.Millisecond)

		latest, err := s.LatestTransition(context.Background())
		require.NoError(t, err)
		assert.Equal(t, projections.SubsystemStateStopping, latest.From)
		assert.Equal(t, projections.SubsystemStateStopped, latest.To)
	})
}

func TestHost_RestartBeforeReadyIsRejected(t *testing.T) {
	h := New(Config{MetricsEnabled: disabled()})
	runHost(t, h)

	reply := receive(t, h.Restart())

	assert.Equal(t, projections.InvalidSubsystemRestart{State: projections.SubsystemStateNotReady}, reply)
}

func TestHost_FollowerNeverStarts(t *testing.T) {
	h := New(Config{RunMode: projections.RunModeSystem, MetricsEnabled: disabled()})
	runHost(t, h)

	h.SetRole(projections.NodeRoleFollower)
	h.SystemReady()

	require.Eventually(t, func() bool {
		return h.State() == projections.SubsystemStateReady
	}, 5*time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, projections.SubsystemStateReady, h.State())
	assert.False(t, h.Partitions()[0].ReaderRunning())
}

package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/timer"
	"github.com/getpup/pupsourcing/es"
	"github.com/getpup/pupsourcing/es/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProjection is a simple test projection
type mockProjection struct {
	name        string
	handleCount int
	mu          sync.Mutex
}

func newMockProjection(name string) *mockProjection {
	return &mockProjection{name: name}
}

func (m *mockProjection) Name() string {
	return m.name
}

func (m *mockProjection) Handle(ctx context.Context, event es.PersistedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handleCount++
	return nil
}

func TestNew_AppliesDefaultCheckpointInterval(t *testing.T) {
	p := New(Config{})

	assert.Equal(t, time.Second, p.config.CheckpointInterval)
}

func TestNew_PreservesNonZeroCheckpointInterval(t *testing.T) {
	p := New(Config{CheckpointInterval: 5 * time.Second})

	assert.Equal(t, 5*time.Second, p.config.CheckpointInterval)
}

func TestPartition_ReaderLifecycle(t *testing.T) {
	reply := bus.NewRecorder()
	p := New(Config{Reply: reply})

	p.Handle(projections.StartReader{CorrelationID: "run-1"})
	p.Handle(projections.StartReader{CorrelationID: "run-1"})

	assert.True(t, p.ReaderRunning())
	assert.Equal(t, []projections.Message{
		projections.SubComponentStarted{Kind: projections.SubComponentReader, CorrelationID: "run-1"},
	}, reply.Messages())
	reply.Clear()

	p.Handle(projections.StopReader{StopToken: "token-0"})
	p.Handle(projections.StopReader{StopToken: "token-0"})

	assert.False(t, p.ReaderRunning())
	assert.Equal(t, []projections.Message{
		projections.SubComponentStopped{Kind: projections.SubComponentReader, StopToken: "token-0"},
	}, reply.Messages())
}

func TestPartition_TracksStartingCorrelation(t *testing.T) {
	p := New(Config{Reply: bus.NewRecorder()})
	assert.Empty(t, p.CorrelationID())

	p.Handle(projections.StartReader{CorrelationID: "run-1"})
	assert.Equal(t, projections.CorrelationID("run-1"), p.CorrelationID())

	p.Handle(projections.StartCore{CorrelationID: "run-1"})
	p.Handle(projections.StopCore{StopToken: "token-0"})
	p.Handle(projections.StopReader{StopToken: "token-0"})
	assert.Equal(t, projections.CorrelationID("run-1"), p.CorrelationID(), "kept for stop logs")

	p.Handle(projections.StartReader{CorrelationID: "run-2"})
	assert.Equal(t, projections.CorrelationID("run-2"), p.CorrelationID())
}

func TestPartition_CoreLifecycle(t *testing.T) {
	reply := bus.NewRecorder()
	p := New(Config{Reply: reply})

	p.Handle(projections.StartCore{CorrelationID: "run-1"})

	assert.True(t, p.CoreRunning())
	assert.Equal(t, []projections.Message{
		projections.SubComponentStarted{Kind: projections.SubComponentCoreService, CorrelationID: "run-1"},
		projections.SubComponentStarted{Kind: projections.SubComponentCommandReader, CorrelationID: "run-1"},
	}, reply.Messages())
	reply.Clear()

	p.Handle(projections.StopCore{StopToken: "token-0"})
	p.Handle(projections.StopCore{StopToken: "token-0"})

	assert.False(t, p.CoreRunning())
	assert.Equal(t, []projections.Message{
		projections.SubComponentStopped{Kind: projections.SubComponentCommandReader, StopToken: "token-0"},
		projections.SubComponentStopped{Kind: projections.SubComponentCoreService, StopToken: "token-0"},
	}, reply.Messages())
}

func TestPartition_CheckpointsOnlyWhileCoreRuns(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timeouts := timer.NewTimeoutScheduler(func() time.Time { return now })
	var p *Partition
	inbox := projections.PublisherFunc(func(msg projections.Message) { p.Handle(msg) })
	p = New(Config{
		Reply:              bus.NewRecorder(),
		Inbox:              inbox,
		Timeouts:           timeouts,
		Projections:        []projection.Projection{newMockProjection("orders"), newMockProjection("users")},
		CheckpointInterval: time.Second,
	})

	p.Handle(projections.StartCore{CorrelationID: "run-1"})
	require.Equal(t, 1, timeouts.Pending())

	assert.Equal(t, 0, timeouts.Tick(), "not due yet")

	now = now.Add(time.Second)
	assert.Equal(t, 1, timeouts.Tick())
	assert.Equal(t, map[string]int{"orders": 1, "users": 1}, p.Checkpoints())
	assert.Equal(t, 1, timeouts.Pending(), "next checkpoint armed")

	p.Handle(projections.StopCore{StopToken: "token-0"})
	now = now.Add(time.Second)
	timeouts.Tick()

	assert.Equal(t, map[string]int{"orders": 1, "users": 1}, p.Checkpoints())
	assert.Equal(t, 0, timeouts.Pending())
}

func TestPartition_StaleCheckpointFromEarlierGenerationIgnored(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timeouts := timer.NewTimeoutScheduler(func() time.Time { return now })
	var p *Partition
	inbox := projections.PublisherFunc(func(msg projections.Message) { p.Handle(msg) })
	p = New(Config{
		Reply:       bus.NewRecorder(),
		Inbox:       inbox,
		Timeouts:    timeouts,
		Projections: []projection.Projection{newMockProjection("orders")},
	})

	p.Handle(projections.StartCore{CorrelationID: "run-1"})
	p.Handle(projections.StopCore{StopToken: "token-0"})
	p.Handle(projections.StartCore{CorrelationID: "run-2"})
	require.Equal(t, 2, timeouts.Pending())

	now = now.Add(time.Second)
	timeouts.Tick()

	assert.Equal(t, map[string]int{"orders": 1}, p.Checkpoints())
}

func TestPartition_NoProjectionsSchedulesNothing(t *testing.T) {
	timeouts := timer.NewTimeoutScheduler(nil)
	p := New(Config{Reply: bus.NewRecorder(), Inbox: bus.NewRecorder(), Timeouts: timeouts})

	p.Handle(projections.StartCore{CorrelationID: "run-1"})

	assert.Equal(t, 0, timeouts.Pending())
}

func TestPartition_SetupMessaging(t *testing.T) {
	reply := bus.NewRecorder()
	p := New(Config{Reply: reply})
	b := bus.NewInMemoryBus("partition-0")
	p.SetupMessaging(b)

	b.Publish(projections.StartReader{CorrelationID: "run-1"})
	b.Publish(projections.StartCore{CorrelationID: "run-1"})

	assert.True(t, p.ReaderRunning())
	assert.True(t, p.CoreRunning())
	assert.Equal(t, 3, reply.Len())
}

package timer

import (
	"sync"
	"time"

	"github.com/getpup/pupsourcing-projections"
)

// MockScheduler is a Scheduler for tests. It records schedules and delivers
// them only when Fire is called.
type MockScheduler struct {
	mu sync.Mutex

	// ScheduleFunc is called by Schedule if set.
	ScheduleFunc func(after time.Duration, dest projections.Publisher, msg projections.Message)

	ScheduleCalls []ScheduleCall
}

// ScheduleCall records the parameters of a single Schedule call.
type ScheduleCall struct {
	After   time.Duration
	Dest    projections.Publisher
	Message projections.Message
}

// Compile-time check that MockScheduler implements Scheduler.
var _ Scheduler = (*MockScheduler)(nil)

// NewMockScheduler creates a new MockScheduler with an empty call history.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		ScheduleCalls: make([]ScheduleCall, 0),
	}
}

// Schedule implements the Scheduler interface.
func (m *MockScheduler) Schedule(after time.Duration, dest projections.Publisher, msg projections.Message) {
	m.mu.Lock()
	m.ScheduleCalls = append(m.ScheduleCalls, ScheduleCall{After: after, Dest: dest, Message: msg})
	m.mu.Unlock()

	if m.ScheduleFunc != nil {
		m.ScheduleFunc(after, dest, msg)
	}
}

// Calls returns a copy of the call history.
func (m *MockScheduler) Calls() []ScheduleCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ScheduleCall, len(m.ScheduleCalls))
	copy(out, m.ScheduleCalls)
	return out
}

// Fire delivers every recorded schedule to its destination and clears the history.
// Returns the number of messages delivered.
func (m *MockScheduler) Fire() int {
	m.mu.Lock()
	calls := m.ScheduleCalls
	m.ScheduleCalls = make([]ScheduleCall, 0)
	m.mu.Unlock()

	for _, call := range calls {
		call.Dest.Publish(call.Message)
	}
	return len(calls)
}

// Reset clears the call history.
func (m *MockScheduler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScheduleCalls = make([]ScheduleCall, 0)
}

package timer

import (
	"container/heap"
	"sync"
	"time"
)

// TimeoutScheduler holds partition-local timeouts that fire only when Tick is called.
// It is safe for concurrent use: the owning worker schedules while the core
// coordinator ticks.
type TimeoutScheduler struct {
	mu      sync.Mutex
	now     func() time.Time
	pending timeoutHeap
	seq     uint64
}

// NewTimeoutScheduler creates an empty scheduler. A nil now uses time.Now.
func NewTimeoutScheduler(now func() time.Time) *TimeoutScheduler {
	if now == nil {
		now = time.Now
	}
	return &TimeoutScheduler{now: now}
}

// Schedule registers fn to run on the first Tick at or after the delay.
func (s *TimeoutScheduler) Schedule(after time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	heap.Push(&s.pending, &timeout{
		deadline: s.now().Add(after),
		seq:      s.seq,
		fn:       fn,
	})
}

// Tick runs every expired timeout in deadline order and returns how many ran.
// Callbacks run without the lock held and may schedule new timeouts, which fire
// no earlier than the next Tick.
func (s *TimeoutScheduler) Tick() int {
	s.mu.Lock()
	now := s.now()
	var due []*timeout
	for s.pending.Len() > 0 && !s.pending[0].deadline.After(now) {
		due = append(due, heap.Pop(&s.pending).(*timeout))
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// Pending returns the number of timeouts not yet fired.
func (s *TimeoutScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

type timeout struct {
	deadline time.Time
	seq      uint64
	fn       func()
}

// timeoutHeap orders by deadline, then by scheduling order.
type timeoutHeap []*timeout

func (h timeoutHeap) Len() int { return len(h) }

func (h timeoutHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timeoutHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timeoutHeap) Push(x any) { *h = append(*h, x.(*timeout)) }

func (h *timeoutHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

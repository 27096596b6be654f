package bus

import (
	"context"
	"sync"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing/es"
)

// QueueConfig configures a QueuedHandler.
type QueueConfig struct {
	// Logger is for observability (optional).
	Logger es.Logger
}

// QueuedHandler serialises messages to a single handler on a dedicated goroutine.
// Publish appends to an unbounded queue and returns immediately, so a handler may
// publish to its own queue without deadlocking. Messages from one publisher are
// handled in publish order.
type QueuedHandler struct {
	name    string
	handler Handler
	config  QueueConfig

	mu      sync.Mutex
	pending []projections.Message
	stopped bool
	handled uint64

	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// Compile-time check that QueuedHandler implements Publisher.
var _ projections.Publisher = (*QueuedHandler)(nil)

// NewQueuedHandler creates a queue in front of h. Call Start to begin handling.
func NewQueuedHandler(name string, h Handler, cfg QueueConfig) *QueuedHandler {
	return &QueuedHandler{
		name:    name,
		handler: h,
		config:  cfg,
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Name returns the queue name.
func (q *QueuedHandler) Name() string {
	return q.name
}

// Publish enqueues msg. Messages published after Stop are dropped.
func (q *QueuedHandler) Publish(msg projections.Message) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		if q.config.Logger != nil {
			q.config.Logger.Debug(context.Background(), "message dropped by stopped queue",
				"queue", q.name, "messageType", msg.MessageType())
		}
		return
	}
	q.pending = append(q.pending, msg)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Start runs the message loop in a new goroutine until ctx is cancelled or Stop is called.
// Calling Start more than once has no effect.
func (q *QueuedHandler) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		go q.loop(ctx)
	})
}

// Stop stops accepting messages and waits for the loop to exit if it was started.
// Messages still queued are discarded.
func (q *QueuedHandler) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		close(q.stop)
	})

	started := true
	q.startOnce.Do(func() {
		started = false
		close(q.done)
	})
	if started {
		<-q.done
	}
}

// Len returns the number of queued messages not yet handled.
func (q *QueuedHandler) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Handled returns the number of messages handled so far.
func (q *QueuedHandler) Handled() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handled
}

func (q *QueuedHandler) loop(ctx context.Context) {
	defer close(q.done)

	if q.config.Logger != nil {
		q.config.Logger.Debug(ctx, "queue started", "queue", q.name)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case <-q.signal:
		}

		for {
			msg, ok := q.next()
			if !ok {
				break
			}
			q.handler.Handle(msg)

			q.mu.Lock()
			q.handled++
			q.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (q *QueuedHandler) next() (projections.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped || len(q.pending) == 0 {
		return nil, false
	}
	msg := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return msg, true
}

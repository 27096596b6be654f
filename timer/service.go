// Package timer provides delayed message delivery and partition-local timeout scheduling.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing/es"
)

// Scheduler delivers a message to a destination after a delay.
type Scheduler interface {
	Schedule(after time.Duration, dest projections.Publisher, msg projections.Message)
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Logger is for observability (optional).
	Logger es.Logger
}

// Service is a Scheduler backed by runtime timers.
type Service struct {
	config  ServiceConfig
	mu      sync.Mutex
	nextID  uint64
	timers  map[uint64]*time.Timer
	stopped bool
}

// Compile-time check that Service implements Scheduler.
var _ Scheduler = (*Service)(nil)

// NewService creates a timer service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		config: cfg,
		timers: make(map[uint64]*time.Timer),
	}
}

// Schedule publishes msg to dest once after has elapsed.
// Schedules made after Stop are ignored.
func (s *Service) Schedule(after time.Duration, dest projections.Publisher, msg projections.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		if s.config.Logger != nil {
			s.config.Logger.Debug(context.Background(), "timer service stopped, schedule ignored",
				"messageType", msg.MessageType())
		}
		return
	}

	id := s.nextID
	s.nextID++
	// The callback cannot observe the map before the insert below because it takes the same lock.
	s.timers[id] = time.AfterFunc(after, func() {
		s.mu.Lock()
		delete(s.timers, id)
		stopped := s.stopped
		s.mu.Unlock()

		if !stopped {
			dest.Publish(msg)
		}
	})
}

// Pending returns the number of scheduled messages not yet delivered.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every outstanding timer. The service cannot be restarted.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

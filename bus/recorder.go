package bus

import (
	"sync"

	"github.com/getpup/pupsourcing-projections"
)

// Recorder is a Publisher that records every published message.
// It is safe for concurrent use.
type Recorder struct {
	mu       sync.RWMutex
	messages []projections.Message
}

// Compile-time check that Recorder implements Publisher.
var _ projections.Publisher = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records msg.
func (r *Recorder) Publish(msg projections.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
}

// Handle records msg, so a recorder can subscribe to a bus.
func (r *Recorder) Handle(msg projections.Message) {
	r.Publish(msg)
}

// Messages returns a copy of the recorded messages in publish order.
func (r *Recorder) Messages() []projections.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]projections.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of recorded messages.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages)
}

// Clear forgets all recorded messages.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// OfType returns the recorded messages of type T in publish order.
func OfType[T projections.Message](r *Recorder) []T {
	var out []T
	for _, msg := range r.Messages() {
		if typed, ok := msg.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

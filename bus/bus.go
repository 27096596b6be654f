package bus

import (
	"sync"

	"github.com/getpup/pupsourcing-projections"
)

// Handler handles a single message.
type Handler interface {
	Handle(msg projections.Message)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(msg projections.Message)

// Handle calls f(msg).
func (f HandlerFunc) Handle(msg projections.Message) {
	f(msg)
}

// InMemoryBus dispatches published messages synchronously to subscribed handlers.
// Handlers for a message type are invoked in subscription order, followed by
// catch-all handlers.
type InMemoryBus struct {
	name     string
	mu       sync.RWMutex
	handlers map[string][]Handler // messageType -> handlers
	all      []Handler
}

// Compile-time check that InMemoryBus implements Publisher.
var _ projections.Publisher = (*InMemoryBus)(nil)

// NewInMemoryBus creates an empty bus with the given name.
func NewInMemoryBus(name string) *InMemoryBus {
	return &InMemoryBus{
		name:     name,
		handlers: make(map[string][]Handler),
	}
}

// Name returns the bus name.
func (b *InMemoryBus) Name() string {
	return b.name
}

// Subscribe registers h for messages whose MessageType equals msgType.
func (b *InMemoryBus) Subscribe(msgType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[msgType] = append(b.handlers[msgType], h)
}

// SubscribeAll registers h for every message published on the bus.
func (b *InMemoryBus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.all = append(b.all, h)
}

// Publish delivers msg to every matching handler before returning.
func (b *InMemoryBus) Publish(msg projections.Message) {
	b.mu.RLock()
	typed := b.handlers[msg.MessageType()]
	targets := make([]Handler, 0, len(typed)+len(b.all))
	targets = append(targets, typed...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	for _, h := range targets {
		h.Handle(msg)
	}
}

// Handle lets a bus be the handler of a QueuedHandler.
func (b *InMemoryBus) Handle(msg projections.Message) {
	b.Publish(msg)
}

// Package bus provides the in-process message plumbing used by the projection subsystem.
//
// An InMemoryBus dispatches a published message synchronously to every handler subscribed
// to its type. A QueuedHandler turns any handler into a single-threaded message loop: messages
// are appended to an unbounded queue and handled one at a time on a dedicated goroutine, so the
// handler never needs locks and publishers never block. A Recorder captures published messages
// for assertions in tests.
package bus

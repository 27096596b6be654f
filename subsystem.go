package projections

import "context"

// Subsystem runs the projection subsystem of a node.
// It reacts to node readiness and cluster role changes, starting the projection
// components while the node is leader and stopping them when it is not.
type Subsystem interface {
	// Run starts the message loops of the subsystem.
	// It blocks until ctx is cancelled and returns ctx.Err() once every loop has stopped.
	Run(ctx context.Context) error

	// SystemReady delivers the one-time node readiness signal.
	SystemReady()

	// SetRole delivers a cluster role change.
	SetRole(role NodeRole)

	// Restart requests a full stop and start cycle.
	// The returned channel receives SubsystemRestarting or InvalidSubsystemRestart.
	Restart() <-chan Message
}

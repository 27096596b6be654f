package projections

import "errors"

var (
	// ErrAlreadyStarted indicates a start sequence was invoked while one is already active.
	// The coordinators guard against this, so seeing it means a state machine invariant broke.
	ErrAlreadyStarted = errors.New("already started")

	// ErrUnknownRunMode indicates a run mode name could not be parsed.
	ErrUnknownRunMode = errors.New("unknown run mode")

	// ErrUnknownNodeRole indicates a node role name could not be parsed.
	ErrUnknownNodeRole = errors.New("unknown node role")

	// ErrTransitionNotFound indicates no subsystem transition has been recorded.
	ErrTransitionNotFound = errors.New("transition not found")
)

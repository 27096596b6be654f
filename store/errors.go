package store

import "errors"

var (
	// ErrInvalidTransition indicates a transition without a target state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnknownDialect indicates an unsupported SQL dialect.
	ErrUnknownDialect = errors.New("unknown sql dialect")
)

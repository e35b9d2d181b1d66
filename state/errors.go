package state

import "errors"

var (
	// ErrInvalidArgument is returned when a caller passes an argument that can never be valid,
	// such as an empty parent list or a negative counter increment.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInconsistentState is returned when externally supplied state (trust, metrics, counters)
	// falls outside its valid bounds.
	ErrInconsistentState = errors.New("inconsistent state")
)

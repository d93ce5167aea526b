// Package server defines the recoverable error kinds that chat operations
// report back to the offending connection as error events.
package server

// ValidationError reports a missing or empty required field in a client event.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ConflictError reports a username collision within a room.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// NotFoundError reports a lookup that resolved to no active user or room.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

// StateError reports an operation that is invalid for the connection's
// current lifecycle state, such as joining twice.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return e.Reason }

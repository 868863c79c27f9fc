package store

import "fmt"

// ReadError means the state exists but could not be read or decoded.
// Callers treat it as "no prior state".
type ReadError struct {
	Backend string
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s state: %v", e.Backend, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError means the new identifier could not be persisted.
type WriteError struct {
	Backend string
	ID      string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s state (id=%s): %v", e.Backend, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

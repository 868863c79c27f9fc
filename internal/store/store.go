// Package store persists the identifier of the last bookmark that was
// announced. Exactly one value is kept; there is no history.
package store

import "context"

// Store is the durable last-seen state. Only the poller writes to it.
type Store interface {
	// Load returns the stored identifier. ok is false when nothing was
	// ever saved. Any other failure is a *ReadError.
	Load(ctx context.Context) (id string, ok bool, err error)

	// Save atomically replaces the stored identifier. Failures are a
	// *WriteError.
	Save(ctx context.Context, id string) error

	// Backend names the implementation for logs and /status.
	Backend() string

	Close() error
}

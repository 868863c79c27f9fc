package notifier

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelUnresolved means the stream session is not connected yet or
	// the target channel is not visible to it.
	ErrChannelUnresolved = errors.New("target channel not resolvable")

	// ErrCircuitOpen means the sink's breaker is rejecting calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrNotifierPanic is reported for a sink whose Notify panicked.
	ErrNotifierPanic = errors.New("notifier panicked")
)

// APIError is a rejection reported by a sink's API.
type APIError struct {
	Sink   string
	Code   string // platform error code, ex: "channel_not_found"
	Status int    // HTTP status, 0 when unknown
	Err    error
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Status != 0:
		return fmt.Sprintf("%s api error: status %d: %s", e.Sink, e.Status, e.Code)
	case e.Code != "":
		return fmt.Sprintf("%s api error: %s", e.Sink, e.Code)
	default:
		return fmt.Sprintf("%s api error: status %d", e.Sink, e.Status)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// statusOf classifies err for metrics.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrChannelUnresolved):
		return "unresolved"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrNotifierPanic):
		return "panic"
	default:
		return "failure"
	}
}

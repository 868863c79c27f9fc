// Package notifier delivers a bookmark message to the chat sinks. Each
// sink is independent: one failing never stops or delays another beyond
// its own timeout.
package notifier

import (
	"context"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
)

// Sink names, used as log fields and metric labels.
const (
	SinkDiscord = "discord"
	SinkSlack   = "slack"
)

// Notifier delivers one message to one sink. Implementations must be safe
// for concurrent use and must return, not panic, on delivery failure.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg domain.Message) error
}

// StreamSession is the read-only view of a persistent chat session that
// the stream notifier needs. The session's lifecycle belongs elsewhere.
type StreamSession interface {
	Ready() bool
	HasChannel(channelID int64) bool
	Send(ctx context.Context, channelID int64, text string) error
}

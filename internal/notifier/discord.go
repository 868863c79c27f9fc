package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
)

// StreamNotifier posts to a Discord channel through a shared gateway
// session. It never connects on its own.
type StreamNotifier struct {
	session   StreamSession
	channelID int64
}

func NewStreamNotifier(session StreamSession, channelID int64) *StreamNotifier {
	return &StreamNotifier{session: session, channelID: channelID}
}

func (n *StreamNotifier) Name() string { return SinkDiscord }

func (n *StreamNotifier) Notify(ctx context.Context, msg domain.Message) error {
	if !n.session.Ready() {
		return fmt.Errorf("%w: session not ready", ErrChannelUnresolved)
	}
	if !n.session.HasChannel(n.channelID) {
		return fmt.Errorf("%w: channel %d not found", ErrChannelUnresolved, n.channelID)
	}

	if err := n.session.Send(ctx, n.channelID, RenderDiscord(msg)); err != nil {
		return toAPIError(SinkDiscord, err)
	}
	return nil
}

// toAPIError keeps context and transport errors as they are and turns
// anything carrying an HTTP status into an *APIError.
func toAPIError(sink string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s send: %w", sink, err)
	}

	var st interface{ HTTPStatus() int }
	if !errors.As(err, &st) {
		return fmt.Errorf("%s send: %w", sink, err)
	}

	apiErr := &APIError{Sink: sink, Status: st.HTTPStatus(), Err: err}
	var coded interface{ APICode() string }
	if errors.As(err, &coded) {
		apiErr.Code = coded.APICode()
	}
	return apiErr
}

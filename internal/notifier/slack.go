package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
)

// WebhookNotifier posts each message with one chat.postMessage call.
type WebhookNotifier struct {
	client  *slack.Client
	channel string
}

// NewWebhookNotifier builds a Slack notifier. apiURL overrides the Web API
// base when non-empty.
func NewWebhookNotifier(token, channel, apiURL string, timeout time.Duration) *WebhookNotifier {
	opts := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: timeout}),
	}
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(apiURL, "/")+"/"))
	}
	return &WebhookNotifier{
		client:  slack.New(token, opts...),
		channel: channel,
	}
}

func (n *WebhookNotifier) Name() string { return SinkSlack }

func (n *WebhookNotifier) Notify(ctx context.Context, msg domain.Message) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(RenderSlack(msg), false))
	if err != nil {
		return slackError(err)
	}
	return nil
}

// slackError maps slack-go's error values onto *APIError. An ok:false
// response arrives with HTTP 200.
func slackError(err error) error {
	var resp slack.SlackErrorResponse
	if errors.As(err, &resp) {
		return &APIError{Sink: SinkSlack, Code: resp.Err, Status: http.StatusOK, Err: err}
	}

	var status slack.StatusCodeError
	if errors.As(err, &status) {
		return &APIError{Sink: SinkSlack, Status: status.Code, Err: err}
	}

	var limited *slack.RateLimitedError
	if errors.As(err, &limited) {
		return &APIError{Sink: SinkSlack, Code: "ratelimited", Status: http.StatusTooManyRequests, Err: err}
	}

	return fmt.Errorf("%s send: %w", SinkSlack, err)
}

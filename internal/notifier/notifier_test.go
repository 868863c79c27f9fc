package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
)

func paperMessage() domain.Message {
	return domain.NewMessage(&domain.Bookmark{
		ID:          "42",
		Title:       "Paper",
		URL:         "http://x",
		Tags:        []string{"ai", "read"},
		Description: "A paper",
	})
}

// ─────────────────────────────
// Rendering
// ─────────────────────────────

func TestRenderDiscord(t *testing.T) {
	want := "**New Bookmark Added!**\n\n" +
		"**Title**: Paper\n" +
		"**Link**: http://x\n" +
		"**Tags**: ai, read\n" +
		"**Description**: A paper"
	assert.Equal(t, want, RenderDiscord(paperMessage()))
}

func TestRenderSlack(t *testing.T) {
	want := "*New Bookmark Added!*\n\n" +
		"*Title*: Paper\n" +
		"*Link*: http://x\n" +
		"*Tags*: ai, read\n" +
		"*Description*: A paper"
	assert.Equal(t, want, RenderSlack(paperMessage()))
}

func TestRenderPlaceholders(t *testing.T) {
	msg := domain.NewMessage(&domain.Bookmark{
		ID: "1", Title: domain.NoTitle, URL: domain.NoLink, Description: domain.NoDescription,
	})
	assert.Equal(t,
		"*New Bookmark Added!*\n\n*Title*: No title\n*Link*: No link\n*Tags*: No tags\n*Description*: No description",
		RenderSlack(msg))
}

// ─────────────────────────────
// Stream notifier
// ─────────────────────────────

type fakeSession struct {
	mu       sync.Mutex
	ready    bool
	channels map[int64]bool
	sendErr  error
	sent     []string
}

func (f *fakeSession) Ready() bool { return f.ready }

func (f *fakeSession) HasChannel(id int64) bool { return f.channels[id] }

func (f *fakeSession) Send(_ context.Context, id int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

type statusErr struct {
	status int
	code   string
}

func (e statusErr) Error() string   { return "rejected" }
func (e statusErr) HTTPStatus() int { return e.status }
func (e statusErr) APICode() string { return e.code }

func TestStreamNotifierSends(t *testing.T) {
	s := &fakeSession{ready: true, channels: map[int64]bool{987: true}}
	n := NewStreamNotifier(s, 987)

	require.NoError(t, n.Notify(context.Background(), paperMessage()))
	require.Len(t, s.sent, 1)
	assert.Contains(t, s.sent[0], "**Title**: Paper")
	assert.Equal(t, SinkDiscord, n.Name())
}

func TestStreamNotifierUnresolved(t *testing.T) {
	tests := []struct {
		name    string
		session *fakeSession
	}{
		{name: "not ready", session: &fakeSession{ready: false, channels: map[int64]bool{987: true}}},
		{name: "unknown channel", session: &fakeSession{ready: true, channels: map[int64]bool{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStreamNotifier(tt.session, 987).Notify(context.Background(), paperMessage())
			assert.ErrorIs(t, err, ErrChannelUnresolved)
			assert.Empty(t, tt.session.sent)
		})
	}
}

func TestStreamNotifierAPIError(t *testing.T) {
	s := &fakeSession{ready: true, channels: map[int64]bool{987: true}, sendErr: statusErr{status: 403, code: "50013"}}

	err := NewStreamNotifier(s, 987).Notify(context.Background(), paperMessage())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, SinkDiscord, apiErr.Sink)
	assert.Equal(t, 403, apiErr.Status)
	assert.Equal(t, "50013", apiErr.Code)
}

func TestStreamNotifierTransportError(t *testing.T) {
	s := &fakeSession{ready: true, channels: map[int64]bool{987: true}, sendErr: errors.New("connection reset")}

	err := NewStreamNotifier(s, 987).Notify(context.Background(), paperMessage())

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.ErrorContains(t, err, "connection reset")
}

// ─────────────────────────────
// Webhook notifier
// ─────────────────────────────

type slackCall struct {
	channel string
	text    string
}

func slackServer(t *testing.T, status int, body string) (*httptest.Server, *[]slackCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []slackCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		_ = r.ParseForm()
		mu.Lock()
		calls = append(calls, slackCall{channel: r.FormValue("channel"), text: r.FormValue("text")})
		mu.Unlock()
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestWebhookNotifierSends(t *testing.T) {
	srv, calls := slackServer(t, http.StatusOK, `{"ok":true,"channel":"C123","ts":"1700000000.000100"}`)
	n := NewWebhookNotifier("xoxb-test", "C123", srv.URL, time.Second)

	require.NoError(t, n.Notify(context.Background(), paperMessage()))
	require.Len(t, *calls, 1)
	assert.Equal(t, "C123", (*calls)[0].channel)
	assert.Equal(t, RenderSlack(paperMessage()), (*calls)[0].text)
	assert.Equal(t, SinkSlack, n.Name())
}

func TestWebhookNotifierErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "api error", status: http.StatusOK, body: `{"ok":false,"error":"channel_not_found"}`, wantStatus: 200, wantCode: "channel_not_found"},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantStatus: 500},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"ok":false,"error":"ratelimited"}`, wantStatus: 429, wantCode: "ratelimited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := slackServer(t, tt.status, tt.body)
			n := NewWebhookNotifier("xoxb-test", "C123", srv.URL, time.Second)

			err := n.Notify(context.Background(), paperMessage())

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, SinkSlack, apiErr.Sink)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "slack api error: status 200: channel_not_found",
		(&APIError{Sink: "slack", Status: 200, Code: "channel_not_found"}).Error())
	assert.Equal(t, "discord api error: status 502",
		(&APIError{Sink: "discord", Status: 502}).Error())
	assert.Equal(t, "slack api error: invalid_auth",
		(&APIError{Sink: "slack", Code: "invalid_auth"}).Error())
}

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dropwatch/internal/index"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
	"github.com/MrSnakeDoc/dropwatch/internal/notifier"
	"github.com/MrSnakeDoc/dropwatch/internal/scheduler"
	"github.com/MrSnakeDoc/dropwatch/internal/sources/raindrop"
	"github.com/MrSnakeDoc/dropwatch/internal/store/file"
)

const latestPaper = `{"result":true,"items":[{"_id":42,"title":"Paper","link":"http://x","tags":["ai","read"],"excerpt":"A paper"}]}`

// offlineSession is a Discord session whose gateway never came up.
type offlineSession struct{}

func (offlineSession) Ready() bool                               { return false }
func (offlineSession) HasChannel(int64) bool                     { return false }
func (offlineSession) Send(context.Context, int64, string) error { return nil }

func TestPipelineEndToEnd(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/raindrops/0", r.URL.Path)
		assert.Equal(t, "Bearer rd-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(latestPaper))
	}))
	defer source.Close()

	var (
		mu    sync.Mutex
		texts []string
	)
	slackAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		texts = append(texts, r.FormValue("text"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.0"}`))
	}))
	defer slackAPI.Close()

	log := logger.Nop()
	statePath := filepath.Join(t.TempDir(), "last_bookmark_id.txt")
	guard := notifier.DefaultGuardSettings()

	history := index.NewMemoryIndex(10)
	p := scheduler.NewPoller(
		raindrop.New(source.URL, "rd-token", time.Second),
		file.New(statePath),
		notifier.NewDispatcher(time.Second, log,
			notifier.NewGuard(notifier.NewStreamNotifier(offlineSession{}, 7), guard, log),
			notifier.NewGuard(notifier.NewWebhookNotifier("xoxb", "C1", slackAPI.URL, time.Second), guard, log),
		),
		history,
		log,
		time.Minute,
		nil,
	)

	ctx := context.Background()
	rec, ran := p.RunOnce(ctx, scheduler.TriggerManual)
	require.True(t, ran)
	assert.Equal(t, "notified", rec.Outcome)
	assert.Equal(t, "42", rec.BookmarkID)

	statuses := map[string]string{}
	for _, d := range rec.Deliveries {
		statuses[d.Sink] = d.Status
	}
	assert.Equal(t, map[string]string{notifier.SinkDiscord: "unresolved", notifier.SinkSlack: "success"}, statuses)

	raw, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Equal(t, "42", string(raw))

	// Same item again: nothing is sent.
	rec, _ = p.RunOnce(ctx, scheduler.TriggerManual)
	assert.Equal(t, "unchanged", rec.Outcome)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "*Title*: Paper")
	assert.Contains(t, texts[0], "*Link*: http://x")
	assert.Contains(t, texts[0], "*Tags*: ai, read")
	assert.Contains(t, texts[0], "*Description*: A paper")

	b, _, ok := history.LastNotified()
	require.True(t, ok)
	assert.Equal(t, "Paper", b.Title)
}

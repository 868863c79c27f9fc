package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dropwatch/internal/index"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePoller struct {
	busy bool
	last time.Time
}

func (f fakePoller) Busy() bool              { return f.busy }
func (f fakePoller) Interval() time.Duration { return 10 * time.Second }
func (f fakePoller) LastCycleAt() time.Time  { return f.last }

type fakeSink struct{ name, state string }

func (f fakeSink) Name() string  { return f.name }
func (f fakeSink) State() string { return f.state }

func baseDeps() deps.Deps {
	return deps.Deps{
		Logger:    logger.Nop(),
		StartTime: epoch,
		Version:   "v1.2.3",
		Commit:    "abc123",
		TimeNow:   func() time.Time { return epoch.Add(90 * time.Second) },
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(baseDeps())(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthzResponse
	decode(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "v1.2.3", body.Version)
	assert.Equal(t, "abc123", body.Commit)
	assert.InDelta(t, 90.0, body.UptimeSeconds, 0.001)
}

func TestReadyz(t *testing.T) {
	ok := deps.Probe{Name: "state", Check: func(context.Context) error { return nil }}
	bad := deps.Probe{Name: "discord", Check: func(context.Context) error { return errors.New("gateway not ready") }}

	tests := []struct {
		name   string
		probes []deps.Probe
		code   int
		checks map[string]string
	}{
		{"no probes", nil, http.StatusOK, nil},
		{"all ok", []deps.Probe{ok}, http.StatusOK, map[string]string{"state": "ok"}},
		{"one failing", []deps.Probe{ok, bad}, http.StatusServiceUnavailable,
			map[string]string{"state": "ok", "discord": "gateway not ready"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := baseDeps()
			d.Probes = tt.probes

			rec := httptest.NewRecorder()
			Readyz(d)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body readyzResponse
			decode(t, rec, &body)
			assert.Equal(t, tt.code == http.StatusOK, body.Ready)
			if tt.checks == nil {
				assert.Empty(t, body.Checks)
			} else {
				assert.Equal(t, tt.checks, body.Checks)
			}
		})
	}
}

func TestReadyzProbeSeesDeadline(t *testing.T) {
	d := baseDeps()
	d.Probes = []deps.Probe{{Name: "slow", Check: func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		return nil
	}}}

	rec := httptest.NewRecorder()
	Readyz(d)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatus(t *testing.T) {
	hist := index.NewMemoryIndex(10)
	hist.Record(index.Cycle{ID: "c1", Outcome: "unchanged"})
	hist.Record(index.Cycle{ID: "c2", Outcome: "notified", BookmarkID: "42",
		Deliveries: []index.Delivery{{Sink: "discord", Status: "success"}}})
	hist.SetLastNotified(&domain.Bookmark{ID: "42", Title: "Paper", URL: "http://x"}, epoch)

	d := baseDeps()
	d.History = hist
	d.StateBackend = "file"
	d.Poller = fakePoller{busy: true, last: epoch.Add(time.Minute)}
	d.Sinks = []deps.SinkView{fakeSink{"discord", "closed"}, fakeSink{"slack", "open"}}

	rec := httptest.NewRecorder()
	Status(d)(rec, httptest.NewRequest(http.MethodGet, "/status?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	decode(t, rec, &body)
	assert.Equal(t, "v1.2.3", body.Version)
	assert.Equal(t, "file", body.StateBackend)
	assert.True(t, body.Busy)
	assert.Equal(t, 10.0, body.IntervalSeconds)
	assert.Equal(t, "2025-03-01T12:01:00Z", body.LastCycleAt)
	assert.Equal(t, []sinkStatus{{"discord", "closed"}, {"slack", "open"}}, body.Sinks)
	assert.Equal(t, map[string]int{"unchanged": 1, "notified": 1}, body.Counts)

	require.Len(t, body.Recent, 1)
	assert.Equal(t, "c2", body.Recent[0].ID)
	require.Len(t, body.Recent[0].Deliveries, 1)

	require.NotNil(t, body.LastNotified)
	assert.Equal(t, "42", body.LastNotified.ID)
	assert.Equal(t, "Paper", body.LastNotified.Title)
}

func TestStatusWithoutHistory(t *testing.T) {
	rec := httptest.NewRecorder()
	Status(baseDeps())(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	decode(t, rec, &body)
	assert.Empty(t, body.Recent)
	assert.Empty(t, body.Sinks)
	assert.Nil(t, body.LastNotified)
}

func TestStatusRejectsBadLimit(t *testing.T) {
	for _, q := range []string{"abc", "-1"} {
		rec := httptest.NewRecorder()
		Status(baseDeps())(rec, httptest.NewRequest(http.MethodGet, "/status?limit="+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestPoll(t *testing.T) {
	d := baseDeps()
	d.PollTrigger = make(chan struct{}, 1)

	rec := httptest.NewRecorder()
	Poll(d)(rec, httptest.NewRequest(http.MethodPost, "/poll", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	var body pollResponse
	decode(t, rec, &body)
	assert.True(t, body.Queued)

	// Nobody drained the first request yet.
	rec = httptest.NewRecorder()
	Poll(d)(rec, httptest.NewRequest(http.MethodPost, "/poll", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	<-d.PollTrigger
	rec = httptest.NewRecorder()
	Poll(d)(rec, httptest.NewRequest(http.MethodPost, "/poll", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestPollWithoutPoller(t *testing.T) {
	rec := httptest.NewRecorder()
	Poll(baseDeps())(rec, httptest.NewRequest(http.MethodPost, "/poll", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

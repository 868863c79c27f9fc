package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dropwatch/internal/index"
)

const defaultStatusLimit = 10

type sinkStatus struct {
	Name    string `json:"name"`
	Breaker string `json:"breaker"`
}

type lastNotified struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	At    string `json:"at"`
}

type statusResponse struct {
	Version         string         `json:"version"`
	UptimeSeconds   float64        `json:"uptime_seconds"`
	StateBackend    string         `json:"state_backend"`
	IntervalSeconds float64        `json:"interval_seconds,omitempty"`
	Busy            bool           `json:"busy"`
	LastCycleAt     string         `json:"last_cycle_at,omitempty"`
	Sinks           []sinkStatus   `json:"sinks"`
	Counts          map[string]int `json:"counts"`
	LastNotified    *lastNotified  `json:"last_notified,omitempty"`
	Recent          []index.Cycle  `json:"recent"`
}

// Status reports the poller, sinks and recent cycles. ?limit=N bounds the
// number of cycles returned.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultStatusLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		resp := statusResponse{
			Version:       d.Version,
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
			StateBackend:  d.StateBackend,
			Sinks:         make([]sinkStatus, 0, len(d.Sinks)),
			Counts:        map[string]int{},
			Recent:        []index.Cycle{},
		}

		if d.Poller != nil {
			resp.IntervalSeconds = d.Poller.Interval().Seconds()
			resp.Busy = d.Poller.Busy()
			if at := d.Poller.LastCycleAt(); !at.IsZero() {
				resp.LastCycleAt = at.UTC().Format(timeLayout)
			}
		}

		for _, s := range d.Sinks {
			resp.Sinks = append(resp.Sinks, sinkStatus{Name: s.Name(), Breaker: s.State()})
		}

		if d.History != nil {
			resp.Counts = d.History.Counts()
			if limit > 0 {
				resp.Recent = d.History.Recent(limit)
			}
			if b, at, ok := d.History.LastNotified(); ok {
				resp.LastNotified = &lastNotified{ID: b.ID, Title: b.Title, URL: b.URL, At: at.UTC().Format(timeLayout)}
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

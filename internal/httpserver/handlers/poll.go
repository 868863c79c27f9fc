package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
)

type pollResponse struct {
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}

// Poll queues an immediate cycle. The poller runs it through its usual
// single-worker guard, so a busy poller simply skips it.
func Poll(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.PollTrigger == nil {
			writeJSON(w, http.StatusServiceUnavailable, pollResponse{Message: "poller not running"})
			return
		}

		select {
		case d.PollTrigger <- struct{}{}:
			d.Logger.Info("manual poll requested via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, pollResponse{Queued: true, Message: "poll queued"})
		default:
			d.Logger.Warn("manual poll already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, pollResponse{Message: "a poll is already pending, please wait"})
		}
	}
}

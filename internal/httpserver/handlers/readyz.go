package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
)

const probeTimeout = time.Second

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks,omitempty"` // name -> "ok" | error
}

// Readyz runs every probe concurrently. Any failure answers 503.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			wg     sync.WaitGroup
			checks = make(map[string]string, len(d.Probes))
			ready  = true
		)
		for _, p := range d.Probes {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := p.Check(ctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					ready = false
					checks[p.Name] = err.Error()
					d.Logger.Debug("readiness probe failed", logger.String("probe", p.Name), logger.Error(err))
					return
				}
				checks[p.Name] = "ok"
			}()
		}
		wg.Wait()

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: ready, Checks: checks})
	}
}

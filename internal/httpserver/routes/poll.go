package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/mw"
)

func init() { Register(registerPoll) }

func registerPoll(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             3,
		RefillPerIPPerMin: 6,
		MaxEntries:        1024,
		IdleTTL:           10 * time.Minute,
		TrustProxy:        d.TrustProxy,
	})
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), limit).Post("/poll", handlers.Poll(d))
}

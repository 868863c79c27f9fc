package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/dropwatch/internal/logger"
	"github.com/MrSnakeDoc/dropwatch/internal/utils"
)

// AllowOnlyCIDRS lets through only clients inside one of the allowed
// IPs/CIDRs. An empty list disables filtering.
// trustProxy resolves the client from X-Forwarded-For / X-Real-IP; only set
// it behind a reverse proxy you control.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debug("ops allowlist enabled",
		logger.Int("rules", len(allowed)),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Debug("ops request rejected by allowlist",
					logger.String("client_ip", ip),
					logger.String("remote_addr", r.RemoteAddr),
					logger.String("path", r.URL.Path))
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

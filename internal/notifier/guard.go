package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
	"github.com/MrSnakeDoc/dropwatch/internal/metrics"
)

// GuardSettings configures the rate limiter and breaker of one sink.
type GuardSettings struct {
	RatePerSec  float64       // token refill rate
	Burst       int           // bucket capacity
	MaxFailures int           // consecutive failures before the breaker opens
	Cooldown    time.Duration // time spent open before a half-open probe
}

func DefaultGuardSettings() GuardSettings {
	return GuardSettings{
		RatePerSec:  1,
		Burst:       3,
		MaxFailures: 5,
		Cooldown:    time.Minute,
	}
}

// Guard wraps a Notifier with a token bucket and a circuit breaker.
type Guard struct {
	next    Notifier
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     logger.Logger
}

var _ Notifier = (*Guard)(nil)

func NewGuard(next Notifier, s GuardSettings, log logger.Logger) *Guard {
	if s.RatePerSec <= 0 {
		s.RatePerSec = 1
	}
	if s.Burst < 1 {
		s.Burst = 1
	}
	if s.MaxFailures < 1 {
		s.MaxFailures = 1
	}

	g := &Guard{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(s.RatePerSec), s.Burst),
		log:     log.With(logger.String("sink", next.Name())),
	}

	maxFailures := uint32(s.MaxFailures)
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn("circuit breaker state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.SetBreakerState(name, int(to))
		},
		IsSuccessful: breakerSuccess,
	})
	metrics.SetBreakerState(next.Name(), int(gobreaker.StateClosed))

	return g
}

// breakerSuccess keeps configuration problems and shutdown out of the
// failure count; only real delivery failures should open the breaker.
func breakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, ErrChannelUnresolved) ||
		errors.Is(err, context.Canceled)
}

func (g *Guard) Name() string { return g.next.Name() }

// State exposes the breaker state for /status.
func (g *Guard) State() string { return g.breaker.State().String() }

func (g *Guard) Notify(ctx context.Context, msg domain.Message) error {
	start := time.Now()
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", g.Name(), err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.RecordRateLimitWait(g.Name(), waited)
		g.log.Debug("rate limited", logger.Duration("waited", waited))
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.next.Notify(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", g.Name(), ErrCircuitOpen)
	}
	return err
}

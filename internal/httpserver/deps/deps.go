package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/dropwatch/internal/index"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
)

// Probe is one readiness check. Check returns nil when the component is
// usable.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// PollerView is the read-only poller surface used by /status.
type PollerView interface {
	Busy() bool
	Interval() time.Duration
	LastCycleAt() time.Time
}

// SinkView reports a sink and its breaker state.
type SinkView interface {
	Name() string
	State() string
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time   // for testing, defaults to time.Now
	AllowedCIDRS []string           // IPs allowed to access the ops endpoints
	TrustProxy   bool               // true if running behind a trusted reverse proxy
	History      *index.MemoryIndex // recent cycles
	Poller       PollerView         // nil when not wired (tests)
	Sinks        []SinkView         // registered sinks
	StateBackend string             // "file" | "redis"
	Probes       []Probe            // readiness checks
	PollTrigger  chan struct{}      // manual poll requests, buffered(1)
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

package notifier

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
	"github.com/MrSnakeDoc/dropwatch/internal/metrics"
)

// Result is the outcome of one sink for one message.
type Result struct {
	Sink     string
	Err      error
	Duration time.Duration
}

func (r Result) Status() string { return statusOf(r.Err) }

// Dispatcher fans a message out to every registered sink.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	log       logger.Logger
}

func NewDispatcher(timeout time.Duration, log logger.Logger, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		notifiers: notifiers,
		timeout:   timeout,
		log:       log,
	}
}

// Sinks lists the registered sink names in registration order.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Dispatch delivers msg to all sinks concurrently and waits for all of
// them. Each sink gets its own timeout derived from ctx. Errors never
// cancel the other deliveries. Results keep registration order.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.Message) []Result {
	results := make([]Result, len(d.notifiers))

	// Plain Group: a failing sink must not cancel its siblings.
	var g errgroup.Group
	for i, n := range d.notifiers {
		g.Go(func() error {
			results[i] = d.deliver(ctx, n, msg)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) deliver(parent context.Context, n Notifier, msg domain.Message) (res Result) {
	res.Sink = n.Name()
	start := time.Now()
	log := d.log.With(logger.String("sink", res.Sink), logger.String("bookmark_id", msg.BookmarkID))

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %v", ErrNotifierPanic, r)
		}
		res.Duration = time.Since(start)
		metrics.RecordNotification(res.Sink, res.Status(), res.Duration)

		if res.Err != nil {
			log.Error("notification failed",
				logger.String("status", res.Status()),
				logger.Duration("duration", res.Duration),
				logger.Error(res.Err))
			return
		}
		log.Info("notification sent", logger.Duration("duration", res.Duration))
	}()

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	res.Err = n.Notify(ctx, msg)
	return res
}

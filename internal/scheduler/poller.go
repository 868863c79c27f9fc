package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
	"github.com/MrSnakeDoc/dropwatch/internal/index"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
	"github.com/MrSnakeDoc/dropwatch/internal/metrics"
	"github.com/MrSnakeDoc/dropwatch/internal/notifier"
	"github.com/MrSnakeDoc/dropwatch/internal/store"
)

// What started a cycle.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Source returns the newest remote item, or nil when there is none.
type Source interface {
	FetchLatest(ctx context.Context) (*domain.Bookmark, error)
}

// Dispatcher delivers one message to every sink and reports per sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.Message) []notifier.Result
}

// Poller runs the fetch / compare / persist / notify cycle. It is the only
// writer of the state store and never runs two cycles at once.
type Poller struct {
	source     Source
	state      store.Store
	dispatcher Dispatcher
	history    *index.MemoryIndex
	logger     logger.Logger
	interval   time.Duration

	manualTrigger chan struct{}
	stopCh        chan struct{}
	stopOnce      sync.Once

	busy     sync.Mutex
	running  atomic.Bool
	cron     *cron.Cron
	runCtx   context.Context
	cancel   context.CancelFunc
	newID    func() string
	timeNow  func() time.Time
	lastTick atomic.Int64 // unix nanos of the last finished cycle
}

// NewPoller wires a poller. manualTrigger may be nil.
func NewPoller(
	source Source,
	state store.Store,
	dispatcher Dispatcher,
	history *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Poller {
	if history == nil {
		history = index.NewMemoryIndex(index.DefaultCapacity)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	return &Poller{
		source:        source,
		state:         state,
		dispatcher:    dispatcher,
		history:       history,
		logger:        log,
		interval:      interval,
		manualTrigger: manualTrigger,
		stopCh:        make(chan struct{}),
		runCtx:        runCtx,
		cancel:        cancel,
		newID:         func() string { return uuid.NewString() },
		timeNow:       time.Now,
	}
}

// Start runs a first cycle right away, then one per interval, plus one per
// manual trigger. Cycles run on a context that outlives ctx so that Stop
// can grant the in-flight cycle a grace period.
func (p *Poller) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("poll interval must be > 0, got %v", p.interval)
	}

	cl := cronLogger{log: p.logger}
	p.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	p.cron.Schedule(cron.Every(p.interval), cron.FuncJob(func() {
		p.RunOnce(p.runCtx, TriggerSchedule)
	}))

	go p.RunOnce(p.runCtx, TriggerStartup)
	p.cron.Start()

	go func() {
		for {
			select {
			case <-p.manualTrigger:
				p.logger.Info("manual poll triggered")
				p.RunOnce(p.runCtx, TriggerManual)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	p.logger.Info("poller started", logger.Duration("interval", p.interval))
	return nil
}

// Stop ends scheduling and waits for the in-flight cycle. When ctx
// expires first the cycle's context is cancelled and it is abandoned.
func (p *Poller) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.cron != nil {
		p.cron.Stop()
	}

	// Holding the busy lock for good guarantees no further cycle starts.
	idle := make(chan struct{})
	go func() {
		p.busy.Lock()
		close(idle)
	}()

	select {
	case <-idle:
		p.cancel()
		p.logger.Info("poller stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("in-flight cycle did not finish in time, cancelling it")
		p.cancel()
		select {
		case <-idle:
		case <-time.After(time.Second):
		}
		return fmt.Errorf("poller shutdown: %w", ctx.Err())
	}
}

// Busy reports whether a cycle is running.
func (p *Poller) Busy() bool { return p.running.Load() }

// Interval returns the schedule period.
func (p *Poller) Interval() time.Duration { return p.interval }

// LastCycleAt returns when the last cycle finished, zero before the first.
func (p *Poller) LastCycleAt() time.Time {
	n := p.lastTick.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// RunOnce runs a single cycle unless one is already running, in which case
// it returns immediately with ran=false.
func (p *Poller) RunOnce(ctx context.Context, trigger string) (rec index.Cycle, ran bool) {
	if !p.busy.TryLock() {
		p.logger.Debug("cycle skipped, previous one still running", logger.String("trigger", trigger))
		metrics.RecordCycle(metrics.OutcomeSkipped, 0)
		return index.Cycle{Trigger: trigger, Outcome: metrics.OutcomeSkipped}, false
	}
	defer p.busy.Unlock()
	p.running.Store(true)
	defer p.running.Store(false)

	rec = index.Cycle{
		ID:        p.newID(),
		Trigger:   trigger,
		StartedAt: p.timeNow(),
	}
	log := p.logger.With(logger.String("cycle_id", rec.ID), logger.String("trigger", trigger))

	defer func() {
		if r := recover(); r != nil {
			ran = true
			rec.Outcome = metrics.OutcomePanic
			rec.Error = fmt.Sprint(r)
			log.Error("cycle panicked", logger.Any("panic", r))
		}
		rec.Duration = p.timeNow().Sub(rec.StartedAt)
		p.lastTick.Store(p.timeNow().UnixNano())
		p.history.Record(rec)
		metrics.RecordCycle(rec.Outcome, rec.Duration)
	}()

	p.cycle(ctx, &rec, log)
	return rec, true
}

func (p *Poller) cycle(ctx context.Context, rec *index.Cycle, log logger.Logger) {
	// Fetching
	item, err := p.source.FetchLatest(ctx)
	if err != nil {
		rec.Outcome = metrics.OutcomeFetchFailed
		rec.Error = err.Error()
		log.Error("failed to fetch latest bookmark", logger.Error(err))
		return
	}
	if item == nil {
		rec.Outcome = metrics.OutcomeEmpty
		log.Info("no bookmarks found")
		return
	}
	rec.BookmarkID = item.ID

	// Comparing
	stored, ok, err := p.state.Load(ctx)
	if err != nil {
		metrics.RecordStateError("read")
		log.Warn("failed to read last seen id, treating as absent",
			logger.String("backend", p.state.Backend()),
			logger.Error(err))
		ok = false
	}
	if ok && stored == item.ID {
		rec.Outcome = metrics.OutcomeUnchanged
		log.Debug("no new bookmark", logger.String("bookmark_id", item.ID))
		return
	}

	log.Info("new bookmark detected",
		logger.String("bookmark_id", item.ID),
		logger.String("previous_id", stored),
		logger.Bool("first_run", !ok))

	// Persisting, strictly before any delivery.
	if err := p.state.Save(ctx, item.ID); err != nil {
		metrics.RecordStateError("write")
		log.Error("failed to persist last seen id, delivering anyway",
			logger.String("backend", p.state.Backend()),
			logger.Error(err))
	}

	// Notifying
	results := p.dispatcher.Dispatch(ctx, domain.NewMessage(item))
	rec.Outcome = metrics.OutcomeNotified
	rec.Deliveries = make([]index.Delivery, 0, len(results))
	for _, r := range results {
		d := index.Delivery{Sink: r.Sink, Status: r.Status(), Duration: r.Duration}
		if r.Err != nil {
			d.Error = r.Err.Error()
		}
		rec.Deliveries = append(rec.Deliveries, d)
	}
	p.history.SetLastNotified(item, p.timeNow())
}

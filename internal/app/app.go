package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/dropwatch/internal/config"
	"github.com/MrSnakeDoc/dropwatch/internal/discord"
	"github.com/MrSnakeDoc/dropwatch/internal/httpserver"
	"github.com/MrSnakeDoc/dropwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dropwatch/internal/index"
	"github.com/MrSnakeDoc/dropwatch/internal/logger"
	"github.com/MrSnakeDoc/dropwatch/internal/notifier"
	"github.com/MrSnakeDoc/dropwatch/internal/redis"
	"github.com/MrSnakeDoc/dropwatch/internal/scheduler"
	"github.com/MrSnakeDoc/dropwatch/internal/sources/raindrop"
	"github.com/MrSnakeDoc/dropwatch/internal/store"
	"github.com/MrSnakeDoc/dropwatch/internal/store/file"
	redisstore "github.com/MrSnakeDoc/dropwatch/internal/store/redis"
	"github.com/MrSnakeDoc/dropwatch/internal/utils"
	"github.com/MrSnakeDoc/dropwatch/internal/version"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	state   store.Store
	gateway *discord.Gateway
	poller  *scheduler.Poller
	server  *httpserver.Server // nil when LISTEN_PORT is empty
}

func New() (*App, error) {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	startTime := time.Now()

	state, stateProbe, err := openState(context.Background(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	log.Info("state store ready", logger.String("backend", state.Backend()))

	probes := []deps.Probe{stateProbe}

	var (
		sinks   []notifier.Notifier
		views   []deps.SinkView
		gateway *discord.Gateway
	)
	guard := notifier.GuardSettings{
		RatePerSec:  cfg.NotifyRatePerSec,
		Burst:       cfg.NotifyBurst,
		MaxFailures: cfg.BreakerFailures,
		Cooldown:    cfg.BreakerCooldown,
	}

	if cfg.StreamEnabled() {
		gateway, err = discord.New(cfg.StreamBotToken, log)
		if err != nil {
			utils.CloseLogged(state, "state store", log)
			return nil, fmt.Errorf("create discord session: %w", err)
		}
		g := notifier.NewGuard(notifier.NewStreamNotifier(gateway, cfg.StreamChannelID), guard, log)
		sinks = append(sinks, g)
		views = append(views, g)
		probes = append(probes, deps.Probe{Name: "discord", Check: func(context.Context) error {
			if !gateway.Ready() {
				return discord.ErrNotReady
			}
			return nil
		}})
		log.Info("discord sink enabled", logger.Int64("channel_id", cfg.StreamChannelID))
	} else {
		log.Info("discord sink disabled (no bot token)")
	}

	if cfg.WebhookEnabled() {
		n := notifier.NewWebhookNotifier(cfg.WebhookToken, cfg.WebhookChannelID, cfg.WebhookAPIURL, cfg.NotifyTimeout)
		g := notifier.NewGuard(n, guard, log)
		sinks = append(sinks, g)
		views = append(views, g)
		log.Info("slack sink enabled", logger.String("channel_id", cfg.WebhookChannelID))
	} else {
		log.Info("slack sink disabled (no token)")
	}

	if len(sinks) == 0 {
		log.Warn("no sink configured, new bookmarks will only be recorded")
	}

	history := index.NewMemoryIndex(index.DefaultCapacity)
	trigger := make(chan struct{}, 1)

	poller := scheduler.NewPoller(
		raindrop.New(cfg.SourceAPIURL, cfg.SourceAPIToken, cfg.HTTPTimeout),
		state,
		notifier.NewDispatcher(cfg.NotifyTimeout, log, sinks...),
		history,
		log,
		cfg.PollInterval,
		trigger,
	)
	probes = append(probes, deps.Probe{Name: "poller", Check: pollerProbe(poller, startTime)})

	a := &App{
		cfg:     cfg,
		logger:  log,
		state:   state,
		gateway: gateway,
		poller:  poller,
	}

	if cfg.ListenPort == "" {
		log.Info("ops server disabled (LISTEN_PORT is empty)")
		return a, nil
	}

	a.server = httpserver.New(cfg, log, deps.Deps{
		Logger:       log,
		StartTime:    startTime,
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		History:      history,
		Poller:       poller,
		Sinks:        views,
		StateBackend: state.Backend(),
		Probes:       probes,
		PollTrigger:  trigger,
	})
	return a, nil
}

// openState builds the configured backend and the readiness probe that
// goes with it.
func openState(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, deps.Probe, error) {
	switch cfg.StateBackend {
	case config.BackendRedis:
		client, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), log)
		if err != nil {
			return nil, deps.Probe{}, err
		}
		s := redisstore.NewStateStore(client, cfg.StateKey)
		return s, deps.Probe{Name: "state", Check: s.Ping}, nil

	case config.BackendFile:
		s := file.New(cfg.StateFile)
		return s, deps.Probe{Name: "state", Check: func(context.Context) error { return nil }}, nil
	}
	return nil, deps.Probe{}, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
}

// pollerProbe fails when no cycle has finished within three intervals.
func pollerProbe(p *scheduler.Poller, started time.Time) func(context.Context) error {
	return func(context.Context) error {
		last := p.LastCycleAt()
		if last.IsZero() {
			last = started
		}
		if since := time.Since(last); since > 3*p.Interval() {
			return fmt.Errorf("no cycle finished for %s", since.Round(time.Second))
		}
		return nil
	}
}

func (a *App) Run() error {
	a.logger.Info("🚀 Starting " + version.String())
	defer func() { _ = a.logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The gateway outlives ctx so in-flight deliveries can still use it
	// during the shutdown grace period.
	gwCtx, gwCancel := context.WithCancel(context.Background())
	defer gwCancel()
	gwDone := make(chan error, 1)
	if a.gateway != nil {
		go func() { gwDone <- a.gateway.Run(gwCtx) }()
	} else {
		close(gwDone)
	}

	if err := a.poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}
	a.logger.Info("poller started", logger.Duration("interval", a.cfg.PollInterval))

	errCh := make(chan error, 1)
	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				errCh <- fmt.Errorf("ops server error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		a.logger.Error("ops server failed, shutting down", logger.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.poller.Stop(shutdownCtx); err != nil {
		a.logger.Warn("in-flight cycle abandoned", logger.Error(err))
	}

	if a.server != nil {
		if err := a.server.Stop(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to stop ops server: %w", err))
		}
	}

	gwCancel()
	if err := <-gwDone; err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("discord gateway stopped with error", logger.Error(err))
	}

	utils.CloseLogged(a.state, "state store", a.logger)

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ dropwatch stopped cleanly")
	return nil
}

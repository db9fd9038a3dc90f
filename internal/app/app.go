// Package app wires the pairdash components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/newthinker/pairdash/internal/alert"
	"github.com/newthinker/pairdash/internal/analytics"
	"github.com/newthinker/pairdash/internal/api"
	"github.com/newthinker/pairdash/internal/api/job"
	"github.com/newthinker/pairdash/internal/api/stream"
	"github.com/newthinker/pairdash/internal/bridge"
	"github.com/newthinker/pairdash/internal/bridge/sim"
	"github.com/newthinker/pairdash/internal/config"
	"github.com/newthinker/pairdash/internal/indicator"
	"github.com/newthinker/pairdash/internal/metrics"
	"github.com/newthinker/pairdash/internal/notifier"
	"github.com/newthinker/pairdash/internal/notifier/telegram"
	"github.com/newthinker/pairdash/internal/notifier/webhook"
	"github.com/newthinker/pairdash/internal/router"
	"github.com/newthinker/pairdash/internal/scheduler"
	"github.com/newthinker/pairdash/internal/session"
	"github.com/newthinker/pairdash/internal/storage/kv"
	"github.com/newthinker/pairdash/internal/strategy"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	Store      kv.Store
	Bridge     bridge.Bridge
	Notifiers  *notifier.Registry
	Inbox      *notifier.Inbox
	Metrics    *metrics.Registry
	Session    *session.Manager
	Strategies *strategy.Store
	Indicators *indicator.Service
	Journal    *analytics.Journal
	Jobs       *job.Store
	Hub        *stream.Hub
	Router     *router.Router
	Alerts     *alert.Evaluator
	Scheduler  *scheduler.Scheduler
	Server     *api.Server

	unsubscribe func()
	errs        chan error

	mu      sync.Mutex
	running bool
}

// Option customises construction.
type Option func(*options)

type options struct {
	store  kv.Store
	bridge bridge.Bridge
}

// WithStore replaces the store built from the storage config.
func WithStore(s kv.Store) Option {
	return func(o *options) { o.store = s }
}

// WithBridge replaces the simulated bridge.
func WithBridge(b bridge.Bridge) Option {
	return func(o *options) { o.bridge = b }
}

// New creates a new App instance. Nothing runs until Start.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger, errs: make(chan error, 1)}

	if o.store == nil {
		store, err := kv.Open(cfg.Storage.KV())
		if err != nil {
			return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Type, err)
		}
		o.store = store
	}
	a.Store = o.store

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewRegistry()
	}

	if o.bridge == nil {
		o.bridge = sim.New(
			sim.WithLatency(sim.Latency{
				Connect:    cfg.Bridge.ConnectLatency,
				Disconnect: cfg.Bridge.DisconnectLatency,
				Account:    cfg.Bridge.AccountLatency,
			}),
			sim.WithLogger(logger.Named("bridge")),
		)
	}
	a.Bridge = o.bridge

	if err := a.setupNotifiers(); err != nil {
		return nil, err
	}

	sessionOpts := []session.Option{
		session.WithLogger(logger.Named("session")),
	}
	if cfg.Notifiers.ConnectionAlerts {
		sessionOpts = append(sessionOpts, session.WithNotifier(a.Notifiers))
	}
	genOpts := []indicator.Option{}
	svcOpts := []indicator.ServiceOption{
		indicator.WithLatency(cfg.Indicators.Latency),
		indicator.WithLogger(logger.Named("indicators")),
	}
	hubOpts := []stream.Option{
		stream.WithLogger(logger.Named("stream")),
		stream.WithSnapshot(a.snapshot),
	}
	a.Jobs = job.NewStore(cfg.Server.MaxJobs, time.Duration(cfg.Server.JobTTLHours)*time.Hour)
	if a.Metrics != nil {
		sessionOpts = append(sessionOpts, session.WithMetrics(a.Metrics))
		genOpts = append(genOpts, indicator.WithRecorder(a.Metrics))
		svcOpts = append(svcOpts, indicator.WithFetchRecorder(a.Metrics))
		hubOpts = append(hubOpts, stream.WithRecorder(a.Metrics))
		a.Notifiers.SetRecorder(a.Metrics)
		a.Jobs.SetRecorder(a.Metrics)
	}

	a.Session = session.New(a.Bridge, a.Store, sessionOpts...)
	a.Strategies = strategy.NewStore(a.Store, logger.Named("strategies"))
	a.Indicators = indicator.NewService(indicator.NewGenerator(genOpts...), a.Strategies, svcOpts...)
	a.Journal = analytics.NewJournal(analytics.SampleTrades()...)
	a.Hub = stream.NewHub(hubOpts...)

	a.unsubscribe = a.Session.Subscribe(func(e session.Event) {
		a.Hub.Broadcast(stream.TypeStatus, a.Session.State())
	})

	if cfg.Signals.Enabled {
		signals := make([]indicator.Signal, 0, len(cfg.Signals.Types))
		for _, t := range cfg.Signals.Types {
			signals = append(signals, indicator.Signal(t))
		}
		a.Router = router.New(router.Config{
			Cooldown:       cfg.Signals.Cooldown,
			EnabledSignals: signals,
		}, a.Notifiers, logger.Named("router"))
	}

	if len(cfg.Alerts.Rules) > 0 {
		a.Alerts = alert.NewEvaluator(cfg.Alerts.Rules, a.Notifiers, logger.Named("alerts"))
		a.Alerts.SetCooldown(cfg.Alerts.Cooldown)
	}

	if cfg.Scheduler.Enabled {
		schedDeps := scheduler.Deps{
			Session:     a.Session,
			Indicators:  a.Indicators,
			Broadcaster: a.Hub,
		}
		if a.Router != nil {
			schedDeps.Router = a.Router
		}
		if a.Alerts != nil {
			schedDeps.Alerts = a.Alerts
		}
		if a.Metrics != nil {
			schedDeps.Metrics = a.Metrics
		}
		sched, err := scheduler.New(scheduler.Config{
			AccountRefresh:     cfg.Scheduler.AccountRefresh,
			IndicatorBroadcast: cfg.Scheduler.IndicatorBroadcast,
		}, schedDeps, logger.Named("scheduler"))
		if err != nil {
			return nil, fmt.Errorf("creating scheduler: %w", err)
		}
		a.Scheduler = sched
	}

	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		APIKey:      cfg.Server.APIKey,
		MetricsPath: cfg.Metrics.Path,
	}, api.Dependencies{
		Session:       a.Session,
		Strategies:    a.Strategies,
		Indicators:    a.Indicators,
		Notifications: a.Inbox,
		Journal:       a.Journal,
		Jobs:          a.Jobs,
		Hub:           a.Hub,
		Metrics:       a.Metrics,
	}, logger.Named("http"))
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	a.Server = server

	return a, nil
}

func (a *App) setupNotifiers() error {
	a.Notifiers = notifier.NewRegistry()
	a.Inbox = notifier.NewInbox(a.cfg.Notifiers.InboxCapacity)
	if err := a.Notifiers.Register(a.Inbox); err != nil {
		return err
	}

	if wc := a.cfg.Notifiers.Webhook; wc.Enabled {
		wh, err := webhook.New(wc.URL, wc.Headers)
		if err != nil {
			return fmt.Errorf("creating webhook notifier: %w", err)
		}
		if err := a.Notifiers.Register(wh); err != nil {
			return err
		}
	}
	if tc := a.cfg.Notifiers.Telegram; tc.Enabled {
		tg, err := telegram.New(tc.BotToken, tc.ChatID)
		if err != nil {
			return fmt.Errorf("creating telegram notifier: %w", err)
		}
		if err := a.Notifiers.Register(tg); err != nil {
			return err
		}
	}
	return nil
}

// snapshot is what a websocket client receives right after connecting.
func (a *App) snapshot() []stream.Message {
	return []stream.Message{{
		Type: stream.TypeStatus,
		Data: a.Session.State(),
		At:   time.Now().UTC(),
	}}
}

// Restore reloads the persisted session.
func (a *App) Restore(ctx context.Context) error {
	if err := a.Session.Restore(ctx); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	a.logger.Info("session restored", zap.String("status", string(a.Session.Status())))
	return nil
}

// Start restores the session, then starts the scheduler and the HTTP
// server. Server failures are reported on Errors.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	a.mu.Unlock()

	if err := a.Restore(ctx); err != nil {
		return err
	}

	if a.Scheduler != nil {
		a.Scheduler.Start()
	}

	go func() {
		if err := a.Server.Start(); err != nil {
			a.errs <- err
		}
	}()

	a.logger.Info("pairdash started",
		zap.String("storage", a.cfg.Storage.Type),
		zap.String("bridge", a.Bridge.Name()),
		zap.Bool("scheduler", a.Scheduler != nil),
		zap.Bool("metrics", a.Metrics != nil),
	)
	return nil
}

// Errors reports a server that stopped on its own.
func (a *App) Errors() <-chan error {
	return a.errs
}

// Stop shuts components down in reverse start order. The persisted session
// is left in place so the next start can restore it.
func (a *App) Stop(ctx context.Context) error {
	var errs []error

	a.mu.Lock()
	running := a.running
	a.running = false
	a.mu.Unlock()

	if running {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server: %w", err))
		}
		if a.Scheduler != nil {
			if err := a.Scheduler.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("scheduler: %w", err))
			}
		}
	}

	a.Hub.Close()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}

	done := make(chan struct{})
	go func() {
		a.Jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("jobs: %w", ctx.Err()))
	}

	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases the store. CLI commands call it directly.
func (a *App) Close() error {
	if c, ok := a.Store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing store: %w", err)
		}
	}
	return nil
}

// Stats summarises the running components.
func (a *App) Stats() map[string]any {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()

	stats := map[string]any{
		"running":   running,
		"status":    a.Session.Status(),
		"notifiers": len(a.Notifiers.GetAll()),
		"clients":   a.Hub.Clients(),
		"jobs":      len(a.Jobs.List()),
	}
	if a.Router != nil {
		stats["signals"] = a.Router.GetStats()
	}
	if a.Alerts != nil {
		stats["alert_rules"] = len(a.Alerts.Rules())
	}
	return stats
}

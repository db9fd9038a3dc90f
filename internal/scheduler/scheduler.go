// Package scheduler runs the periodic dashboard jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/pairdash/internal/api/stream"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/indicator"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job names used in logs and metrics.
const (
	JobAccountRefresh     = "account_refresh"
	JobIndicatorBroadcast = "indicator_broadcast"
)

const runTimeout = 30 * time.Second

// Session is the part of the session manager the refresh job needs.
type Session interface {
	Status() core.ConnectionStatus
	Refresh(ctx context.Context) (*core.AccountSnapshot, error)
}

// Indicators produces the bundles the broadcast job pushes.
type Indicators interface {
	FetchAll(ctx context.Context) ([]indicator.StrategyIndicators, error)
}

// Broadcaster pushes a typed message to live clients.
type Broadcaster interface {
	Broadcast(msgType string, data any)
}

// Router notifies on signal changes.
type Router interface {
	Route(ctx context.Context, strategyName string, st indicator.SignalState) (bool, error)
	CleanupExpiredCooldowns() int
}

// Alerts checks account thresholds after a refresh.
type Alerts interface {
	Check(ctx context.Context, acct core.AccountSnapshot) int
}

// Recorder receives run outcomes.
type Recorder interface {
	RecordSchedulerRun(job, result string)
	SetStrategies(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSchedulerRun(string, string) {}
func (nopRecorder) SetStrategies(int)                 {}

// Config holds the cron specs. An empty spec disables the job.
type Config struct {
	AccountRefresh     string
	IndicatorBroadcast string
}

// Deps are the components the jobs act on.
type Deps struct {
	Session     Session
	Indicators  Indicators
	Broadcaster Broadcaster
	Router      Router // optional
	Alerts      Alerts // optional
	Metrics     Recorder
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	deps    Deps
	logger  *zap.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler and registers the jobs named in cfg.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(),
		deps:    deps,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}

	if cfg.AccountRefresh != "" {
		if deps.Session == nil {
			cancel()
			return nil, fmt.Errorf("register %s: no session", JobAccountRefresh)
		}
		if _, err := s.cron.AddFunc(cfg.AccountRefresh, s.run(JobAccountRefresh, s.refreshAccount)); err != nil {
			cancel()
			return nil, fmt.Errorf("register %s: %w", JobAccountRefresh, err)
		}
	}
	if cfg.IndicatorBroadcast != "" {
		if deps.Indicators == nil || deps.Broadcaster == nil {
			cancel()
			return nil, fmt.Errorf("register %s: no indicator source or broadcaster", JobIndicatorBroadcast)
		}
		if _, err := s.cron.AddFunc(cfg.IndicatorBroadcast, s.run(JobIndicatorBroadcast, s.broadcastIndicators)); err != nil {
			cancel()
			return nil, fmt.Errorf("register %s: %w", JobIndicatorBroadcast, err)
		}
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", s.Jobs()))
}

// Stop halts scheduling, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshAccountNow runs the account refresh job immediately.
func (s *Scheduler) RefreshAccountNow(ctx context.Context) error {
	return s.refreshAccount(ctx)
}

// BroadcastIndicatorsNow runs the indicator broadcast job immediately.
func (s *Scheduler) BroadcastIndicatorsNow(ctx context.Context) error {
	return s.broadcastIndicators(ctx)
}

// errSkipped marks a run that had nothing to do.
var errSkipped = errors.New("skipped")

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, runTimeout)
		defer cancel()

		err := fn(ctx)
		switch {
		case err == nil:
			s.deps.Metrics.RecordSchedulerRun(name, "ok")
		case errors.Is(err, errSkipped):
			s.deps.Metrics.RecordSchedulerRun(name, "skipped")
		default:
			s.deps.Metrics.RecordSchedulerRun(name, "error")
			s.logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	}
}

func (s *Scheduler) refreshAccount(ctx context.Context) error {
	if s.deps.Session.Status() != core.StatusConnected {
		return errSkipped
	}
	acct, err := s.deps.Session.Refresh(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("account refreshed", zap.Int64("login", acct.Login), zap.Float64("equity", acct.Equity))
	if s.deps.Alerts != nil {
		s.deps.Alerts.Check(ctx, *acct)
	}
	return nil
}

func (s *Scheduler) broadcastIndicators(ctx context.Context) error {
	all, err := s.deps.Indicators.FetchAll(ctx)
	if err != nil {
		return err
	}
	s.deps.Metrics.SetStrategies(len(all))

	signals := make([]indicator.SignalState, 0, len(all))
	for _, si := range all {
		st := indicator.Evaluate(si)
		signals = append(signals, st)
		if s.deps.Router != nil {
			if _, err := s.deps.Router.Route(ctx, si.StrategyName, st); err != nil {
				s.logger.Warn("signal notification failed", zap.String("strategy_id", si.StrategyID), zap.Error(err))
			}
		}
	}
	if s.deps.Router != nil {
		s.deps.Router.CleanupExpiredCooldowns()
	}
	s.deps.Broadcaster.Broadcast(stream.TypeIndicators, map[string]any{
		"indicators": all,
		"signals":    signals,
	})
	return nil
}

// Package router turns strategy signals into notifications.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/pairdash/internal/indicator"
	"github.com/newthinker/pairdash/internal/notifier"
	"go.uber.org/zap"
)

// Config holds router configuration
type Config struct {
	Cooldown       time.Duration      `mapstructure:"cooldown"`
	EnabledSignals []indicator.Signal `mapstructure:"enabled_signals"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		Cooldown: 15 * time.Minute,
		EnabledSignals: []indicator.Signal{
			indicator.SignalEntryLongShort,
			indicator.SignalEntryShortLong,
			indicator.SignalExit,
		},
	}
}

type routed struct {
	signal indicator.Signal
	at     time.Time
}

// Router notifies when a strategy's signal changes, at most once per
// cooldown per strategy.
type Router struct {
	cfg      Config
	notifier notifier.Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	last map[string]routed // strategy id -> last routed signal
}

// New creates a new signal router. A nil notifier only tracks state.
func New(cfg Config, n notifier.Notifier, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:      cfg,
		notifier: n,
		logger:   logger,
		now:      time.Now,
		last:     make(map[string]routed),
	}
}

// Route sends st to the notifier if it passes the filters. It reports
// whether a notification went out.
func (r *Router) Route(ctx context.Context, strategyName string, st indicator.SignalState) (bool, error) {
	if !r.passesFilters(st) {
		r.logger.Debug("signal filtered out",
			zap.String("strategy_id", st.StrategyID),
			zap.String("signal", string(st.Signal)),
		)
		return false, nil
	}

	r.mu.Lock()
	r.last[st.StrategyID] = routed{signal: st.Signal, at: r.now()}
	r.mu.Unlock()

	if r.notifier == nil {
		return true, nil
	}

	n := notifier.New(kindFor(st.Signal), titleFor(st.Signal), describe(strategyName, st))
	if err := r.notifier.Notify(ctx, n); err != nil {
		r.logger.Error("notifier failed",
			zap.String("strategy_id", st.StrategyID),
			zap.Error(err),
		)
		return true, err
	}

	r.logger.Info("signal routed",
		zap.String("strategy_id", st.StrategyID),
		zap.String("signal", string(st.Signal)),
		zap.Float64("correlation", st.Correlation),
	)
	return true, nil
}

// passesFilters checks that the signal is enabled, differs from the last
// routed one and is outside the cooldown.
func (r *Router) passesFilters(st indicator.SignalState) bool {
	if st.Signal == indicator.SignalWait {
		return false
	}

	if len(r.cfg.EnabledSignals) > 0 {
		allowed := false
		for _, s := range r.cfg.EnabledSignals {
			if st.Signal == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	r.mu.Lock()
	prev, exists := r.last[st.StrategyID]
	r.mu.Unlock()

	if !exists {
		return true
	}
	if prev.signal == st.Signal {
		return false
	}
	return r.now().Sub(prev.at) >= r.cfg.Cooldown
}

// ClearCooldown forgets the last signal of a strategy.
func (r *Router) ClearCooldown(strategyID string) {
	r.mu.Lock()
	delete(r.last, strategyID)
	r.mu.Unlock()
}

// CleanupExpiredCooldowns removes entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.Cooldown * 2
	removed := 0

	for id, prev := range r.last {
		if now.Sub(prev.at) > expiry {
			delete(r.last, id)
			removed++
		}
	}

	return removed
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return map[string]any{
		"tracked_strategies": len(r.last),
		"cooldown_seconds":   r.cfg.Cooldown.Seconds(),
		"enabled_signals":    r.cfg.EnabledSignals,
	}
}

func kindFor(s indicator.Signal) notifier.Kind {
	if s == indicator.SignalExit {
		return notifier.KindWarning
	}
	return notifier.KindInfo
}

func titleFor(s indicator.Signal) string {
	switch s {
	case indicator.SignalEntryLongShort:
		return "Entry Signal: Long/Short"
	case indicator.SignalEntryShortLong:
		return "Entry Signal: Short/Long"
	case indicator.SignalExit:
		return "Exit Signal"
	}
	return "Signal"
}

func describe(name string, st indicator.SignalState) string {
	return fmt.Sprintf("%s: %s (correlation %.2f, RSI %.1f / %.1f)",
		name, st.Reason, st.Correlation, st.RSI1, st.RSI2)
}

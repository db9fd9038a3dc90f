package alert

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/notifier"
	"go.uber.org/zap"
)

// Evaluator evaluates alert rules and sends notifications.
type Evaluator struct {
	rules    []Rule
	notifier notifier.Notifier
	logger   *zap.Logger
	metrics  map[string]float64
	cooldown time.Duration

	// Track pending alerts (waiting for "for" duration)
	pending map[string]time.Time
	// Track last fired time for cooldown
	lastFired map[string]time.Time

	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator creates a new alert evaluator for rules.
func NewEvaluator(rules []Rule, n notifier.Notifier, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		rules:     rules,
		notifier:  n,
		logger:    logger,
		metrics:   make(map[string]float64),
		cooldown:  5 * time.Minute,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetCooldown sets the cooldown duration between alerts.
func (e *Evaluator) SetCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}

// Rules returns the configured rules.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Check evaluates every rule against acct and returns how many fired.
func (e *Evaluator) Check(ctx context.Context, acct core.AccountSnapshot) int {
	e.mu.Lock()
	e.metrics = AccountMetrics(acct)
	var fired []notifier.Notification
	for _, rule := range e.rules {
		if n, ok := e.evaluate(rule); ok {
			fired = append(fired, n)
		}
	}
	e.mu.Unlock()

	for _, n := range fired {
		if e.notifier == nil {
			continue
		}
		if err := e.notifier.Notify(ctx, n); err != nil {
			e.logger.Warn("alert delivery failed", zap.String("title", n.Title), zap.Error(err))
		}
	}
	return len(fired)
}

// evaluate must be called with e.mu held.
func (e *Evaluator) evaluate(rule Rule) (notifier.Notification, bool) {
	now := e.now()

	if !rule.Evaluate(e.metrics) {
		delete(e.pending, rule.Name)
		return notifier.Notification{}, false
	}

	if rule.For > 0 {
		pendingSince, isPending := e.pending[rule.Name]
		if !isPending {
			e.pending[rule.Name] = now
			return notifier.Notification{}, false
		}
		if now.Sub(pendingSince) < rule.For {
			return notifier.Notification{}, false
		}
	}

	lastFired, hasFired := e.lastFired[rule.Name]
	if hasFired && now.Sub(lastFired) < e.cooldown {
		return notifier.Notification{}, false
	}

	e.lastFired[rule.Name] = now
	delete(e.pending, rule.Name)
	e.logger.Info("alert fired", zap.String("rule", rule.Name))
	return notifier.New(kindFor(rule.Severity), "Account Alert", rule.FormatMessage(e.metrics)), true
}

func kindFor(severity string) notifier.Kind {
	switch severity {
	case "critical":
		return notifier.KindError
	case "info":
		return notifier.KindInfo
	}
	return notifier.KindWarning
}

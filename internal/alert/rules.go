// Package alert fires notifications when account figures cross thresholds.
package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/pairdash/internal/core"
)

var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

// Rule defines an alert rule over account metrics, e.g. "margin_level < 150".
type Rule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`
}

// Validate checks that the expression parses and names a known metric.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("alert rule name is required")
	}
	metric, _, _, ok := r.parse()
	if !ok {
		return fmt.Errorf("alert %s: cannot parse %q", r.Name, r.Expr)
	}
	if !knownMetric(metric) {
		return fmt.Errorf("alert %s: unknown metric %q", r.Name, metric)
	}
	switch r.Severity {
	case "", "info", "warning", "critical":
	default:
		return fmt.Errorf("alert %s: unknown severity %q", r.Name, r.Severity)
	}
	return nil
}

func (r *Rule) parse() (metric, op string, threshold float64, ok bool) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return "", "", 0, false
	}
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return "", "", 0, false
	}
	return matches[1], matches[2], threshold, true
}

// Evaluate evaluates the rule expression against metrics.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	metric, op, threshold, ok := r.parse()
	if !ok {
		return false
	}

	value, exists := metrics[metric]
	if !exists {
		return false
	}

	switch op {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	case "!=":
		return value != threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message with the metric value.
func (r *Rule) FormatMessage(metrics map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Severity), r.Name, r.Message)
	if metric, _, _, ok := r.parse(); ok {
		if v, exists := metrics[metric]; exists {
			msg += fmt.Sprintf(" (%s=%.2f)", metric, v)
		}
	}
	return msg
}

var metricNames = []string{"balance", "equity", "margin", "free_margin", "margin_level", "floating_pl", "drawdown_pct"}

func knownMetric(name string) bool {
	for _, m := range metricNames {
		if m == name {
			return true
		}
	}
	return false
}

// AccountMetrics flattens a snapshot into the values rules can reference.
// margin_level is omitted while no margin is in use.
func AccountMetrics(acct core.AccountSnapshot) map[string]float64 {
	m := map[string]float64{
		"balance":     acct.Balance,
		"equity":      acct.Equity,
		"margin":      acct.Margin,
		"free_margin": acct.FreeMargin,
		"floating_pl": acct.Equity - acct.Balance,
	}
	if acct.Margin > 0 {
		m["margin_level"] = acct.Equity * 100 / acct.Margin
	}
	if acct.Balance > 0 && acct.Equity < acct.Balance {
		m["drawdown_pct"] = (acct.Balance - acct.Equity) * 100 / acct.Balance
	} else {
		m["drawdown_pct"] = 0
	}
	return m
}

package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/pairdash/internal/indicator"
	"github.com/newthinker/pairdash/internal/notifier"
)

type mockNotifier struct {
	received []notifier.Notification
	fail     bool
}

func (m *mockNotifier) Name() string { return "mock" }
func (m *mockNotifier) Notify(ctx context.Context, n notifier.Notification) error {
	m.received = append(m.received, n)
	if m.fail {
		return errors.New("delivery failed")
	}
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRouter(cfg Config) (*Router, *mockNotifier, *clock) {
	mock := &mockNotifier{}
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := New(cfg, mock, nil)
	r.now = c.now
	return r, mock, c
}

func state(id string, s indicator.Signal) indicator.SignalState {
	return indicator.SignalState{StrategyID: id, Signal: s, Correlation: 0.9, RSI1: 75, RSI2: 25, Reason: "pair1 overbought, pair2 oversold"}
}

func TestRouter_Route_PassesFilters(t *testing.T) {
	r, mock, _ := newTestRouter(DefaultConfig())

	sent, err := r.Route(context.Background(), "EURUSD/GBPUSD", state("s1", indicator.SignalEntryShortLong))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sent || len(mock.received) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(mock.received))
	}
	n := mock.received[0]
	if n.Title != "Entry Signal: Short/Long" || n.Kind != notifier.KindInfo {
		t.Errorf("unexpected notification %+v", n)
	}
	if n.Message != "EURUSD/GBPUSD: pair1 overbought, pair2 oversold (correlation 0.90, RSI 75.0 / 25.0)" {
		t.Errorf("unexpected message %q", n.Message)
	}
}

func TestRouter_Route_SkipsWait(t *testing.T) {
	r, mock, _ := newTestRouter(DefaultConfig())

	r.Route(context.Background(), "x", state("s1", indicator.SignalWait))
	if len(mock.received) != 0 {
		t.Error("wait should never notify")
	}
}

func TestRouter_Route_FilterBySignal(t *testing.T) {
	r, mock, _ := newTestRouter(Config{EnabledSignals: []indicator.Signal{indicator.SignalExit}})

	r.Route(context.Background(), "x", state("s1", indicator.SignalEntryLongShort))
	if len(mock.received) != 0 {
		t.Error("disabled signal should be filtered")
	}

	r.Route(context.Background(), "x", state("s1", indicator.SignalExit))
	if len(mock.received) != 1 || mock.received[0].Kind != notifier.KindWarning {
		t.Errorf("expected exit warning, got %+v", mock.received)
	}
}

func TestRouter_Route_RepeatAndCooldown(t *testing.T) {
	r, mock, c := newTestRouter(Config{Cooldown: 10 * time.Minute})
	ctx := context.Background()

	r.Route(ctx, "x", state("s1", indicator.SignalEntryLongShort))
	c.advance(time.Hour)
	// Same signal again is not news.
	r.Route(ctx, "x", state("s1", indicator.SignalEntryLongShort))
	if len(mock.received) != 1 {
		t.Fatalf("repeat signal should be filtered, got %d", len(mock.received))
	}

	r.Route(ctx, "x", state("s1", indicator.SignalExit))
	if len(mock.received) != 2 {
		t.Fatalf("changed signal should notify, got %d", len(mock.received))
	}

	// A flip inside the cooldown is held back.
	c.advance(time.Minute)
	r.Route(ctx, "x", state("s1", indicator.SignalEntryShortLong))
	if len(mock.received) != 2 {
		t.Errorf("signal inside cooldown should be filtered, got %d", len(mock.received))
	}

	// Other strategies are independent.
	r.Route(ctx, "y", state("s2", indicator.SignalEntryShortLong))
	if len(mock.received) != 3 {
		t.Errorf("expected other strategy to notify, got %d", len(mock.received))
	}
}

func TestRouter_ClearCooldown(t *testing.T) {
	r, mock, _ := newTestRouter(Config{Cooldown: time.Hour})
	ctx := context.Background()

	r.Route(ctx, "x", state("s1", indicator.SignalExit))
	r.ClearCooldown("s1")
	r.Route(ctx, "x", state("s1", indicator.SignalExit))

	if len(mock.received) != 2 {
		t.Errorf("expected 2 notifications after clearing, got %d", len(mock.received))
	}
}

func TestRouter_CleanupExpiredCooldowns(t *testing.T) {
	r, _, c := newTestRouter(Config{Cooldown: time.Minute})
	ctx := context.Background()

	r.Route(ctx, "x", state("s1", indicator.SignalExit))
	c.advance(30 * time.Second)
	r.Route(ctx, "y", state("s2", indicator.SignalExit))
	c.advance(100 * time.Second)

	if removed := r.CleanupExpiredCooldowns(); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if got := r.GetStats()["tracked_strategies"]; got != 1 {
		t.Errorf("expected 1 tracked strategy, got %v", got)
	}
}

func TestRouter_Route_NotifierError(t *testing.T) {
	r, mock, _ := newTestRouter(DefaultConfig())
	mock.fail = true

	sent, err := r.Route(context.Background(), "x", state("s1", indicator.SignalExit))
	if err == nil {
		t.Error("expected delivery error")
	}
	if !sent {
		t.Error("the attempt still counts as routed")
	}
}

func TestRouter_NilNotifier(t *testing.T) {
	r := New(DefaultConfig(), nil, nil)
	sent, err := r.Route(context.Background(), "x", state("s1", indicator.SignalExit))
	if err != nil || !sent {
		t.Errorf("expected tracked without error, got %v %v", sent, err)
	}
}

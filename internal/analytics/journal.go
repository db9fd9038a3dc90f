package analytics

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/pairdash/internal/core"
)

// Filter narrows a journal listing. Empty fields match everything.
type Filter struct {
	Symbol   string
	Status   Status
	Strategy string
}

func (f Filter) match(t Trade) bool {
	if f.Symbol != "" && !strings.EqualFold(f.Symbol, t.Symbol) {
		return false
	}
	if f.Status != "" && f.Status != t.Status {
		return false
	}
	if f.Strategy != "" && f.Strategy != t.Strategy {
		return false
	}
	return true
}

// Journal is an in-memory trade store.
type Journal struct {
	mu     sync.RWMutex
	trades []Trade
}

// NewJournal creates a journal holding trades.
func NewJournal(trades ...Trade) *Journal {
	j := &Journal{}
	j.trades = append(j.trades, trades...)
	return j
}

// Lot size bounds accepted for a journal entry.
const (
	MinLots = 0.01
	MaxLots = 10
)

// Add appends t, assigning an ID when it has none. An empty status means open.
func (j *Journal) Add(t Trade) (Trade, error) {
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if err := validateTrade(t); err != nil {
		return Trade{}, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	for _, existing := range j.trades {
		if existing.ID == t.ID {
			return Trade{}, core.WithMessage(core.ErrParamsInvalid, fmt.Sprintf("trade %q already exists", t.ID))
		}
	}
	j.trades = append(j.trades, t)
	return t, nil
}

func validateTrade(t Trade) error {
	invalid := func(format string, args ...any) error {
		return core.WithMessage(core.ErrParamsInvalid, fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return invalid("trade symbol is required")
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return invalid("unknown trade type %q", t.Side)
	}
	if t.Lots < MinLots || t.Lots > MaxLots {
		return invalid("lots must be within [%g,%g], got %g", float64(MinLots), float64(MaxLots), t.Lots)
	}
	switch t.Status {
	case StatusOpen:
	case StatusClosed:
		if t.Profit == nil {
			return invalid("closed trade needs a profit")
		}
		if t.CloseTime == nil {
			return invalid("closed trade needs a close time")
		}
		if t.CloseTime.Before(t.OpenTime) {
			return invalid("close time precedes open time")
		}
	default:
		return invalid("unknown trade status %q", t.Status)
	}
	return nil
}

// List returns the trades matching f in insertion order.
func (j *Journal) List(f Filter) []Trade {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := []Trade{}
	for _, t := range j.trades {
		if f.match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Open returns the trades still running.
func (j *Journal) Open() []Trade {
	return j.List(Filter{Status: StatusOpen})
}

// SampleTrades is the demo trade history the dashboard starts with.
func SampleTrades() []Trade {
	at := func(s string) time.Time {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			panic(err)
		}
		return t
	}
	ptr := func(t time.Time) *time.Time { return &t }
	num := func(v float64) *float64 { return &v }

	const strategy = "RSI Correlation"
	return []Trade{
		{ID: "1", Symbol: "EURUSD", Side: SideBuy, OpenTime: at("2023-11-01T08:30:00Z"), CloseTime: ptr(at("2023-11-01T16:45:00Z")),
			OpenPrice: 1.0578, ClosePrice: num(1.0612), Lots: 0.1, Profit: num(34), Status: StatusClosed, Strategy: strategy},
		{ID: "2", Symbol: "GBPUSD", Side: SideSell, OpenTime: at("2023-11-02T09:15:00Z"), CloseTime: ptr(at("2023-11-02T14:30:00Z")),
			OpenPrice: 1.2365, ClosePrice: num(1.2305), Lots: 0.15, Profit: num(90), Status: StatusClosed, Strategy: strategy},
		{ID: "3", Symbol: "EURUSD", Side: SideSell, OpenTime: at("2023-11-03T10:45:00Z"),
			OpenPrice: 1.0645, Lots: 0.1, Status: StatusOpen, Strategy: strategy},
		{ID: "4", Symbol: "USDJPY", Side: SideBuy, OpenTime: at("2023-11-03T13:20:00Z"),
			OpenPrice: 149.75, Lots: 0.2, Status: StatusOpen, Strategy: strategy},
		{ID: "5", Symbol: "EURUSD", Side: SideBuy, OpenTime: at("2023-10-28T11:30:00Z"), CloseTime: ptr(at("2023-10-29T09:15:00Z")),
			OpenPrice: 1.0592, ClosePrice: num(1.0567), Lots: 0.1, Profit: num(-25), Status: StatusClosed, Strategy: strategy},
	}
}

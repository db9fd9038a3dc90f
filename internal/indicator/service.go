package indicator

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/strategy"
	"go.uber.org/zap"
)

// DefaultLatency is the simulated fetch delay.
const DefaultLatency = time.Second

// StrategySource lists the configured strategies.
type StrategySource interface {
	List(ctx context.Context) ([]strategy.Strategy, error)
}

// FetchRecorder observes how long a fetch took.
type FetchRecorder interface {
	ObserveFetch(d time.Duration)
}

type nopFetchRecorder struct{}

func (nopFetchRecorder) ObserveFetch(time.Duration) {}

// StrategyIndicators bundles the series of one strategy.
type StrategyIndicators struct {
	StrategyID   string                  `json:"strategy_id"`
	StrategyName string                  `json:"strategy_name"`
	Correlation  []core.CorrelationPoint `json:"correlation_data"`
	RSI1         []core.RSIPoint         `json:"rsi_data1"`
	RSI2         []core.RSIPoint         `json:"rsi_data2"`
	Parameters   strategy.Parameters     `json:"parameters"`
	Summary      IndicatorSummary        `json:"summary"`
}

// IndicatorSummary holds one Summary per series.
type IndicatorSummary struct {
	Correlation Summary `json:"correlation"`
	RSI1        Summary `json:"rsi1"`
	RSI2        Summary `json:"rsi2"`
}

// Service generates indicator bundles for the stored strategies.
type Service struct {
	gen        *Generator
	strategies StrategySource
	latency    time.Duration
	logger     *zap.Logger
	metrics    FetchRecorder
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLatency sets the simulated fetch delay. Zero disables it.
func WithLatency(d time.Duration) ServiceOption {
	return func(s *Service) { s.latency = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithFetchRecorder sets the fetch duration recorder.
func WithFetchRecorder(r FetchRecorder) ServiceOption {
	return func(s *Service) { s.metrics = r }
}

// NewService creates an indicator service.
func NewService(gen *Generator, strategies StrategySource, opts ...ServiceOption) *Service {
	s := &Service{
		gen:        gen,
		strategies: strategies,
		latency:    DefaultLatency,
		logger:     zap.NewNop(),
		metrics:    nopFetchRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAll returns one bundle per stored strategy, in store order. Every
// call draws fresh series.
func (s *Service) FetchAll(ctx context.Context) ([]StrategyIndicators, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveFetch(time.Since(start)) }()

	if err := sleep(ctx, s.latency); err != nil {
		return nil, err
	}

	all, err := s.strategies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing strategies: %w", err)
	}

	out := make([]StrategyIndicators, 0, len(all))
	for _, st := range all {
		out = append(out, s.build(st))
	}
	s.logger.Debug("indicators generated", zap.Int("strategies", len(out)))
	return out, nil
}

// FetchByID returns the bundle of one strategy.
func (s *Service) FetchByID(ctx context.Context, id string) (*StrategyIndicators, error) {
	all, err := s.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].StrategyID == id {
			return &all[i], nil
		}
	}
	return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("strategy %q", id))
}

func (s *Service) build(st strategy.Strategy) StrategyIndicators {
	p := st.Parameters
	si := StrategyIndicators{
		StrategyID:   st.ID,
		StrategyName: st.Name,
		Correlation:  s.gen.Correlation(p.CurrencyPair1, p.CurrencyPair2),
		RSI1:         s.gen.RSI(p.CurrencyPair1),
		RSI2:         s.gen.RSI(p.CurrencyPair2),
		Parameters:   p,
	}
	si.Summary = IndicatorSummary{
		Correlation: Summarize(CorrelationValues(si.Correlation), p.CorrelationWindow),
		RSI1:        Summarize(RSIValues(si.RSI1), p.RSIPeriod),
		RSI2:        Summarize(RSIValues(si.RSI2), p.RSIPeriod),
	}
	return si
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

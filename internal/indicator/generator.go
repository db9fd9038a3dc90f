// Package indicator produces the synthetic correlation and RSI series shown
// on the dashboard, plus small helpers to summarise them.
package indicator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/newthinker/pairdash/internal/core"
)

const (
	stepFraction = 0.05
	trendBias    = 0.6
	sampleEvery  = time.Minute

	// SeriesLength is the number of points in a correlation or RSI series.
	SeriesLength = 30
)

// Recorder counts generated series by kind.
type Recorder interface {
	SeriesGenerated(kind string)
}

type nopRecorder struct{}

func (nopRecorder) SeriesGenerated(string) {}

// Generator draws bounded random walks. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	now     func() time.Time
	metrics Recorder
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source, mainly so tests can seed it.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithClock overrides time.Now for the series timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.metrics = r }
}

// NewGenerator creates a generator seeded from the clock unless WithRand is given.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:     time.Now,
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		seed := uint64(time.Now().UnixNano())
		g.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return g
}

// Series returns length points of a random walk that starts at the midpoint
// of [min, max] and never leaves it. Point i is stamped length-i minutes
// before now, so the last point is one minute old.
func (g *Generator) Series(length int, min, max float64, trend core.Trend) ([]core.TimeSeriesPoint, error) {
	switch {
	case length <= 0:
		return nil, core.WithMessage(core.ErrSeriesInvalid, fmt.Sprintf("length must be positive, got %d", length))
	case math.IsNaN(min) || math.IsNaN(max) || !(min < max):
		return nil, core.WithMessage(core.ErrSeriesInvalid, fmt.Sprintf("min must be below max, got [%g, %g]", min, max))
	case !trend.Valid():
		return nil, core.WithMessage(core.ErrSeriesInvalid, fmt.Sprintf("unknown trend %q", trend))
	}

	pts := g.walk(length, min, max, biasFor(trend))
	g.metrics.SeriesGenerated("series")
	return pts, nil
}

// Correlation returns a sideways series in [-1, 1] for the pair.
func (g *Generator) Correlation(pair1, pair2 string) []core.CorrelationPoint {
	pts := g.walk(SeriesLength, -1, 1, 0)
	out := make([]core.CorrelationPoint, len(pts))
	for i, p := range pts {
		out[i] = core.CorrelationPoint{Timestamp: p.Timestamp, Value: p.Value, Pair1: pair1, Pair2: pair2}
	}
	g.metrics.SeriesGenerated("correlation")
	return out
}

// RSI returns a series in [0, 100] for pair whose trend is picked at random
// on every call.
func (g *Generator) RSI(pair string) []core.RSIPoint {
	trend := core.TrendDown
	if g.float() > 0.5 {
		trend = core.TrendUp
	}

	pts := g.walk(SeriesLength, 0, 100, biasFor(trend))
	out := make([]core.RSIPoint, len(pts))
	for i, p := range pts {
		out[i] = core.RSIPoint{Timestamp: p.Timestamp, Value: p.Value, Pair: pair}
	}
	g.metrics.SeriesGenerated("rsi")
	return out
}

func (g *Generator) walk(length int, min, max, bias float64) []core.TimeSeriesPoint {
	now := g.now()
	span := max - min
	value := (min + max) / 2

	g.mu.Lock()
	defer g.mu.Unlock()

	pts := make([]core.TimeSeriesPoint, length)
	for i := 0; i < length; i++ {
		step := ((g.rng.Float64()*2 - 1) + bias) * span * stepFraction
		value = math.Max(min, math.Min(max, value+step))
		pts[i] = core.TimeSeriesPoint{
			Timestamp: now.Add(-time.Duration(length-i) * sampleEvery),
			Value:     value,
		}
	}
	return pts
}

func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

func biasFor(t core.Trend) float64 {
	switch t {
	case core.TrendUp:
		return trendBias
	case core.TrendDown:
		return -trendBias
	}
	return 0
}

package indicator

import "github.com/newthinker/pairdash/internal/core"

// Summary condenses a series for a dashboard card.
type Summary struct {
	Latest        float64 `json:"latest"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Mean          float64 `json:"mean"`
	MovingAverage float64 `json:"moving_average"`
	Window        int     `json:"window"`
	Points        int     `json:"points"`
}

// Summarize computes the card figures for values. The moving average covers
// the last window values; window is clamped to [1, len(values)].
func Summarize(values []float64, window int) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	if window <= 0 || window > len(values) {
		window = len(values)
	}

	s := Summary{
		Latest: values[len(values)-1],
		Min:    values[0],
		Max:    values[0],
		Window: window,
		Points: len(values),
	}
	var sum float64
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))

	if ma := SMA(values, window); len(ma) > 0 {
		s.MovingAverage = ma[len(ma)-1]
	}
	return s
}

// CorrelationValues extracts the values of a correlation series.
func CorrelationValues(pts []core.CorrelationPoint) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

// RSIValues extracts the values of an RSI series.
func RSIValues(pts []core.RSIPoint) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

// SeriesValues extracts the values of a plain series.
func SeriesValues(pts []core.TimeSeriesPoint) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

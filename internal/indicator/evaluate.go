package indicator

import (
	"math"

	"github.com/newthinker/pairdash/internal/strategy"
)

// Signal labels what a strategy would do on the latest readings.
type Signal string

const (
	// SignalEntryLongShort buys pair1 and sells pair2.
	SignalEntryLongShort Signal = "entry_long_short"
	// SignalEntryShortLong sells pair1 and buys pair2.
	SignalEntryShortLong Signal = "entry_short_long"
	SignalExit           Signal = "exit"
	SignalWait           Signal = "wait"
)

// Strength labels the latest correlation against the strategy thresholds.
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// Zone labels an RSI reading.
type Zone string

const (
	ZoneOverbought Zone = "overbought"
	ZoneOversold   Zone = "oversold"
	ZoneNeutral    Zone = "neutral"
)

// SignalState is the evaluation of one strategy bundle.
type SignalState struct {
	StrategyID  string   `json:"strategy_id"`
	Signal      Signal   `json:"signal"`
	Correlation float64  `json:"correlation"`
	RSI1        float64  `json:"rsi1"`
	RSI2        float64  `json:"rsi2"`
	Strength    Strength `json:"correlation_strength,omitempty"`
	RSI1Zone    Zone     `json:"rsi1_zone,omitempty"`
	RSI2Zone    Zone     `json:"rsi2_zone,omitempty"`
	Reason      string   `json:"reason"`
}

// CorrelationStrength is strong above the entry threshold, moderate above
// the exit threshold and weak otherwise. The sign of corr is ignored.
func CorrelationStrength(corr float64, p strategy.Parameters) Strength {
	switch c := math.Abs(corr); {
	case c > p.EntryThreshold:
		return StrengthStrong
	case c > p.ExitThreshold:
		return StrengthModerate
	}
	return StrengthWeak
}

// RSIZone is overbought strictly above the overbought level and oversold
// strictly below the oversold level.
func RSIZone(rsi float64, p strategy.Parameters) Zone {
	switch {
	case rsi > p.RSIOverbought:
		return ZoneOverbought
	case rsi < p.RSIOversold:
		return ZoneOversold
	}
	return ZoneNeutral
}

// Evaluate compares the latest correlation and RSI readings with the
// strategy thresholds. Entries need a strong correlation with the RSIs in
// opposite zones; a weak correlation closes the spread.
func Evaluate(si StrategyIndicators) SignalState {
	st := SignalState{StrategyID: si.StrategyID, Signal: SignalWait}
	if len(si.Correlation) == 0 || len(si.RSI1) == 0 || len(si.RSI2) == 0 {
		st.Reason = "no data"
		return st
	}

	p := si.Parameters
	st.Correlation = si.Correlation[len(si.Correlation)-1].Value
	st.RSI1 = si.RSI1[len(si.RSI1)-1].Value
	st.RSI2 = si.RSI2[len(si.RSI2)-1].Value
	st.Strength = CorrelationStrength(st.Correlation, p)
	st.RSI1Zone = RSIZone(st.RSI1, p)
	st.RSI2Zone = RSIZone(st.RSI2, p)

	switch {
	case st.Strength == StrengthWeak:
		st.Signal = SignalExit
		st.Reason = "correlation below exit threshold"
	case st.Strength == StrengthModerate:
		st.Reason = "correlation below entry threshold"
	case st.RSI1Zone == ZoneOverbought && st.RSI2Zone == ZoneOversold:
		st.Signal = SignalEntryShortLong
		st.Reason = "pair1 overbought, pair2 oversold"
	case st.RSI1Zone == ZoneOversold && st.RSI2Zone == ZoneOverbought:
		st.Signal = SignalEntryLongShort
		st.Reason = "pair1 oversold, pair2 overbought"
	default:
		st.Reason = "no RSI divergence"
	}
	return st
}

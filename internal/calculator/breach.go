package calculator

import (
	"math"

	"SetupSentinel/internal/model"
)

// DefaultBreachTolerance ignores breaks smaller than 0.05% of the level.
const DefaultBreachTolerance = 0.0005

// DetectBreach compares the newest bar with the lookback bars before it.
// It needs lookback+2 bars; with fewer it reports no breach. Resistance is
// checked before support, so a bar breaking both reports resistance.
func DetectBreach(bars []model.OHLCV, lookback int, tol float64) model.Breach {
	n := len(bars)
	if lookback <= 0 || n < lookback+2 {
		return model.Breach{}
	}
	prevHigh, prevLow := trailingRange(bars[n-1-lookback : n-1])
	last := bars[n-1]

	if last.High > prevHigh*(1+tol) {
		return model.Breach{Kind: model.BreachResistance, Level: prevHigh, Distance: last.High - prevHigh}
	}
	if last.Low < prevLow*(1-tol) {
		return model.Breach{Kind: model.BreachSupport, Level: prevLow, Distance: prevLow - last.Low}
	}
	return model.Breach{}
}

// trailingRange returns the highest high and lowest low of bars.
func trailingRange(bars []model.OHLCV) (high, low float64) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}

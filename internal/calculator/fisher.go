package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

const fisherClip = 0.999

// Fisher computes the smoothed Fisher transform of closes over period.
//
// For every index i >= period the close is normalised within the last
// period closes, blended with the previous raw value (0.33/0.67), clipped,
// mapped through 0.5*ln((1+x)/(1-x)) and finally averaged half-and-half
// with the previous output. The first output, at i == period, is the
// unsmoothed transform.
func Fisher(closes []float64, period int) (Series, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	n := len(closes)
	out := undefinedSeries(n)
	if n <= period {
		return out, nil
	}

	highs, lows := windowExtremes(closes, period)

	prevRaw := 0.0
	prevFilt := 0.0
	for i := period; i < n; i++ {
		maxH, minL := highs[i], lows[i]
		raw := 0.0
		if maxH != minL {
			pos := (closes[i] - minL) / (maxH - minL)
			raw = 0.33*2*(pos-0.5) + 0.67*prevRaw
		}
		raw = math.Max(-fisherClip, math.Min(fisherClip, raw))
		prevRaw = raw

		y := 0.5 * math.Log((1+raw)/(1-raw))
		filt := y
		if i > period {
			filt = 0.5*y + 0.5*prevFilt
		}
		prevFilt = filt
		out[i] = filt
	}
	return out, nil
}

// windowExtremes returns the rolling max and min of the period values
// ending at each index.
func windowExtremes(closes []float64, period int) (highs, lows []float64) {
	if period < 2 {
		// talib needs at least two values per window; a one-value window is its own extremum
		return closes, closes
	}
	return talib.Max(closes, period), talib.Min(closes, period)
}

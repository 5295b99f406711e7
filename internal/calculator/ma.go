package calculator

import "github.com/markcheno/go-talib"

// SMA computes the simple moving average of closes over period.
// Values before the window fills are undefined.
func SMA(closes []float64, period int) (Series, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	if len(closes) < period {
		return undefinedSeries(len(closes)), nil
	}
	return fromTalib(talib.Sma(closes, period), period-1), nil
}

// EMA computes the recursive exponential moving average with the given span,
// alpha = 2/(span+1), seeded with the first close and without bias
// adjustment. It is defined from the first index.
func EMA(closes []float64, span int) (Series, error) {
	if span <= 0 {
		return nil, errPeriod
	}
	out := undefinedSeries(len(closes))
	if len(closes) == 0 {
		return out, nil
	}
	alpha := 2.0 / float64(span+1)
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = alpha*closes[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

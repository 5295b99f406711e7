package calculator

import "github.com/markcheno/go-talib"

// Bands holds Bollinger bands aligned with the input closes.
type Bands struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// Bollinger computes SMA(period) ± deviation × the population standard
// deviation of the same window.
func Bollinger(closes []float64, period int, deviation float64) (Bands, error) {
	if period <= 0 {
		return Bands{}, errPeriod
	}
	n := len(closes)
	if n < period {
		return Bands{Upper: undefinedSeries(n), Middle: undefinedSeries(n), Lower: undefinedSeries(n)}, nil
	}
	upper, middle, lower := talib.BBands(closes, period, deviation, deviation, talib.SMA)
	return Bands{
		Upper:  fromTalib(upper, period-1),
		Middle: fromTalib(middle, period-1),
		Lower:  fromTalib(lower, period-1),
	}, nil
}

// Package calculator holds the indicator library and the breach detector.
//
// Every indicator takes a close series and returns a Series of the same
// length. Indices before an indicator's warm-up are NaN; use Defined or
// Last rather than comparing against zero.
package calculator

import (
	"errors"
	"math"
)

var errPeriod = errors.New("period must be positive")

// Series is a derived value aligned by index with a bar sequence.
type Series []float64

func undefinedSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Defined reports whether the value at i exists.
func (s Series) Defined(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// Last returns the newest value and whether it is defined.
func (s Series) Last() (float64, bool) {
	if len(s) == 0 {
		return math.NaN(), false
	}
	v := s[len(s)-1]
	return v, !math.IsNaN(v)
}

// fromTalib converts a talib output, which zero-fills its lookback, into a
// Series with NaN before firstValid.
func fromTalib(out []float64, firstValid int) Series {
	s := Series(out)
	for i := 0; i < firstValid && i < len(s); i++ {
		s[i] = math.NaN()
	}
	return s
}

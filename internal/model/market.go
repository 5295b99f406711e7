package model

import (
	"errors"
	"fmt"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Timeframe identifies a bar interval, in the terminal's naming.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

var timeframeMinutes = map[Timeframe]int{
	M1: 1, M5: 5, M15: 15, M30: 30, H1: 60, H4: 240, D1: 1440,
}

// Minutes returns the bar length in minutes, or 0 for an unknown timeframe.
func (tf Timeframe) Minutes() int {
	return timeframeMinutes[tf]
}

// Duration returns the bar length.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Minutes()) * time.Minute
}

// Valid reports whether tf is a known timeframe.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeMinutes[tf]
	return ok
}

// ErrUnordered is returned when a bar sequence is not strictly increasing in time.
var ErrUnordered = errors.New("bars not strictly increasing in time")

// ValidateBars checks the ordering and price invariants of a bar sequence.
func ValidateBars(bars []OHLCV) error {
	for i, b := range bars {
		if b.Close <= 0 {
			return fmt.Errorf("bar %d at %s: close must be positive, got %v", i, b.Time.Format(time.RFC3339), b.Close)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d at %s: %w", i, b.Time.Format(time.RFC3339), ErrUnordered)
		}
	}
	return nil
}

// Closes extracts the close prices of bars.
func Closes(bars []OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

package strategy

import (
	"math"
	"time"

	"SetupSentinel/internal/calculator"
	"SetupSentinel/internal/config"
	"SetupSentinel/internal/model"
)

// SlowReading is the newest slow-timeframe bar and the indicator values
// aligned with it. Undefined indicator values are NaN.
type SlowReading struct {
	Time       time.Time
	Close      float64
	Oscillator float64 // RSI
	Transform  float64 // Fisher
	Breach     model.Breach
}

// FastReading holds the fast-timeframe values the confirmation stage needs.
type FastReading struct {
	Close    float64
	EMA      float64
	SMAShort float64
	SMALong  float64
	Upper    float64
	Lower    float64
}

// Defined reports whether every value needed for confirmation exists.
func (r FastReading) Defined() bool {
	for _, v := range []float64{r.EMA, r.SMAShort, r.SMALong, r.Upper, r.Lower} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Confirmation is the outcome of the three fast-timeframe conditions.
type Confirmation struct {
	TrendSide bool
	Contained bool
	Touched   bool
}

// OK reports whether all three conditions hold.
func (c Confirmation) OK() bool { return c.TrendSide && c.Contained && c.Touched }

// ReadSlow computes the slow-stage indicators for the newest bar.
func ReadSlow(bars []model.OHLCV, p Params) (SlowReading, error) {
	if len(bars) == 0 {
		return SlowReading{}, errNoBars
	}
	closes := model.Closes(bars)
	rsi, err := calculator.RSI(closes, p.RSIPeriod)
	if err != nil {
		return SlowReading{}, err
	}
	fisher, err := calculator.Fisher(closes, p.FisherPeriod)
	if err != nil {
		return SlowReading{}, err
	}
	last := bars[len(bars)-1]
	osc, _ := rsi.Last()
	tr, _ := fisher.Last()
	return SlowReading{
		Time:       last.Time,
		Close:      last.Close,
		Oscillator: osc,
		Transform:  tr,
		Breach:     calculator.DetectBreach(bars, p.BreachLookback, p.BreachTolerance),
	}, nil
}

// ReadFast computes the fast-stage indicators for the newest bar.
func ReadFast(bars []model.OHLCV, p Params) (FastReading, error) {
	if len(bars) == 0 {
		return FastReading{}, errNoBars
	}
	closes := model.Closes(bars)
	ema, err := calculator.EMA(closes, p.EMAPeriod)
	if err != nil {
		return FastReading{}, err
	}
	short, err := calculator.SMA(closes, p.SMAShort)
	if err != nil {
		return FastReading{}, err
	}
	long, err := calculator.SMA(closes, p.SMALong)
	if err != nil {
		return FastReading{}, err
	}
	bands, err := calculator.Bollinger(closes, p.BandWindow, p.BandDeviation)
	if err != nil {
		return FastReading{}, err
	}

	r := FastReading{Close: closes[len(closes)-1]}
	r.EMA, _ = ema.Last()
	r.SMAShort, _ = short.Last()
	r.SMALong, _ = long.Last()
	r.Upper, _ = bands.Upper.Last()
	r.Lower, _ = bands.Lower.Last()
	return r, nil
}

// EvaluateSlow computes the four slow gates. Undefined indicator values fail
// the gates that read them.
func EvaluateSlow(r SlowReading, p Params) model.ChecklistState {
	return model.ChecklistState{
		Breach:       r.Breach.Found(),
		Divergence:   divergenceGate(r, p.DivergenceThreshold),
		BelowMidline: belowMidlineGate(r, p.Midline),
		TimeWindow:   timeWindowGate(r.Time, p.Location, p.HourRanges),
	}
}

// EvaluateFast checks the three confirmation conditions. ok is false when
// any indicator is still warming up.
func EvaluateFast(r FastReading, p Params) (c Confirmation, ok bool) {
	if !r.Defined() {
		return Confirmation{}, false
	}
	return Confirmation{
		TrendSide: r.SMAShort > r.SMALong,
		Contained: r.Lower < r.Close && r.Close < r.Upper,
		Touched:   math.Abs(r.Close-r.EMA) <= p.TouchTolerance,
	}, true
}

func divergenceGate(r SlowReading, threshold float64) bool {
	if math.IsNaN(r.Oscillator) || math.IsNaN(r.Transform) {
		return false
	}
	return math.Abs(r.Oscillator-r.Transform) >= threshold
}

func belowMidlineGate(r SlowReading, midline float64) bool {
	return !math.IsNaN(r.Oscillator) && r.Oscillator < midline
}

func timeWindowGate(t time.Time, loc *time.Location, ranges []config.HourRange) bool {
	if loc != nil {
		t = t.In(loc)
	}
	h := t.Hour()
	for _, r := range ranges {
		if r.From <= h && h <= r.To {
			return true
		}
	}
	return false
}

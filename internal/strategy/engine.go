package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SetupSentinel/internal/config"
	"SetupSentinel/internal/model"
)

var errNoBars = errors.New("no bars")

// Params are the checklist thresholds and indicator periods for one run.
type Params struct {
	RSIPeriod           int
	FisherPeriod        int
	DivergenceThreshold float64
	Midline             float64
	BreachLookback      int
	BreachTolerance     float64
	EMAPeriod           int
	SMAShort            int
	SMALong             int
	BandWindow          int
	BandDeviation       float64
	TouchTolerance      float64
	HourRanges          []config.HourRange
	Location            *time.Location // zone the hour window is read in
}

// NewParams resolves the strategy section of the configuration.
func NewParams(s config.StrategyConfig) (Params, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return Params{}, fmt.Errorf("load timezone: %w", err)
	}
	return Params{
		RSIPeriod:           s.RSIPeriod,
		FisherPeriod:        s.FisherPeriod,
		DivergenceThreshold: s.DivergenceThreshold,
		Midline:             s.Midline,
		BreachLookback:      s.BreachLookback,
		BreachTolerance:     s.BreachTolerance,
		EMAPeriod:           s.EMAPeriod,
		SMAShort:            s.SMAShort,
		SMALong:             s.SMALong,
		BandWindow:          s.BandWindow,
		BandDeviation:       s.BandDeviation,
		TouchTolerance:      s.TouchTolerance,
		HourRanges:          append([]config.HourRange(nil), s.HourRanges...),
		Location:            loc,
	}, nil
}

// FastSource fetches the fast-timeframe bars when the confirmation stage runs.
type FastSource func(ctx context.Context) ([]model.OHLCV, error)

// Result describes one evaluation cycle.
type Result struct {
	State model.ChecklistState
	Slow  SlowReading

	FastRan bool
	Fast    FastReading
	Confirm Confirmation
	// FastErr is set when the confirmation stage could not read its bars.
	// The slow gates in State are still valid.
	FastErr error
}

// Checklist is the checklist of one instrument. It is owned by a single
// monitoring unit and is not safe for concurrent use.
type Checklist struct {
	Symbol string
	params Params
	state  model.ChecklistState
}

// NewChecklist creates an empty checklist for symbol.
func NewChecklist(symbol string, p Params) *Checklist {
	return &Checklist{Symbol: symbol, params: p}
}

// State returns the result of the last evaluation.
func (c *Checklist) State() model.ChecklistState { return c.state }

// Evaluate runs one cycle over fresh slow bars. The fast source is called
// only when every slow gate holds, and at most once.
func (c *Checklist) Evaluate(ctx context.Context, slowBars []model.OHLCV, fast FastSource) (Result, error) {
	r, err := ReadSlow(slowBars, c.params)
	if err != nil {
		return Result{}, fmt.Errorf("%s slow indicators: %w", c.Symbol, err)
	}
	return c.EvaluateReading(ctx, r, fast), nil
}

// EvaluateReading runs one cycle over precomputed slow values. The stored
// state is replaced, so fast flags from an earlier cycle never survive.
func (c *Checklist) EvaluateReading(ctx context.Context, r SlowReading, fast FastSource) Result {
	res := Result{Slow: r, State: EvaluateSlow(r, c.params)}
	if res.State.SlowReady() && fast != nil {
		res.FastRan = true
		res.Fast, res.Confirm, res.FastErr = c.confirm(ctx, fast)
		if res.Confirm.OK() {
			res.State.RetraceConfirmed = true
			res.State.AllConfirmed = true
		}
	}
	c.state = res.State
	return res
}

func (c *Checklist) confirm(ctx context.Context, fast FastSource) (FastReading, Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return FastReading{}, Confirmation{}, err
	}
	bars, err := fast(ctx)
	if err != nil {
		return FastReading{}, Confirmation{}, err
	}
	fr, err := ReadFast(bars, c.params)
	if err != nil {
		return FastReading{}, Confirmation{}, err
	}
	conf, ok := EvaluateFast(fr, c.params)
	if !ok {
		// still warming up; not an error
		return fr, Confirmation{}, nil
	}
	return fr, conf, nil
}

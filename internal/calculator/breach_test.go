package calculator

import (
	"testing"
	"time"

	"SetupSentinel/internal/model"
)

func flatBars(n int, price float64) []model.OHLCV {
	t0 := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  price,
			High:  price * 1.0002,
			Low:   price * 0.9998,
			Close: price,
		}
	}
	return bars
}

func TestDetectBreach_Flat(t *testing.T) {
	b := DetectBreach(flatBars(50, 1.1), 20, DefaultBreachTolerance)
	if b.Found() {
		t.Errorf("expected no breach on a flat series, got %+v", b)
	}
}

func TestDetectBreach_TooFewBars(t *testing.T) {
	bars := flatBars(21, 1.1)
	bars[20].High = 2
	if b := DetectBreach(bars, 20, DefaultBreachTolerance); b.Found() {
		t.Errorf("expected no signal with fewer than lookback+2 bars, got %+v", b)
	}
}

func TestDetectBreach_Resistance(t *testing.T) {
	bars := flatBars(130, 1.1)
	prevHigh := bars[0].High
	bars[129].High = prevHigh * 1.001

	b := DetectBreach(bars, 20, DefaultBreachTolerance)
	if b.Kind != model.BreachResistance {
		t.Fatalf("expected resistance breach, got %+v", b)
	}
	if b.Level != prevHigh {
		t.Errorf("expected level %v, got %v", prevHigh, b.Level)
	}
	assertClose(t, "distance", b.Distance, prevHigh*0.001, 1e-12)
}

func TestDetectBreach_WithinTolerance(t *testing.T) {
	bars := flatBars(30, 1.1)
	bars[29].High = bars[0].High * 1.0004
	if b := DetectBreach(bars, 20, DefaultBreachTolerance); b.Found() {
		t.Errorf("a 0.04%% break is inside the tolerance, got %+v", b)
	}
}

func TestDetectBreach_Support(t *testing.T) {
	bars := flatBars(30, 1.1)
	prevLow := bars[0].Low
	bars[29].Low = prevLow * 0.998

	b := DetectBreach(bars, 20, DefaultBreachTolerance)
	if b.Kind != model.BreachSupport || b.Level != prevLow {
		t.Fatalf("expected support breach at %v, got %+v", prevLow, b)
	}
}

func TestDetectBreach_ResistanceWinsTie(t *testing.T) {
	bars := flatBars(30, 1.1)
	bars[29].High = bars[0].High * 1.01
	bars[29].Low = bars[0].Low * 0.99

	if b := DetectBreach(bars, 20, DefaultBreachTolerance); b.Kind != model.BreachResistance {
		t.Errorf("expected resistance to win when both sides break, got %+v", b)
	}
}

func TestDetectBreach_IgnoresBarsOutsideWindow(t *testing.T) {
	bars := flatBars(30, 1.1)
	// a spike older than the 20-bar window must not raise the reference high
	bars[5].High = 5
	bars[29].High = bars[0].High * 1.002
	if b := DetectBreach(bars, 20, DefaultBreachTolerance); b.Kind != model.BreachResistance {
		t.Errorf("expected resistance breach, got %+v", b)
	}
}

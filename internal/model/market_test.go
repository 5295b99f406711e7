package model

import (
	"errors"
	"testing"
	"time"
)

func TestValidateBars(t *testing.T) {
	t0 := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	good := []OHLCV{
		{Time: t0, Close: 1.1},
		{Time: t0.Add(time.Hour), Close: 1.2},
	}
	if err := ValidateBars(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateBars(nil); err != nil {
		t.Fatalf("empty sequence should be valid, got %v", err)
	}

	dup := []OHLCV{{Time: t0, Close: 1.1}, {Time: t0, Close: 1.2}}
	if err := ValidateBars(dup); !errors.Is(err, ErrUnordered) {
		t.Errorf("expected ErrUnordered for duplicate timestamps, got %v", err)
	}

	back := []OHLCV{{Time: t0, Close: 1.1}, {Time: t0.Add(-time.Hour), Close: 1.2}}
	if err := ValidateBars(back); !errors.Is(err, ErrUnordered) {
		t.Errorf("expected ErrUnordered for decreasing timestamps, got %v", err)
	}

	zero := []OHLCV{{Time: t0, Close: 0}}
	if err := ValidateBars(zero); err == nil {
		t.Error("expected error for non-positive close")
	}
}

func TestTimeframeMinutes(t *testing.T) {
	tests := []struct {
		tf   Timeframe
		mins int
	}{
		{M1, 1}, {M15, 15}, {H1, 60}, {D1, 1440}, {Timeframe("W1"), 0},
	}
	for _, tt := range tests {
		if got := tt.tf.Minutes(); got != tt.mins {
			t.Errorf("%s: expected %d minutes, got %d", tt.tf, tt.mins, got)
		}
	}
	if Timeframe("W1").Valid() {
		t.Error("W1 should not be a valid timeframe")
	}
}

func TestChecklistState_SlowReady(t *testing.T) {
	s := ChecklistState{Breach: true, Divergence: true, BelowMidline: true}
	if s.SlowReady() {
		t.Error("expected not ready with time window gate false")
	}
	s.TimeWindow = true
	if !s.SlowReady() {
		t.Error("expected ready with all four gates true")
	}
	s.AllConfirmed = true
	if v := s.Flags().Values(); !v[0] || !v[4] || v[3] {
		t.Errorf("unexpected flag values %v", v)
	}
}

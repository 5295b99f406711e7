package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"SetupSentinel/internal/collector"
	"SetupSentinel/internal/config"
	"SetupSentinel/internal/metrics"
	"SetupSentinel/internal/model"
	"SetupSentinel/internal/strategy"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type sent struct{ symbol, title, message string }

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sent
	err   error
	panic bool
}

func (f *fakeNotifier) Notify(_ context.Context, symbol, title, message string) error {
	if f.panic {
		panic("notifier exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{symbol, title, message})
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDisplay struct {
	mu    sync.Mutex
	flags map[string]model.Flags
	lines []string
	first chan struct{}
	once  sync.Once
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{flags: make(map[string]model.Flags), first: make(chan struct{})}
}

func (d *fakeDisplay) Update(symbol string, f model.Flags) {
	d.mu.Lock()
	d.flags[symbol] = f
	d.mu.Unlock()
	d.once.Do(func() { close(d.first) })
}

func (d *fakeDisplay) Log(symbol string, _ time.Time, line string) {
	d.mu.Lock()
	d.lines = append(d.lines, symbol+": "+line)
	d.mu.Unlock()
	if line != "Started monitoring..." {
		d.once.Do(func() { close(d.first) })
	}
}

func (d *fakeDisplay) has(substr string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// fallingBars returns hourly bars with steadily falling closes ending at
// end; the last bar spikes above the prior range.
func fallingBars(n int, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := 2.0 - float64(i)*0.001
		bars[i] = model.OHLCV{
			Time:  end.Add(-time.Duration(n-1-i) * time.Hour),
			Open:  c + 0.0005,
			High:  c + 0.0005,
			Low:   c - 0.0005,
			Close: c,
		}
	}
	bars[n-1].High = 2.5
	return bars
}

// risingBars returns M15 bars climbing slowly enough to stay near EMA(50).
func risingBars(n int) []model.OHLCV {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := 1.1 + float64(i)*1e-5
		bars[i] = model.OHLCV{Time: start.Add(time.Duration(i) * 15 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

type harness struct {
	sup     *Supervisor
	fetcher *collector.MockFetcher
	notif   *fakeNotifier
	disp    *fakeDisplay
	metrics *metrics.Metrics
	clock   time.Time
}

func newHarness(t *testing.T, cooldown time.Duration) *harness {
	t.Helper()
	cfg := config.Default()
	params, err := strategy.NewParams(cfg.Strategy)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	h := &harness{
		fetcher: collector.NewMockFetcher(),
		notif:   &fakeNotifier{},
		disp:    newFakeDisplay(),
		metrics: metrics.New(),
		clock:   time.Date(2025, 3, 5, 15, 0, 30, 0, time.UTC),
	}
	h.sup = NewSupervisor([]string{"EURUSD"}, time.Second, cooldown, Deps{
		Collector: collector.NewCollector(h.fetcher, cfg.Slow, cfg.Fast),
		Params:    params,
		Notifier:  h.notif,
		Display:   h.disp,
		Metrics:   h.metrics,
		Health:    metrics.NewHealth(time.Minute),
	})
	h.sup.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) runCycle() {
	h.sup.cycle(context.Background(), h.sup.units[0])
}

func (h *harness) cycles(result string) float64 {
	return testutil.ToFloat64(h.metrics.Cycles.WithLabelValues("EURUSD", result))
}

func TestCycle_NoSlowData(t *testing.T) {
	h := newHarness(t, 0)
	h.runCycle()

	if !h.disp.has("No H1 data yet") {
		t.Errorf("expected a no-data log line, got %v", h.disp.lines)
	}
	if h.cycles(metrics.ResultNoData) != 1 {
		t.Error("expected one no_data cycle")
	}
	if h.notif.count() != 0 {
		t.Error("no notification expected")
	}
}

func TestCycle_ErrorsAreContained(t *testing.T) {
	h := newHarness(t, 0)
	h.fetcher.Err = errors.New("terminal disconnected")
	h.runCycle()
	h.runCycle()

	if h.cycles(metrics.ResultError) != 2 {
		t.Errorf("expected two failed cycles, got %v", h.cycles(metrics.ResultError))
	}
	if !h.disp.has("Error: fetch EURUSD H1 bars: terminal disconnected") {
		t.Errorf("expected the error in the log, got %v", h.disp.lines)
	}

	h.fetcher.Err = nil
	h.fetcher.SetBars("EURUSD", model.H1, fallingBars(130, time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)))
	h.runCycle()
	if h.cycles(metrics.ResultOK) != 1 {
		t.Error("unit should recover on the next cycle")
	}
}

func TestCycle_FullConfirmation(t *testing.T) {
	h := newHarness(t, 0)
	h.fetcher.SetBars("EURUSD", model.H1, fallingBars(130, time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)))
	h.fetcher.SetBars("EURUSD", model.M15, risingBars(450))
	h.runCycle()

	want := []sent{
		{"EURUSD", "H1", "Conditions met, checking M15..."},
		{"EURUSD", "M15", "Retrace confirmed, ALL conditions met!"},
	}
	if h.notif.count() != 2 {
		t.Fatalf("expected 2 notifications, got %+v (log %v)", h.notif.sent, h.disp.lines)
	}
	for i, w := range want {
		if h.notif.sent[i] != w {
			t.Errorf("notification %d: expected %+v, got %+v", i, w, h.notif.sent[i])
		}
	}
	f := h.disp.flags["EURUSD"]
	if f.Values() != [5]bool{true, true, true, true, true} {
		t.Errorf("expected every flag set, got %+v", f)
	}
	if got := testutil.ToFloat64(h.metrics.Confirmations.WithLabelValues("EURUSD")); got != 1 {
		t.Errorf("expected one confirmation, got %v", got)
	}
	if h.fetcher.Calls() != 2 {
		t.Errorf("expected slow and fast fetches, got %d", h.fetcher.Calls())
	}

	// repeated confirmations keep notifying without a cooldown
	h.runCycle()
	if h.notif.count() != 4 {
		t.Errorf("expected 4 notifications after a second cycle, got %d", h.notif.count())
	}
}

func TestCycle_OutsideWindowSkipsFastStage(t *testing.T) {
	h := newHarness(t, 0)
	h.fetcher.SetBars("EURUSD", model.H1, fallingBars(130, time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)))
	h.fetcher.SetBars("EURUSD", model.M15, risingBars(450))
	h.runCycle()

	if h.fetcher.Calls() != 1 {
		t.Errorf("fast bars must not be fetched, got %d calls", h.fetcher.Calls())
	}
	if h.notif.count() != 0 {
		t.Errorf("no notification expected, got %+v", h.notif.sent)
	}
	f := h.disp.flags["EURUSD"]
	if !f.Breach || !f.Divergence || !f.BelowMidline || f.RetraceConfirmed || f.AllConfirmed {
		t.Errorf("unexpected flags %+v", f)
	}
}

func TestCycle_MissingFastData(t *testing.T) {
	h := newHarness(t, 0)
	h.fetcher.SetBars("EURUSD", model.H1, fallingBars(130, time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)))
	h.runCycle()

	if h.notif.count() != 1 || h.notif.sent[0].title != "H1" {
		t.Errorf("expected only the slow-stage notification, got %+v", h.notif.sent)
	}
	if !h.disp.has("No M15 data yet") {
		t.Errorf("expected fast no-data log, got %v", h.disp.lines)
	}
	if h.cycles(metrics.ResultOK) != 1 {
		t.Error("a missing fast window still completes the cycle")
	}
}

func TestCycle_Cooldown(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.fetcher.SetBars("EURUSD", model.H1, fallingBars(130, time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)))
	h.fetcher.SetBars("EURUSD", model.M15, risingBars(450))

	h.runCycle()
	h.clock = h.clock.Add(30 * time.Second)
	h.runCycle()
	if h.notif.count() != 2 {
		t.Errorf("expected repeats suppressed inside the cooldown, got %d", h.notif.count())
	}
	h.clock = h.clock.Add(time.Minute)
	h.runCycle()
	if h.notif.count() != 4 {
		t.Errorf("expected delivery after the cooldown, got %d", h.notif.count())
	}
}

func TestCycle_NotifierFailureIsSwallowed(t *testing.T) {
	for _, tc := range []struct {
		name string
		n    *fakeNotifier
	}{
		{"error", &fakeNotifier{err: errors.New("chat not found")}},
		{"panic", &fakeNotifier{panic: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, 0)
			h.sup.Notifier = tc.n
			h.fetcher.SetBars("EURUSD", model.H1, fallingBars(130, time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)))
			h.fetcher.SetBars("EURUSD", model.M15, risingBars(450))
			h.runCycle()

			if got := testutil.ToFloat64(h.metrics.NotifyFailures.WithLabelValues("EURUSD")); got != 2 {
				t.Errorf("expected 2 delivery failures, got %v", got)
			}
			if h.cycles(metrics.ResultOK) != 1 || !h.disp.flags["EURUSD"].AllConfirmed {
				t.Error("evaluation must not depend on delivery")
			}
		})
	}
}

func TestCycle_CancelledContext(t *testing.T) {
	h := newHarness(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.sup.cycle(ctx, h.sup.units[0])
	if h.fetcher.Calls() != 0 {
		t.Error("a cancelled unit must not fetch")
	}
}

func TestSupervisor_StartStop(t *testing.T) {
	h := newHarness(t, 0)
	h.fetcher.SetBars("EURUSD", model.H1, fallingBars(130, time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)))

	if err := h.sup.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-h.disp.first:
	case <-time.After(5 * time.Second):
		h.sup.Stop()
		t.Fatal("first cycle did not run")
	}

	done := make(chan struct{})
	go func() {
		h.sup.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return")
	}
	if !h.disp.has("Started monitoring...") {
		t.Error("expected start log line")
	}

	calls := h.fetcher.Calls()
	time.Sleep(1500 * time.Millisecond)
	if h.fetcher.Calls() != calls {
		t.Error("cycles ran after Stop")
	}
}

package collector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"SetupSentinel/internal/config"
	"SetupSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu    sync.RWMutex
	bars  map[string][]model.OHLCV
	Err   error
	calls atomic.Int64
}

// NewMockFetcher creates an empty mock source.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{bars: make(map[string][]model.OHLCV)}
}

func (m *MockFetcher) Name() string                    { return "mock" }
func (m *MockFetcher) Connect(_ context.Context) error { return m.Err }
func (m *MockFetcher) Close() error                    { return nil }

// SetBars replaces the bars served for symbol and tf.
func (m *MockFetcher) SetBars(symbol string, tf model.Timeframe, bars []model.OHLCV) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[mockKey(symbol, tf)] = bars
}

// Calls returns how many FetchBars calls were made.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

func (m *MockFetcher) FetchBars(_ context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	bars, ok := m.bars[mockKey(symbol, tf)]
	if !ok || len(bars) == 0 {
		return nil, ErrNoData
	}
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	out := make([]model.OHLCV, len(bars))
	copy(out, bars)
	return out, nil
}

func mockKey(symbol string, tf model.Timeframe) string {
	return symbol + "/" + string(tf)
}

// GenerateBars builds count bars of tf ending at end, drifting around basePrice.
func GenerateBars(basePrice float64, tf model.Timeframe, count int, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.0001)
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * tf.Duration()),
			Open:   p * 0.9999,
			High:   p * 1.0005,
			Low:    p * 0.9995,
			Close:  p,
			Volume: 1000,
		}
	}
	return bars
}

// Collector fetches validated bar windows for the configured timeframes.
type Collector struct {
	Fetcher Fetcher
	Slow    config.TimeframeConfig
	Fast    config.TimeframeConfig
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, slow, fast config.TimeframeConfig) *Collector {
	return &Collector{Fetcher: fetcher, Slow: slow, Fast: fast}
}

// SlowBars returns the latest slow-timeframe window for symbol.
func (c *Collector) SlowBars(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	return c.collect(ctx, symbol, c.Slow)
}

// FastBars returns the latest fast-timeframe window for symbol.
func (c *Collector) FastBars(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	return c.collect(ctx, symbol, c.Fast)
}

func (c *Collector) collect(ctx context.Context, symbol string, tfc config.TimeframeConfig) ([]model.OHLCV, error) {
	bars, err := c.Fetcher.FetchBars(ctx, symbol, tfc.Timeframe, tfc.Lookback)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s bars: %w", symbol, tfc.Timeframe, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s %s bars: %w", symbol, tfc.Timeframe, ErrNoData)
	}
	if len(bars) > tfc.Lookback {
		bars = bars[len(bars)-tfc.Lookback:]
	}
	if err := model.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("%s %s bars: %w", symbol, tfc.Timeframe, err)
	}
	return bars, nil
}

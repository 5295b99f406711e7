package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"SetupSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL     string
	Client      *http.Client
	SymbolMap   map[string]string // maps internal symbol to Yahoo ticker
	ProbeSymbol string            // queried by Connect
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"XAUUSD": "GC=F",
			"XAGUSD": "SI=F",
			"SPX500": "^GSPC",
			"US30":   "^DJI",
			"NAS100": "^NDX",
		},
		ProbeSymbol: "EURUSD",
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// Connect checks that the chart API answers for the probe symbol.
func (f *YahooFetcher) Connect(ctx context.Context) error {
	if _, err := f.fetchChart(ctx, f.ProbeSymbol, "1d", "5d"); err != nil {
		return fmt.Errorf("yahoo connect: %w", err)
	}
	return nil
}

func (f *YahooFetcher) Close() error {
	f.Client.CloseIdleConnections()
	return nil
}

// yahooSymbol maps an internal symbol to a Yahoo ticker. Six-letter
// currency pairs get the "=X" suffix Yahoo uses for FX.
func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	if isCurrencyPair(symbol) {
		return symbol + "=X"
	}
	return symbol
}

func isCurrencyPair(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func valueAt(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return toFloat(vals[i])
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o := valueAt(quote.Open, i)
		h := valueAt(quote.High, i)
		l := valueAt(quote.Low, i)
		c := valueAt(quote.Close, i)
		if o == 0 || h == 0 || l == 0 || c == 0 {
			continue // skip null bars (market closed, partial prints)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: valueAt(quote.Volume, i),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return dedupe(bars), nil
}

// dedupe keeps the last bar of any run sharing a timestamp; Yahoo repeats
// the live bar at the end of intraday charts.
func dedupe(bars []model.OHLCV) []model.OHLCV {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// yahooInterval returns the chart interval to request for tf and, when
// Yahoo has no native interval, the bucket to resample into.
func yahooInterval(tf model.Timeframe) (interval string, resampleTo time.Duration, err error) {
	switch tf {
	case model.M1:
		return "1m", 0, nil
	case model.M5:
		return "5m", 0, nil
	case model.M15:
		return "15m", 0, nil
	case model.M30:
		return "30m", 0, nil
	case model.H1:
		return "60m", 0, nil
	case model.H4:
		return "60m", 4 * time.Hour, nil
	case model.D1:
		return "1d", 0, nil
	default:
		return "", 0, fmt.Errorf("yahoo: unsupported timeframe %q", tf)
	}
}

// yahooRange picks the smallest chart range covering count bars of tf,
// allowing for weekends, within Yahoo's intraday history limits.
func yahooRange(tf model.Timeframe, count int) string {
	days := float64(count*tf.Minutes()) / (24 * 60) * 7 / 5
	var maxRange string
	switch tf {
	case model.M1:
		maxRange = "5d"
	case model.M5, model.M15, model.M30:
		maxRange = "1mo"
	case model.H1, model.H4:
		maxRange = "2y"
	default:
		maxRange = "10y"
	}
	for _, r := range []struct {
		name string
		days float64
	}{
		{"1d", 1}, {"5d", 5}, {"1mo", 30}, {"3mo", 90}, {"6mo", 180},
		{"1y", 365}, {"2y", 730}, {"5y", 1825}, {"10y", 3650},
	} {
		if r.name == maxRange || days < r.days {
			return r.name
		}
	}
	return maxRange
}

func (f *YahooFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	interval, bucket, err := yahooInterval(tf)
	if err != nil {
		return nil, err
	}
	fetchCount := count
	if bucket > 0 {
		fetchCount = count * int(bucket/time.Hour)
	}
	bars, err := f.fetchChart(ctx, symbol, interval, yahooRange(tf, fetchCount))
	if err != nil {
		return nil, err
	}
	if bucket > 0 {
		bars = resample(bars, bucket)
	}
	// Trim to requested count
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

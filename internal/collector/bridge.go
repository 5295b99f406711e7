package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"SetupSentinel/internal/model"
)

// BridgeFetcher implements Fetcher over the REST bridge that exposes a
// trading terminal's rate history.
type BridgeFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewBridgeFetcher creates a new fetcher with optional proxy support.
func NewBridgeFetcher(baseURL, apiKey, proxyURL string) *BridgeFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BridgeFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *BridgeFetcher) Name() string { return "bridge" }

// bridgeBar is the expected JSON shape from the bridge API.
type bridgeBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Connect verifies the bridge is up and logged in to its terminal.
func (f *BridgeFetcher) Connect(ctx context.Context) error {
	resp, err := f.get(ctx, f.BaseURL+"/api/v1/ping")
	if err != nil {
		return fmt.Errorf("bridge connect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge connect: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (f *BridgeFetcher) Close() error {
	f.Client.CloseIdleConnections()
	return nil
}

func (f *BridgeFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	q.Set("limit", strconv.Itoa(count))

	resp, err := f.get(ctx, f.BaseURL+"/api/v1/bars?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}

	var raw []bridgeBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoData
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *BridgeFetcher) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	return f.Client.Do(req)
}

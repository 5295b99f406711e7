package collector

import (
	"context"
	"errors"

	"SetupSentinel/internal/model"
)

// ErrNoData is returned when a source has no bars for the request.
var ErrNoData = errors.New("no data")

// Fetcher is a market-data session. Connect is called once before any
// monitoring starts; FetchBars must be safe for concurrent use.
type Fetcher interface {
	Connect(ctx context.Context) error
	// FetchBars returns up to count of the most recent bars, oldest first.
	FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error)
	Close() error
	Name() string
}

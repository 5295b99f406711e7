package collector

import (
	"context"

	"SetupSentinel/internal/logger"
	"SetupSentinel/internal/model"

	"go.uber.org/zap"
)

// RecordingFetcher mirrors every window served by Fetcher into a SQLite
// store, so a live session can later be replayed with the sqlite source.
type RecordingFetcher struct {
	Fetcher
	Store *SQLiteFetcher
}

// NewRecordingFetcher wraps inner, recording into store.
func NewRecordingFetcher(inner Fetcher, store *SQLiteFetcher) *RecordingFetcher {
	return &RecordingFetcher{Fetcher: inner, Store: store}
}

func (r *RecordingFetcher) Name() string { return r.Fetcher.Name() + "+record" }

// Connect opens the inner session first, then the store.
func (r *RecordingFetcher) Connect(ctx context.Context) error {
	if err := r.Fetcher.Connect(ctx); err != nil {
		return err
	}
	return r.Store.Connect(ctx)
}

func (r *RecordingFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	bars, err := r.Fetcher.FetchBars(ctx, symbol, tf, count)
	if err != nil {
		return nil, err
	}
	// a failed write only loses history
	if err := r.Store.StoreBars(ctx, symbol, tf, bars); err != nil {
		logger.Warn("record bars", zap.String("symbol", symbol), zap.String("timeframe", string(tf)), zap.Error(err))
	}
	return bars, nil
}

func (r *RecordingFetcher) Close() error {
	err := r.Fetcher.Close()
	if serr := r.Store.Close(); err == nil {
		err = serr
	}
	return err
}

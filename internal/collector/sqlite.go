package collector

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"SetupSentinel/internal/logger"
	"SetupSentinel/internal/model"

	"go.uber.org/zap"
)

// SQLiteFetcher serves bars from a local SQLite store, for offline runs
// against history exported from a terminal.
type SQLiteFetcher struct {
	Path string

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteFetcher creates a fetcher for the database at path. The file is
// opened by Connect.
func NewSQLiteFetcher(path string) *SQLiteFetcher {
	return &SQLiteFetcher{Path: path}
}

func (f *SQLiteFetcher) Name() string { return "sqlite" }

// Connect opens (or creates) the database and runs migrations.
func (f *SQLiteFetcher) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite", f.Path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets an exporter append while units read.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	f.mu.Lock()
	f.db = db
	f.mu.Unlock()
	logger.Info("sqlite bar store opened", zap.String("path", f.Path))
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			symbol    TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			volume    REAL,
			PRIMARY KEY (symbol, timeframe, ts)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

func (f *SQLiteFetcher) conn() (*sql.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil, fmt.Errorf("sqlite: not connected")
	}
	return f.db, nil
}

func (f *SQLiteFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	db, err := f.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT ts, open, high, low, close, volume
		FROM bars WHERE symbol = ? AND timeframe = ?
		ORDER BY ts DESC LIMIT ?`, symbol, string(tf), count)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var ts int64
		var b model.OHLCV
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	// newest first from the query
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// StoreBars upserts bars for symbol and tf.
func (f *SQLiteFetcher) StoreBars(ctx context.Context, symbol string, tf model.Timeframe, bars []model.OHLCV) error {
	db, err := f.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO bars
		(symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, string(tf), b.Time.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert bar %s: %w", b.Time.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

func (f *SQLiteFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil
	}
	logger.Info("closing sqlite bar store")
	err := f.db.Close()
	f.db = nil
	return err
}

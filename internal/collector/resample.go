package collector

import (
	"time"

	"SetupSentinel/internal/model"
)

// resample merges bars into buckets of length d aligned to the Unix epoch.
// Each bucket keeps its first open, last close, the extreme high/low and the
// summed volume, and is stamped with the bucket start.
func resample(bars []model.OHLCV, d time.Duration) []model.OHLCV {
	if len(bars) == 0 {
		return nil
	}
	var out []model.OHLCV
	var cur model.OHLCV
	started := false

	for _, b := range bars {
		start := b.Time.Truncate(d)
		if !started || !start.Equal(cur.Time) {
			if started {
				out = append(out, cur)
			}
			cur = model.OHLCV{Time: start, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			started = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	return append(out, cur)
}

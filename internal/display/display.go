// Package display shows the per-instrument checklist and its log.
package display

import (
	"time"

	"SetupSentinel/internal/logger"
	"SetupSentinel/internal/model"

	"go.uber.org/zap"
)

// Display receives checklist updates. Calls must not block the caller.
type Display interface {
	Update(symbol string, flags model.Flags)
	Log(symbol string, at time.Time, line string)
}

// LogDisplay writes checklist updates to the application log, for headless runs.
type LogDisplay struct{}

// NewLogDisplay creates a log-backed display.
func NewLogDisplay() *LogDisplay {
	return &LogDisplay{}
}

func (LogDisplay) Update(symbol string, f model.Flags) {
	logger.Debug("checklist",
		zap.String("symbol", symbol),
		zap.Bool("breach", f.Breach),
		zap.Bool("divergence", f.Divergence),
		zap.Bool("below_midline", f.BelowMidline),
		zap.Bool("retrace", f.RetraceConfirmed),
		zap.Bool("all", f.AllConfirmed))
}

func (LogDisplay) Log(symbol string, at time.Time, line string) {
	logger.Info(line, zap.String("symbol", symbol), zap.Time("at", at))
}

// Package notifier delivers checklist alerts to external channels.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"SetupSentinel/internal/logger"

	"go.uber.org/zap"
)

// Notifier delivers one alert for an instrument.
type Notifier interface {
	Notify(ctx context.Context, symbol, title, message string) error
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(_ context.Context, symbol, title, message string) error {
	logger.Info("alert",
		zap.String("symbol", symbol),
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// Multi fans an alert out to every notifier. A failing channel does not
// stop delivery to the others.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, symbol, title, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, symbol, title, message); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

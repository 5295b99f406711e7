package logger

import "github.com/robfig/cron/v3"

// CronLogger routes the scheduler's own messages into zap. Scheduler
// housekeeping (wake, run, skip) is logged at debug level.
type CronLogger struct{}

var _ cron.Logger = CronLogger{}

func (CronLogger) Info(msg string, keysAndValues ...interface{}) {
	Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

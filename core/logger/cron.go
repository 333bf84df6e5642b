package logger

import "go.uber.org/zap"

// CronLogger adapts a zap logger to the cron.Logger interface so scheduler
// activity shows up in the application log.
type CronLogger struct {
	l *zap.Logger
}

// NewCronLogger wraps l for use with the cron scheduler.
func NewCronLogger(l *zap.Logger) *CronLogger {
	return &CronLogger{l: l}
}

func (c *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, zap.Any("details", keysAndValues))
}

func (c *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}

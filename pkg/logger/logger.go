package logger

import (
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.Logger = zap.NewNop()

// Init 初始化全局 logger；sentryDSN 为空时不上报
func Init(level string, sentryDSN string) error {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	if sentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: sentryDSN}); err != nil {
			return err
		}
	}
	base = l
	return nil
}

func Info(msg string, fields ...zap.Field)  { base.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { base.Warn(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { base.Debug(msg, fields...) }

// Error logs at error level and forwards the message to sentry when configured.
func Error(msg string, fields ...zap.Field) {
	base.Error(msg, fields...)
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.CaptureMessage(msg)
	}
}

// Sync flushes buffered log entries and pending sentry events.
func Sync() {
	_ = base.Sync()
	sentry.Flush(2 * time.Second)
}

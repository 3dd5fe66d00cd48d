// Package logging builds the process-wide zap logger. Output always goes to
// stdout; when an OpenTelemetry logger provider is supplied, log records are
// mirrored to it through the otelzap bridge.
package logging

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger construction options.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// New creates a zap logger from config. otelProvider can be nil to disable
// OTEL output.
func New(cfg Config, otelProvider log.LoggerProvider) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	stdout := zapcore.NewCore(newEncoder(cfg.Format), zapcore.AddSync(os.Stdout), level)

	core := stdout
	if otelProvider != nil {
		otelCore := otelzap.NewCore("optimd",
			otelzap.WithLoggerProvider(otelProvider),
		)
		core = zapcore.NewTee(stdout, otelCore)
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Sync flushes buffered entries, swallowing the harmless errors syncing
// stdout returns on Linux.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", level)
	}
}

// isStdoutSyncError reports whether err is the EINVAL or ENOTTY that syncing
// stdout produces on Linux.
func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}

// Package obs wires structured logging and OpenTelemetry tracing/metrics the
// way the reference architecture's pkg/logging and pkg/telemetry do. Setup
// installs process-wide OpenTelemetry providers, and the zap bridge below
// reads the global logger provider.
package obs

import (
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the narrow logging surface detectors, the gateway, and the
// scanner depend on, so they can be driven by a *zap.Logger in production
// and a test double in unit tests.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

type zapLogger struct {
	logger *zap.Logger
}

// NewLogger builds a zap logger bridged to the OTel logs pipeline, console
// output at the requested level.
func NewLogger(levelStr string) (Logger, error) {
	zapLevel, err := ParseLevel(levelStr)
	if err != nil {
		zapLevel = zap.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zapLevel,
	)
	otelCore := otelzap.NewCore("arbfind", otelzap.WithLoggerProvider(global.GetLoggerProvider()))
	combined := zapcore.NewTee(consoleCore, otelCore)

	return &zapLogger{logger: zap.New(combined, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

// ParseLevel maps a config string onto a zapcore.Level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zap.DebugLevel, nil
	case "INFO", "":
		return zap.InfoLevel, nil
	case "WARN":
		return zap.WarnLevel, nil
	case "ERROR":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, &levelError{level}
	}
}

type levelError struct{ level string }

func (e *levelError) Error() string { return "invalid log level: " + e.level }

func fieldsToZap(fields []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		out = append(out, zap.Any(key, fields[i+1]))
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...interface{}) { l.logger.Debug(msg, fieldsToZap(fields)...) }
func (l *zapLogger) Info(msg string, fields ...interface{})  { l.logger.Info(msg, fieldsToZap(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...interface{})  { l.logger.Warn(msg, fieldsToZap(fields)...) }
func (l *zapLogger) Error(msg string, fields ...interface{}) { l.logger.Error(msg, fieldsToZap(fields)...) }

func (l *zapLogger) With(fields ...interface{}) Logger {
	return &zapLogger{logger: l.logger.With(fieldsToZap(fields)...)}
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}

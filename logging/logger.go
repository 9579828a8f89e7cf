package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface for structured logging.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, fields ...zap.Field)
	// Info logs a message at InfoLevel.
	Info(msg string, fields ...zap.Field)
	// Warn logs a message at WarnLevel.
	Warn(msg string, fields ...zap.Field)
	// Error logs a message at ErrorLevel.
	Error(msg string, fields ...zap.Field)

	// Debugf logs a formatted message at DebugLevel.
	Debugf(format string, args ...any)
	// Infof logs a formatted message at InfoLevel.
	Infof(format string, args ...any)
	// Warnf logs a formatted message at WarnLevel.
	Warnf(format string, args ...any)
	// Errorf logs a formatted message at ErrorLevel.
	Errorf(format string, args ...any)

	// With creates a child logger with additional fields.
	With(fields ...zap.Field) Logger
	// WithError creates a child logger with an error field.
	WithError(err error) Logger
	// Named creates a child logger with the given name.
	Named(name string) Logger
	// AtLeast creates a child logger that drops entries below level.
	AtLeast(level zapcore.Level) Logger
	// Enabled reports whether entries at level would be written.
	Enabled(level zapcore.Level) bool

	// Zap returns the underlying *zap.Logger.
	Zap() *zap.Logger
	// Sync flushes any buffered log entries.
	Sync() error
}

// zapLogger wraps *zap.Logger to implement the Logger interface.
type zapLogger struct {
	zl *zap.Logger
	sl *zap.SugaredLogger
}

// NewLogger creates a new Logger from the given Config, writing console
// output to stdout.
func NewLogger(config Config) Logger {
	return NewLoggerTo(config, os.Stdout)
}

// NewLoggerTo creates a new Logger whose console output goes to w. A nil w
// disables console output regardless of config.Output.
func NewLoggerTo(config Config, w io.Writer) Logger {
	config.applyDefaults()

	var console zapcore.WriteSyncer
	if w != nil {
		console = zapcore.Lock(zapcore.AddSync(w))
	}
	cores := getZapCores(config, console)
	zapLog := zap.New(zapcore.NewTee(cores...))

	if config.ShowLineNumber {
		zapLog = zapLog.WithOptions(zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return newZapLogger(zapLog)
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return newZapLogger(zap.NewNop())
}

// newZapLogger wraps an existing *zap.Logger as a Logger.
func newZapLogger(zl *zap.Logger) Logger {
	return &zapLogger{
		zl: zl,
		sl: zl.Sugar(),
	}
}

// FromZap wraps an existing *zap.Logger as a Logger.
func FromZap(zl *zap.Logger) Logger {
	if zl == nil {
		return Nop()
	}
	return newZapLogger(zl)
}

// VerbosityLevel maps the forge debug switch to the minimum level a container logs at.
func VerbosityLevel(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) {
	l.zl.Debug(msg, fields...)
}

func (l *zapLogger) Info(msg string, fields ...zap.Field) {
	l.zl.Info(msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...zap.Field) {
	l.zl.Warn(msg, fields...)
}

func (l *zapLogger) Error(msg string, fields ...zap.Field) {
	l.zl.Error(msg, fields...)
}

func (l *zapLogger) Debugf(format string, args ...any) {
	l.sl.Debugf(format, args...)
}

func (l *zapLogger) Infof(format string, args ...any) {
	l.sl.Infof(format, args...)
}

func (l *zapLogger) Warnf(format string, args ...any) {
	l.sl.Warnf(format, args...)
}

func (l *zapLogger) Errorf(format string, args ...any) {
	l.sl.Errorf(format, args...)
}

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return newZapLogger(l.zl.With(fields...))
}

func (l *zapLogger) WithError(err error) Logger {
	return newZapLogger(l.zl.With(zap.Error(err)))
}

func (l *zapLogger) Named(name string) Logger {
	return newZapLogger(l.zl.Named(name))
}

// AtLeast never lowers the level of the wrapped core; asking for a lower
// level than the core allows returns an equivalent logger.
func (l *zapLogger) AtLeast(level zapcore.Level) Logger {
	if !l.zl.Core().Enabled(level) {
		return l
	}
	return newZapLogger(l.zl.WithOptions(zap.IncreaseLevel(level)))
}

func (l *zapLogger) Enabled(level zapcore.Level) bool {
	return l.zl.Core().Enabled(level)
}

func (l *zapLogger) Zap() *zap.Logger {
	return l.zl
}

func (l *zapLogger) Sync() error {
	return l.zl.Sync()
}

// Ensure zapLogger implements Logger.
var _ Logger = (*zapLogger)(nil)

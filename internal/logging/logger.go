// Package logging is the persistent log sink. Every entry is written to a
// rotating file; entries logged with Echo are also printed to the console.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pingcap/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeLayout is the timestamp format of file entries.
const TimeLayout = "2006-01-02 15:04:05"

// Config controls the file sink.
type Config struct {
	File       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger writes to the file sink and optionally echoes to the console.
type Logger struct {
	file    *zap.Logger
	console *zap.Logger
	closers []func() error
}

// New opens the file sink described by cfg. Echoed messages go to console;
// a nil console disables echo.
func New(cfg Config, console io.Writer) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.Annotatef(err, "invalid log level %q", cfg.Level)
		}
		level = l
	}

	if err := probe(cfg.File); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	buffered := &zapcore.BufferedWriteSyncer{
		WS:            zapcore.AddSync(rotator),
		Size:          64 * 1024,
		FlushInterval: time.Second,
	}

	fileCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(FileEncoderConfig()),
		zapcore.Lock(buffered),
		zap.NewAtomicLevelAt(level),
	)

	var consoleCore zapcore.Core = zapcore.NewNopCore()
	if console != nil {
		consoleCore = zapcore.NewCore(
			zapcore.NewConsoleEncoder(ConsoleEncoderConfig()),
			zapcore.Lock(zapcore.AddSync(console)),
			zapcore.InfoLevel,
		)
	}

	l := NewWithCores(fileCore, consoleCore)
	l.closers = append(l.closers, buffered.Stop, rotator.Close)
	return l, nil
}

// NewWithCores builds a Logger over arbitrary cores, e.g. zaptest observers.
func NewWithCores(file, console zapcore.Core) *Logger {
	return &Logger{
		file:    zap.New(file),
		console: zap.New(console),
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return NewWithCores(zapcore.NewNopCore(), zapcore.NewNopCore())
}

// FileEncoderConfig renders "2006-01-02 15:04:05 - info - message {fields}".
func FileEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		EncodeLevel:      zapcore.LowercaseLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	}
}

// ConsoleEncoderConfig renders the bare message.
func ConsoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// With returns a Logger that adds fields to every entry. The returned
// Logger shares sinks with l and must not be closed separately.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		file:    l.file.With(fields...),
		console: l.console.With(fields...),
	}
}

// Log writes msg to the file sink and, when echo is set, to the console.
func (l *Logger) Log(level zapcore.Level, msg string, echo bool, fields ...zap.Field) {
	if ce := l.file.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
	if echo {
		if ce := l.console.Check(level, msg); ce != nil {
			ce.Write()
		}
	}
}

// Echo logs an info entry to both sinks.
func (l *Logger) Echo(msg string, fields ...zap.Field) {
	l.Log(zapcore.InfoLevel, msg, true, fields...)
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.Log(zapcore.DebugLevel, msg, false, fields...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.Log(zapcore.InfoLevel, msg, false, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.Log(zapcore.WarnLevel, msg, false, fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.Log(zapcore.ErrorLevel, msg, false, fields...)
}

// Close flushes buffered entries and closes the file.
func (l *Logger) Close() error {
	_ = l.file.Sync()
	_ = l.console.Sync()

	var firstErr error
	for _, c := range l.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.closers = nil
	return firstErr
}

// probe fails early when the log file cannot be created.
func probe(path string) error {
	if path == "" {
		return errors.New("log file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Annotatef(err, "create log directory %s", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Annotatef(err, "open log file %s", path)
	}
	return f.Close()
}

// Package logging builds the zap loggers used by the pendant. The terminal
// belongs to the pendant UI, so logs go to a size rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects where and how much to log.
type Config struct {
	// File is the log file path. An empty path disables logging.
	File       string `koanf:"file" json:"file"`
	Level      string `koanf:"level" json:"level"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups"`
	Compress   bool   `koanf:"compress" json:"compress"`
}

// DefaultConfig logs at info level to jog-pendant.log in the user's
// cache directory.
func DefaultConfig() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		File:       filepath.Join(dir, "jog-pendant", "jog-pendant.log"),
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// Validate checks the level name and rotation limits.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	if c.MaxSizeMB < 0 {
		return fmt.Errorf("log max size cannot be negative")
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("log max backups cannot be negative")
	}
	return nil
}

// NewEncoderConfig returns the encoder settings for log files.
func NewEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. The returned closer flushes and closes the
// log file.
func New(cfg Config) (*zap.Logger, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.File == "" {
		return zap.NewNop(), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	level, _ := zapcore.ParseLevel(cfg.Level)
	sink := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(NewEncoderConfig()),
		zapcore.AddSync(sink),
		zap.NewAtomicLevelAt(level),
	)
	logger := zap.New(core, zap.AddCaller())
	return logger, closerFunc(func() error {
		_ = logger.Sync()
		return sink.Close()
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewObserved returns a logger that records every entry at or above level in
// memory, for tests.
func NewObserved(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

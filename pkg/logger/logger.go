// Package logger owns the process-wide zap logger. Named loggers are cheap
// children of the root and pick up reconfiguration done through Init.
package logger

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var root atomic.Pointer[zap.Logger]

func init() {
	l, err := newZap("info", "json")
	if err != nil {
		l = zap.NewNop()
	}
	root.Store(l)
}

// Init rebuilds the root logger. format is "json" or "console".
func Init(level, format string) error {
	l, err := newZap(level, format)
	if err != nil {
		return err
	}
	old := root.Swap(l)
	_ = old.Sync()
	return nil
}

func Root() *zap.Logger {
	return root.Load()
}

// Named returns a sugared logger scoped to name.
func Named(name string) (*zap.SugaredLogger, error) {
	if name == "" {
		return nil, fmt.Errorf("logger name is required")
	}
	return Root().Named(name).Sugar(), nil
}

func MustNamed(name string) *zap.SugaredLogger {
	l, err := Named(name)
	if err != nil {
		panic(err)
	}
	return l
}

func Sync() error {
	return Root().Sync()
}

func newZap(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel

	return cfg.Build(zap.AddCallerSkip(0))
}

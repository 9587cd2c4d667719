// Package log is the context-aware face of pkg/logger. Every call appends the
// request-scoped fields published with WithFields.
package log

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nguyentranbao-ct/livechat/pkg/ctxval"
	"github.com/nguyentranbao-ct/livechat/pkg/logger"
)

type fieldsKey struct{}

// WithFields records key/value pairs on a ctxval-wrapped context so that
// later log calls on any derived context include them.
func WithFields(ctx context.Context, keysAndValues ...any) {
	ctxval.Update(ctx, fieldsKey{}, func(cur []any) []any {
		out := make([]any, 0, len(cur)+len(keysAndValues))
		out = append(out, cur...)
		return append(out, keysAndValues...)
	})
}

func Fields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctxval.Get[fieldsKey, []any](ctx, fieldsKey{})
	return fields
}

func sugar() *zap.SugaredLogger {
	return logger.Root().WithOptions(zap.AddCallerSkip(2)).Sugar()
}

func withCtx(ctx context.Context, keysAndValues []any) []any {
	fields := Fields(ctx)
	if len(fields) == 0 {
		return keysAndValues
	}
	out := make([]any, 0, len(fields)+len(keysAndValues))
	out = append(out, fields...)
	return append(out, keysAndValues...)
}

func Debugw(ctx context.Context, msg string, keysAndValues ...any) {
	Logw(ctx, zapcore.DebugLevel, msg, keysAndValues...)
}

func Infow(ctx context.Context, msg string, keysAndValues ...any) {
	Logw(ctx, zapcore.InfoLevel, msg, keysAndValues...)
}

func Warnw(ctx context.Context, msg string, keysAndValues ...any) {
	Logw(ctx, zapcore.WarnLevel, msg, keysAndValues...)
}

func Errorw(ctx context.Context, msg string, keysAndValues ...any) {
	Logw(ctx, zapcore.ErrorLevel, msg, keysAndValues...)
}

func Infof(ctx context.Context, template string, args ...any) {
	sugar().With(Fields(ctx)...).Infof(template, args...)
}

func Warnf(ctx context.Context, template string, args ...any) {
	sugar().With(Fields(ctx)...).Warnf(template, args...)
}

func Errorf(ctx context.Context, template string, args ...any) {
	sugar().With(Fields(ctx)...).Errorf(template, args...)
}

// Logw logs at a level chosen at runtime, e.g. from a status code.
func Logw(ctx context.Context, level zapcore.Level, msg string, keysAndValues ...any) {
	l := sugar()
	kv := withCtx(ctx, keysAndValues)
	switch level {
	case zapcore.DebugLevel:
		l.Debugw(msg, kv...)
	case zapcore.InfoLevel:
		l.Infow(msg, kv...)
	case zapcore.WarnLevel:
		l.Warnw(msg, kv...)
	default:
		l.Errorw(msg, kv...)
	}
}

func Fatal(args ...any) {
	logger.Root().Sugar().Fatal(args...)
}

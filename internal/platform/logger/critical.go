package logger

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Critical logs msg at LevelCritical on l, or on the default logger when l is
// nil. The record is attributed to the caller of Critical.
func Critical(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	if l == nil {
		l = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, LevelCritical) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(2, pcs[:]) // skip [Callers, Critical]
	r := slog.NewRecord(time.Now(), LevelCritical, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

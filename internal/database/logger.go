package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// queryLogger sends gorm output through slog.
type queryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
}

// NewGormLogger logs failed and slow statements only.
func NewGormLogger(l *slog.Logger) logger.Interface {
	return &queryLogger{log: l.With(slog.String("component", "store")), level: logger.Warn}
}

func (q *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	out := *q
	out.level = level
	return &out
}

func (q *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if q.level >= logger.Info {
		q.log.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if q.level >= logger.Warn {
		q.log.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if q.level >= logger.Error {
		q.log.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace reports one statement. Missing rows are an expected outcome of
// lookups and are never logged as failures.
func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl slog.Level
		msg string
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= logger.Error:
		lvl, msg = slog.LevelError, "statement failed"
	case elapsed > slowQuery && q.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "slow statement"
	case q.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "statement"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	q.log.LogAttrs(ctx, lvl, msg, attrs...)
}

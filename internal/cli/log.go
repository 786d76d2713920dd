package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a logger with short wall-clock timestamps ("14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// step times one command step and logs it with structured fields:
//
//	14:32:01.45 INFO validated tables=3 elapsed=12ms
type step struct {
	logger *log.Logger
	start  time.Time
}

func startStep(l *log.Logger) step {
	return step{logger: l, start: time.Now()}
}

// done logs msg with keyvals plus the elapsed time, rounded to milliseconds.
func (s step) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(s.start).Round(time.Millisecond))
	s.logger.Info(msg, keyvals...)
}

type loggerKey struct{}

// withLogger attaches l to ctx for the subcommands.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the attached logger, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

package logsvc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/trezcool/kodi/core"
)

// ConsoleLogger writes leveled, structured records to a terminal.
type ConsoleLogger struct {
	logger *slog.Logger
	exit   func(code int)
}

var _ core.Logger = (*ConsoleLogger)(nil)

// NewConsoleLogger writes colored text when color is set, JSON lines otherwise.
func NewConsoleLogger(w io.Writer, level slog.Leveler, color bool) *ConsoleLogger {
	if w == nil {
		w = os.Stdout
	}
	var handler slog.Handler
	if color {
		handler = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.DateTime})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return &ConsoleLogger{logger: slog.New(handler), exit: os.Exit}
}

func (l *ConsoleLogger) log(level slog.Level, msg string, args []interface{}) {
	if !l.logger.Enabled(context.Background(), level) {
		return
	}
	e := parseArgs(args)
	attrs := make([]any, 0, len(e.extras)+4)
	if e.err != nil {
		attrs = append(attrs, tint.Err(e.err))
	}
	for k, v := range e.fields() {
		if k == "error" {
			continue
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.Log(context.Background(), level, msg, attrs...)
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.log(slog.LevelDebug, msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.log(slog.LevelInfo, msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.log(slog.LevelWarn, msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.log(slog.LevelError, msg, args) }

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.log(slog.LevelError+4, msg, args)
	l.exit(1)
}

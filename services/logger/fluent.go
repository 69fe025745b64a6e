package logsvc

import (
	"log/slog"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
)

// poster is the subset of *fluent.Fluent used by FluentLogger.
type poster interface {
	Post(tag string, message interface{}) error
	Close() error
}

// FluentLogger forwards records to a Fluentd/Fluent Bit forwarder, tagged by level.
type FluentLogger struct {
	client   poster
	minLevel slog.Level
	app      string
	env      string
}

var _ core.Logger = (*FluentLogger)(nil)

// NewFluentLogger connects lazily: errors only surface when posting.
func NewFluentLogger(conf *core.Config) (*FluentLogger, error) {
	client, err := fluent.New(fluent.Config{
		FluentHost: conf.Logging.FluentHost,
		FluentPort: conf.Logging.FluentPort,
		TagPrefix:  conf.Logging.FluentTag,
		Async:      true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating fluent client")
	}
	return newFluentLogger(client, ParseLevel(conf.Logging.Level), conf.AppName, conf.Env), nil
}

func newFluentLogger(client poster, minLevel slog.Level, app, env string) *FluentLogger {
	return &FluentLogger{client: client, minLevel: minLevel, app: app, env: env}
}

func (l *FluentLogger) post(level slog.Level, tag, msg string, args []interface{}) {
	if level < l.minLevel {
		return
	}
	data := parseArgs(args).fields()
	data["level"] = tag
	data["message"] = msg
	data["app"] = l.app
	data["env"] = l.env
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	_ = l.client.Post(tag, data)
}

func (l *FluentLogger) Debug(msg string, args ...interface{}) {
	l.post(slog.LevelDebug, "debug", msg, args)
}

func (l *FluentLogger) Info(msg string, args ...interface{}) {
	l.post(slog.LevelInfo, "info", msg, args)
}

func (l *FluentLogger) Warn(msg string, args ...interface{}) {
	l.post(slog.LevelWarn, "warn", msg, args)
}

func (l *FluentLogger) Error(msg string, args ...interface{}) {
	l.post(slog.LevelError, "error", msg, args)
}

// Fatal only posts: exiting is left to the other loggers of a MultiLogger.
func (l *FluentLogger) Fatal(msg string, args ...interface{}) {
	l.post(slog.LevelError, "fatal", msg, args)
}

func (l *FluentLogger) Close() error {
	return l.client.Close()
}

package logsvc

import (
	"log"
	"os"

	"github.com/trezcool/kodi/core"
)

// MultiLogger fans every record out to several loggers.
// Fatal notifies every logger before exiting, so loggers should not exit on their own.
type MultiLogger struct {
	loggers []core.Logger
	exit    func(code int)
}

var _ core.Logger = (*MultiLogger)(nil)

func NewMultiLogger(loggers ...core.Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers, exit: os.Exit}
}

func (m *MultiLogger) Debug(msg string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Debug(msg, args...)
	}
}

func (m *MultiLogger) Info(msg string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Info(msg, args...)
	}
}

func (m *MultiLogger) Warn(msg string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Warn(msg, args...)
	}
}

func (m *MultiLogger) Error(msg string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Error(msg, args...)
	}
}

func (m *MultiLogger) Fatal(msg string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Error(msg, args...)
	}
	m.exit(1)
}

// New builds the process logger from the config: console and/or fluent, plus rollbar when a token is set.
// Fatal goes through the MultiLogger so that every backend is notified before exiting.
// The returned closer flushes the remote loggers.
func New(conf *core.Config) (core.Logger, func()) {
	level := ParseLevel(conf.Logging.Level)
	var (
		loggers []core.Logger
		closers []func()
	)
	console := NewConsoleLogger(os.Stdout, level, conf.Debug)
	if conf.Logging.Console {
		loggers = append(loggers, console)
	}
	if conf.Logging.FluentHost != "" {
		fl, err := NewFluentLogger(conf)
		if err != nil {
			console.Error("fluent logger disabled", err)
		} else {
			loggers = append(loggers, fl)
			closers = append(closers, func() { _ = fl.Close() })
		}
	}
	if conf.RollbarToken != "" {
		rl := NewRollbarLogger(log.New(os.Stderr, "", log.LstdFlags), conf)
		loggers = append(loggers, rl)
		closers = append(closers, rl.Close)
	}
	if len(loggers) == 0 {
		loggers = append(loggers, console)
	}

	return NewMultiLogger(loggers...), func() {
		for _, c := range closers {
			c()
		}
	}
}

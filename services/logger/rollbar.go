package logsvc

import (
	"log"
	"regexp"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/kodi/core"
)

// sensitiveFields are scrubbed from every Rollbar item.
var sensitiveFields = regexp.MustCompile(`(?i)password|secret|token|^uid$|authorization|ssn|bank|account_number|routing`)

// RollbarLogger reports to Rollbar. Fatal also exits the process through std.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetScrubFields(sensitiveFields)
	rollbar.SetScrubHeaders(sensitiveFields)
	rollbar.SetCustom(map[string]interface{}{"app": conf.AppName})
	rollbar.SetEnabled(conf.RollbarToken != "")
	return &RollbarLogger{std: std}
}

// report sends one item, attributed to the user found in args and carrying their roles.
func (l RollbarLogger) report(level, msg string, args []interface{}) {
	e := parseArgs(args)
	if e.usr != nil {
		rollbar.SetPerson(e.usr.ID, e.usr.Username, e.usr.Email)
	} else {
		rollbar.ClearPerson()
	}

	extras := e.fields()
	delete(extras, "error")
	if e.err != nil {
		extras["message"] = msg
		rollbar.ErrorWithExtras(level, e.err, extras)
		return
	}
	rollbar.MessageWithExtras(level, msg, extras)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.DEBUG, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}

// Close waits for pending reports.
func (l RollbarLogger) Close() {
	rollbar.Wait()
}

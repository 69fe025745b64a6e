package logsvc

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/trezcool/kodi/core/user"
)

// entry is a log call split into its parts.
// expected args: error, map[string]interface{} extras, user.User; anything else is kept as is.
type entry struct {
	err    error
	extras map[string]interface{}
	usr    *user.User
	rest   []interface{}
}

func parseArgs(args []interface{}) entry {
	var e entry
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			if e.err == nil {
				e.err = a
			}
		case map[string]interface{}:
			if e.extras == nil {
				e.extras = make(map[string]interface{}, len(a))
			}
			for k, v := range a {
				e.extras[k] = v
			}
		case user.User:
			if e.usr == nil {
				usr := a
				e.usr = &usr
			}
		default:
			e.rest = append(e.rest, arg)
		}
	}
	return e
}

// fields flattens the entry into a single map.
func (e entry) fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(e.extras)+4)
	for k, v := range e.extras {
		fields[k] = v
	}
	if e.err != nil {
		fields["error"] = e.err.Error()
	}
	if e.usr != nil {
		fields["user_id"] = e.usr.ID
		fields["username"] = e.usr.Username
		if len(e.usr.Roles) > 0 {
			fields["roles"] = strings.Join(e.usr.Roles, ",")
		}
	}
	for i, v := range e.rest {
		fields[fmt.Sprintf("arg%d", i)] = fmt.Sprintf("%+v", v)
	}
	return fields
}

// ParseLevel maps a config level name to a slog.Level (info on unknown names).
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SPDX-License-Identifier: MIT

package validate

import "strings"

// LogLevel is a validated logger verbosity name, as accepted on the
// --log-level flag and the TALOS_LOG_LEVEL override.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = map[LogLevel]struct{}{
	LogLevelDebug: {},
	LogLevelInfo:  {},
	LogLevelWarn:  {},
	LogLevelError: {},
}

func (l LogLevel) String() string { return string(l) }

// ParseLogLevel validates a level name, tolerating case.
func ParseLogLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(s))
	if _, ok := logLevels[level]; !ok {
		return "", Error{
			Field:   "logLevel",
			Value:   s,
			Message: "must be one of: debug, info, warn, error",
		}
	}
	return level, nil
}

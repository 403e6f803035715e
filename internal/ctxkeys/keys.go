// Package ctxkeys defines the typed context keys shared across the
// service, mirroring the teacher's libs/context key registry.
package ctxkeys

// Key is the type for all context keys used by this module.
type Key string

const (
	// Logger holds the *zerolog.Logger attached to a request/task context.
	Logger Key = "logger"
	// LogLevel holds the zerolog.Level override for a context.
	LogLevel Key = "log_level"
	// Environment holds the deployment environment name ("local", "staging", "production").
	Environment Key = "environment"
	// DebugLogging enables verbose request/response dumping.
	DebugLogging Key = "debug_logging"
	// RequestID correlates a single inbound HTTP request across log lines.
	RequestID Key = "request_id"
)

// Package logging wires zerolog into the service the way the teacher's
// libs/logging package does: a logger is set up once, attached to a
// context, and retrieved with FromContext everywhere downstream.
package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/cosmasken/paymebro-backend-sub000/internal/ctxkeys"
)

// SetupLogger creates a logger appropriate for the environment named in ctx
// (console-pretty for "local", structured JSON otherwise) and returns a new
// context carrying it.
func SetupLogger(ctx context.Context) (context.Context, *zerolog.Logger) {
	env, _ := ctx.Value(ctxkeys.Environment).(string)
	if env == "" {
		env = "local"
	}

	var w zerolog.ConsoleWriter
	var l zerolog.Logger
	if env == "local" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		l = zerolog.New(w)
	} else {
		l = zerolog.New(os.Stdout)
	}
	l = l.With().Timestamp().Logger()

	level := zerolog.InfoLevel
	if lvl, ok := ctx.Value(ctxkeys.LogLevel).(zerolog.Level); ok {
		level = lvl
	}
	l = l.Level(level)

	if debug, ok := ctx.Value(ctxkeys.DebugLogging).(bool); ok && debug {
		l = l.Level(zerolog.DebugLevel)
	}

	ctx = l.WithContext(ctx)
	ctx = context.WithValue(ctx, ctxkeys.Logger, &l)
	return ctx, &l
}

// UpdateContext replaces the logger attached to ctx, returning the new context.
func UpdateContext(ctx context.Context, logger zerolog.Logger) (context.Context, *zerolog.Logger) {
	ctx = logger.WithContext(ctx)
	ctx = context.WithValue(ctx, ctxkeys.Logger, &logger)
	return ctx, &logger
}

// FromContext retrieves the logger attached to ctx, or lazily creates one.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l, ok := ctx.Value(ctxkeys.Logger).(*zerolog.Logger); ok && l != nil {
		return l
	}
	_, l := SetupLogger(ctx)
	return l
}

// Module returns a child logger tagged with the given module name, the way
// the teacher's logging.Logger(ctx, prefix) helper does for its payments
// service.
func Module(ctx context.Context, name string) *zerolog.Logger {
	l := FromContext(ctx).With().Str("module", name).Logger()
	return &l
}

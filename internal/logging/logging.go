// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging provides standardized structured-logger construction
// for the service and its subcommands.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Config defines logging settings, sourced from config (spec §6).
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the log output format (json, text).
	Format string
	// AddSource includes source file and line number in log entries.
	AddSource bool
}

// New creates a configured slog.Logger from cfg.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

type contextKey struct{}

var loggerKey = contextKey{}

// NewContext returns a new context with logger attached.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from ctx, or slog.Default() if none
// was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Canonical field names shared by every access-decision log entry the
// REST handlers write
// (spec §6 "log events carry group, subject, and outcome fields").
const (
	FieldEvent = "event"
	FieldGroup = "group"
)

// AccessDecision logs one access-decision event (a join execution or
// a deferral) under the shared event/group field names, so the
// fields a log pipeline keys off never drift between call sites.
// extra is appended as additional key/value pairs, e.g. "expiry",
// membership.Expiry().
func AccessDecision(ctx context.Context, logger *slog.Logger, event, groupID string, extra ...any) {
	args := append([]any{FieldEvent, event, FieldGroup, groupID}, extra...)
	logger.InfoContext(ctx, "access_decision", args...)
}

// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package logging provides a structured logging interface compatible with slog
// levels and common logging utilities shared by the benchmarking components.
package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Common logging levels for structured logging.
const (
	LevelTrace = slog.Level(-8) // most verbose
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError // least verbose
)

// UnknownLogValue is the placeholder text used when logging nil or unknown values.
const UnknownLogValue = "<unknown>"

// maxLogTextLength bounds single-line previews of long texts such as questions.
const maxLogTextLength = 80

// Logger defines a generic logging interface following slog style with log levels.
// It provides structured logging capabilities for both regular messages and error handling.
type Logger interface {
	// Message logs a message at the specified level with optional format arguments.
	Message(ctx context.Context, level slog.Level, msg string, args ...any)

	// Error logs an error at the specified level with optional format arguments.
	Error(ctx context.Context, level slog.Level, err error, msg string, args ...any)

	// WithContext returns a new Logger that appends the specified context to the existing prefix.
	// Each call extends the prefix chain without affecting the original logger instance.
	WithContext(context string) Logger
}

// FormatLogDuration formats a duration pointer for logging, rounded to milliseconds.
// If the pointer is nil, it returns a placeholder value.
func FormatLogDuration(value *time.Duration) string {
	if value != nil {
		return value.Round(time.Millisecond).String()
	}
	return UnknownLogValue
}

// FormatLogText formats a slice of strings for logging with
// tab indentation and double-newline separation.
// If the slice is empty, it returns a tab-indented placeholder value.
func FormatLogText(lines []string) string {
	if len(lines) > 0 {
		return "\t" + strings.Join(lines, "\n\n\t")
	}
	return "\t" + UnknownLogValue
}

// FormatLogPreview collapses whitespace in text and truncates it to a short single-line preview.
func FormatLogPreview(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if collapsed == "" {
		return UnknownLogValue
	}
	if runes := []rune(collapsed); len(runes) > maxLogTextLength {
		return string(runes[:maxLogTextLength-3]) + "..."
	}
	return collapsed
}

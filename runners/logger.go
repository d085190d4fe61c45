// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/rs/zerolog"
)

// EmittingLogger implements the logging.Logger interface on top of zerolog
// and additionally emits every line as a message event of a run, so that a
// live monitor can follow the experiment.
type EmittingLogger struct {
	logger  zerolog.Logger
	emitter eventEmitter
	prefix  string
}

// NewEmittingLogger creates a new EmittingLogger that writes to logger
// and emits each line through emitter.
func NewEmittingLogger(logger zerolog.Logger, emitter eventEmitter) logging.Logger {
	return &EmittingLogger{
		logger:  logger,
		emitter: emitter,
	}
}

// NewZerologLogger creates a logging.Logger that only writes to logger.
func NewZerologLogger(logger zerolog.Logger) logging.Logger {
	return &EmittingLogger{
		logger: logger,
	}
}

// Message logs a message at the specified level with optional format arguments.
func (l *EmittingLogger) Message(ctx context.Context, level slog.Level, msg string, args ...any) {
	l.log(level, nil, msg, args...)
}

// Error logs an error at the specified level with optional format arguments.
// The emitted line carries the error text after the message.
func (l *EmittingLogger) Error(ctx context.Context, level slog.Level, err error, msg string, args ...any) {
	l.log(level, err, msg, args...)
}

// WithContext returns a new Logger that appends the specified context to the existing prefix.
func (l *EmittingLogger) WithContext(context string) logging.Logger {
	return &EmittingLogger{
		logger:  l.logger,
		emitter: l.emitter,
		prefix:  l.prefix + context,
	}
}

func (l *EmittingLogger) log(level slog.Level, err error, msg string, args ...any) {
	line := l.prefix + fmt.Sprintf(msg, args...)
	event := l.logger.WithLevel(toZerologLevel(level))
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(line)

	if l.emitter == nil {
		return
	}
	if err != nil {
		line = fmt.Sprintf("%s: %v", line, err)
	}
	l.emitter.emitMessageEvent(line)
}

func toZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < logging.LevelDebug:
		return zerolog.TraceLevel
	case level < logging.LevelInfo:
		return zerolog.DebugLevel
	case level < logging.LevelWarn:
		return zerolog.InfoLevel
	case level < logging.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

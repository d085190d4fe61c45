// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package testutils

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/rs/zerolog"
)

// LoggedMessage is a single message recorded by TestLogger.
type LoggedMessage struct {
	Level   slog.Level
	Message string
	Err     error
}

// TestLogger is a logger implementation for testing that wraps zerolog and integrates
// with the Go testing framework. Messages are written through the test writer
// and recorded so tests can assert on what was logged.
type TestLogger struct {
	logger   zerolog.Logger
	prefix   string
	recorder *messageRecorder
}

type messageRecorder struct {
	mu       sync.Mutex
	messages []LoggedMessage
}

// NewTestLogger creates a new TestLogger that outputs to the test framework.
func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{
		logger:   zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel),
		recorder: &messageRecorder{},
	}
}

// getEvent maps slog levels to zerolog events.
func (tl *TestLogger) getEvent(level slog.Level) *zerolog.Event {
	switch {
	case level < slog.LevelDebug:
		return tl.logger.Trace()
	case level < slog.LevelInfo:
		return tl.logger.Debug()
	case level < slog.LevelWarn:
		return tl.logger.Info()
	case level < slog.LevelError:
		return tl.logger.Warn()
	default:
		return tl.logger.Error()
	}
}

func (tl *TestLogger) record(level slog.Level, msg string, err error) {
	tl.recorder.mu.Lock()
	defer tl.recorder.mu.Unlock()
	tl.recorder.messages = append(tl.recorder.messages, LoggedMessage{Level: level, Message: msg, Err: err})
}

// Message logs a message at the specified level with optional formatting arguments.
func (tl *TestLogger) Message(ctx context.Context, level slog.Level, msg string, args ...any) {
	formattedMsg := tl.prefix + fmt.Sprintf(msg, args...)
	tl.record(level, formattedMsg, nil)
	tl.getEvent(level).Msg(formattedMsg)
}

// Error logs an error message at the specified level with optional formatting arguments.
func (tl *TestLogger) Error(ctx context.Context, level slog.Level, err error, msg string, args ...any) {
	formattedMsg := tl.prefix + fmt.Sprintf(msg, args...)
	tl.record(level, formattedMsg, err)
	tl.getEvent(level).Err(err).Msg(formattedMsg)
}

// WithContext returns a new logger with additional context.
// The derived logger shares the message record of its parent.
func (tl *TestLogger) WithContext(context string) logging.Logger {
	return &TestLogger{
		logger:   tl.logger,
		prefix:   tl.prefix + context,
		recorder: tl.recorder,
	}
}

// Messages returns a copy of all messages logged at or above the given level.
func (tl *TestLogger) Messages(minLevel slog.Level) []LoggedMessage {
	tl.recorder.mu.Lock()
	defer tl.recorder.mu.Unlock()
	var out []LoggedMessage
	for _, m := range tl.recorder.messages {
		if m.Level >= minLevel {
			out = append(out, m)
		}
	}
	return out
}

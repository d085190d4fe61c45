// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package assistants implements the client side of the assistant API under test:
// sending a question to an assistant, waiting for its answer and classifying
// failures into timeouts, network errors and API errors.
package assistants

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a call to an assistant failed.
type ErrorKind int

const (
	// Timeout means the assistant did not answer within the call deadline.
	Timeout ErrorKind = iota
	// NetworkError means the request could not be delivered or the connection failed.
	NetworkError
	// APIError means the API returned a definitive failure.
	APIError
)

func (k ErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case NetworkError:
		return "network error"
	case APIError:
		return "api error"
	}
	return "unknown"
}

// AskError describes a failed call to an assistant.
type AskError struct {
	Kind    ErrorKind
	Message string
	// StatusCode is the HTTP status of an APIError, or 0 when not applicable.
	StatusCode int
	Cause      error
}

func (e *AskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AskError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewAskError creates a new AskError of the given kind.
func NewAskError(kind ErrorKind, cause error, format string, args ...any) *AskError {
	return &AskError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsTimeout reports whether err represents an unresponsive assistant,
// either as an AskError of kind Timeout or as an expired context deadline.
func IsTimeout(err error) bool {
	var askErr *AskError
	if errors.As(err, &askErr) {
		return askErr.Kind == Timeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Answer is the outcome of a successful call to an assistant.
type Answer struct {
	// Text is the answer with follow-up suggestions removed and reference markers resolved.
	Text string
	// ChatID identifies the conversation created for the question.
	ChatID string
	// DebugInfo holds named metrics reported by the assistant. It is not interpreted by the runner.
	DebugInfo map[string]any
}

// Assistant asks questions to assistants identified by ID.
// Implementations must honor the context deadline as the per-call timeout.
type Assistant interface {
	Ask(ctx context.Context, assistantID string, question string) (Answer, error)
}

// AssistantFunc adapts a function to the Assistant interface.
type AssistantFunc func(ctx context.Context, assistantID string, question string) (Answer, error)

// Ask calls f.
func (f AssistantFunc) Ask(ctx context.Context, assistantID string, question string) (Answer, error) {
	return f(ctx, assistantID, question)
}

// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package providers implements connectors to the AI model services used to
// generate golden (reference) answers for benchmark questions.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"golang.org/x/exp/constraints"
)

var (
	// ErrUnknownProviderName is returned when provider name is not recognized.
	ErrUnknownProviderName = errors.New("unknown provider name")
	// ErrCreateClient is returned when provider client initialization fails.
	ErrCreateClient = errors.New("failed to create client")
	// ErrGenerateResponse is returned when response generation fails.
	ErrGenerateResponse = errors.New("failed to generate response")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrRetryable is returned when an operation can be retried.
	ErrRetryable = errors.New("retryable error")
)

// transientStatusCodes lists HTTP status codes worth retrying.
var transientStatusCodes = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// Provider interacts with AI model services.
type Provider interface {
	// Name returns the provider's unique identifier.
	Name() string
	// Generate answers the question with the given model.
	Generate(ctx context.Context, logger logging.Logger, model string, question string) (result Result, err error)
	// Close releases resources when the provider is no longer needed.
	Close(ctx context.Context) error
}

// Usage represents token usage statistics of a generation request.
type Usage struct {
	InputTokens  *int64 `json:"-"`
	OutputTokens *int64 `json:"-"`
}

// Result is the answer text produced by a provider.
type Result struct {
	// Text is the generated answer.
	Text     string
	duration time.Duration
	usage    Usage
}

// GetDuration returns the time spent waiting for the model.
func (r Result) GetDuration() time.Duration {
	return r.duration
}

// GetUsage returns the token usage of the request.
func (r Result) GetUsage() Usage {
	return r.usage
}

// WrapErrRetryable wraps an error as retryable, preserving the original error chain.
func WrapErrRetryable(err error) error {
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

// WrapErrGenerateResponse wraps an error as a generate response error, preserving the original error chain.
func WrapErrGenerateResponse(err error) error {
	return fmt.Errorf("%w: %w", ErrGenerateResponse, err)
}

func isTransientStatus(statusCode int) bool {
	return slices.Contains(transientStatusCodes, statusCode)
}

func timed[T any](f func() (T, error), out *time.Duration) (response T, err error) {
	start := time.Now()
	response, err = f()
	*out = time.Since(start)
	return
}

func recordUsage[T constraints.Signed](inputTokens *T, outputTokens *T, out *Usage) {
	addIfNotNil(&out.InputTokens, inputTokens)
	addIfNotNil(&out.OutputTokens, outputTokens)
}

func addIfNotNil[D ~int64, S constraints.Signed](dst **D, src *S) {
	if src != nil {
		if *dst == nil {
			*dst = new(D)
		}
		**dst += D(*src)
	}
}

// finalizeText trims the generated text and rejects empty answers.
func finalizeText(result *Result, parts ...string) error {
	result.Text = strings.TrimSpace(strings.Join(parts, ""))
	if result.Text == "" {
		return ErrEmptyResponse
	}
	return nil
}

// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/pkg/testutils"
	"github.com/ThePhilAz/unique-benchmarking/providers"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) Generate(ctx context.Context, logger logging.Logger, model string, question string) (providers.Result, error) {
	args := m.Called(model, question)
	return args.Get(0).(providers.Result), args.Error(1)
}

func (m *mockProvider) Close(ctx context.Context) error {
	return nil
}

func TestBackoffWithCallback(t *testing.T) {
	var attempts []uint64
	var delays []time.Duration

	calls := 0
	baseBackoff := retry.BackoffFunc(func() (time.Duration, bool) {
		calls++
		if calls > 3 {
			return 0, true
		}
		return time.Duration(calls) * time.Millisecond, false
	})

	backoff := BackoffWithCallback(func(nextRetryAttempt uint64, nextDelay time.Duration) {
		attempts = append(attempts, nextRetryAttempt)
		delays = append(delays, nextDelay)
	}, baseBackoff)

	for {
		if _, stop := backoff.Next(); stop {
			break
		}
	}

	assert.Equal(t, []uint64{1, 2, 3}, attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, delays)
}

func TestNewExecutor(t *testing.T) {
	provider := &mockProvider{}

	unlimited := NewExecutor(provider, config.GoldenConfig{})
	assert.Nil(t, unlimited.limiter)
	assert.Same(t, provider, unlimited.Provider)

	limited := NewExecutor(provider, config.GoldenConfig{MaxRequestsPerMinute: 120})
	require.NotNil(t, limited.limiter)
	assert.InDelta(t, 2.0, float64(limited.limiter.Limit()), 1e-9)
	assert.Equal(t, 120, limited.limiter.Burst())
}

func TestExecutor_Execute(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Generate", "gpt-4", "What is RAG?").Return(providers.Result{Text: "Retrieval augmented generation."}, nil).Once()

	executor := NewExecutor(provider, config.GoldenConfig{})
	result, err := executor.Execute(context.Background(), testutils.NewTestLogger(t), "gpt-4", "What is RAG?")
	require.NoError(t, err)
	assert.Equal(t, "Retrieval augmented generation.", result.Text)
	provider.AssertExpectations(t)
}

func TestExecutor_ExecuteRetriesTransientErrors(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Generate", "gpt-4", "Q1").Return(providers.Result{}, providers.WrapErrRetryable(errors.New("overloaded"))).Once()
	provider.On("Generate", "gpt-4", "Q1").Return(providers.Result{Text: "A1"}, nil).Once()

	logger := testutils.NewTestLogger(t)
	executor := NewExecutor(provider, config.GoldenConfig{
		RetryPolicy: config.RetryPolicy{MaxRetryAttempts: 2, InitialDelaySeconds: 1},
	})
	result, err := executor.Execute(context.Background(), logger, "gpt-4", "Q1")
	require.NoError(t, err)
	assert.Equal(t, "A1", result.Text)
	provider.AssertNumberOfCalls(t, "Generate", 2)
	assert.NotEmpty(t, logger.Messages(logging.LevelWarn))
}

func TestExecutor_ExecuteDoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("invalid model")
	provider := &mockProvider{}
	provider.On("Generate", "unknown", "Q1").Return(providers.Result{}, permanent).Once()

	executor := NewExecutor(provider, config.GoldenConfig{
		RetryPolicy: config.RetryPolicy{MaxRetryAttempts: 3, InitialDelaySeconds: 1},
	})
	_, err := executor.Execute(context.Background(), testutils.NewTestLogger(t), "unknown", "Q1")
	require.ErrorIs(t, err, permanent)
	provider.AssertNumberOfCalls(t, "Generate", 1)
}

func TestExecutor_ExecuteCancelledContext(t *testing.T) {
	provider := &mockProvider{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(provider, config.GoldenConfig{}).Execute(ctx, testutils.NewTestLogger(t), "gpt-4", "Q1")
	require.ErrorIs(t, err, context.Canceled)
	provider.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

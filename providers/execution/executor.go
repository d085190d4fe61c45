// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package execution wraps golden answer providers with the retry policy and
// rate limit configured for golden answer generation.
package execution

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/providers"
)

// BackoffWithCallback wraps a retry.Backoff with a callback function that is called
// before each retry attempt. The callback receives the next retry attempt number
// and the delay duration.
func BackoffWithCallback(onBackoff func(nextRetryAttempt uint64, nextDelay time.Duration), next retry.Backoff) retry.Backoff {
	var retryCounter uint64 = 0
	return retry.BackoffFunc(func() (nextDelay time.Duration, stop bool) {
		nextDelay, stop = next.Next()
		if stop {
			return
		}

		nextRetry := atomic.AddUint64(&retryCounter, 1)
		onBackoff(nextRetry, nextDelay)

		return
	})
}

// Executor generates answers through a provider, applying retry logic and rate limiting as configured.
// It is safe for concurrent use.
type Executor struct {
	Provider    providers.Provider
	RetryPolicy config.RetryPolicy
	limiter     *rate.Limiter
}

// NewExecutor creates a new executor for the given provider and golden configuration.
func NewExecutor(provider providers.Provider, cfg config.GoldenConfig) *Executor {
	var limiter *rate.Limiter
	if cfg.MaxRequestsPerMinute > 0 {
		ratePerSecond := rate.Limit(cfg.MaxRequestsPerMinute) / 60
		limiter = rate.NewLimiter(ratePerSecond, cfg.MaxRequestsPerMinute) // allow a burst up to the per-minute limit
	}

	return &Executor{
		Provider:    provider,
		RetryPolicy: cfg.RetryPolicy,
		limiter:     limiter,
	}
}

// Execute answers the question with the given model.
func (e *Executor) Execute(ctx context.Context, logger logging.Logger, model string, question string) (providers.Result, error) {
	if e.RetryPolicy.MaxRetryAttempts > 0 {
		return e.executeWithRetry(ctx, logger, model, question)
	}
	return e.executeOnce(ctx, logger, model, question)
}

func (e *Executor) executeWithRetry(ctx context.Context, logger logging.Logger, model string, question string) (providers.Result, error) {
	initialDelay := time.Duration(max(e.RetryPolicy.InitialDelaySeconds, 1)) * time.Second
	backoff := retry.NewExponential(initialDelay)
	backoff = retry.WithMaxRetries(uint64(e.RetryPolicy.MaxRetryAttempts), backoff)
	backoff = BackoffWithCallback(func(nextRetryAttempt uint64, nextDelay time.Duration) {
		logger.Message(ctx, logging.LevelInfo, "retrying golden answer generation %d/%d in %v",
			nextRetryAttempt, e.RetryPolicy.MaxRetryAttempts, nextDelay)
	}, backoff)

	return retry.DoValue(ctx, backoff, func(ctx context.Context) (providers.Result, error) {
		return e.executeOnce(ctx, logger, model, question)
	})
}

func (e *Executor) executeOnce(ctx context.Context, logger logging.Logger, model string, question string) (result providers.Result, err error) {
	if err = ctx.Err(); err != nil {
		logger.Error(ctx, logging.LevelWarn, err, "aborting golden answer generation")
		return
	}

	if e.limiter != nil {
		if err = e.limiter.Wait(ctx); err != nil {
			logger.Error(ctx, logging.LevelWarn, err, "aborting golden answer generation")
			return
		}
	}

	result, err = e.Provider.Generate(ctx, logger, model, question)
	if errors.Is(err, providers.ErrRetryable) {
		logger.Error(ctx, logging.LevelWarn, err, "golden answer generation encountered a transient error")
		err = retry.RetryableError(err)
	}
	return
}

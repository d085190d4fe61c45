// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/assistants"
	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/metrics"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrAssistantPanic is recorded when a call to an assistant panics.
var ErrAssistantPanic = errors.New("assistant call panicked")

// RunnerOption configures a runner created by NewDefaultRunner.
type RunnerOption func(*defaultRunner)

// WithResultStore persists experiments, results and golden answers to store.
func WithResultStore(store ResultStore) RunnerOption {
	return func(r *defaultRunner) {
		r.store = store
	}
}

// WithGoldenCache enables golden answers for experiments that name a golden model.
func WithGoldenCache(cache *golden.Cache) RunnerOption {
	return func(r *defaultRunner) {
		r.golden = cache
	}
}

// WithProgressReporter notifies reporter each time a task settles.
func WithProgressReporter(reporter ProgressReporter) RunnerOption {
	return func(r *defaultRunner) {
		r.reporter = reporter
	}
}

// WithMetrics records call and golden answer metrics.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *defaultRunner) {
		r.metrics = m
	}
}

// WithRateLimit limits the rate of dispatched calls. Zero means unlimited.
func WithRateLimit(requestsPerMinute int) RunnerOption {
	return func(r *defaultRunner) {
		r.requestsPerMinute = requestsPerMinute
	}
}

// NewDefaultRunner creates a new Runner that sends every question of an
// experiment to every assistant, keeping at most the configured number of
// calls outstanding at any time.
func NewDefaultRunner(assistant assistants.Assistant, logger zerolog.Logger, opts ...RunnerOption) Runner {
	r := &defaultRunner{
		assistant: assistant,
		logger:    logger,
		results:   make(Results),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type defaultRunner struct {
	assistant         assistants.Assistant
	store             ResultStore
	golden            *golden.Cache
	reporter          ProgressReporter
	metrics           *metrics.Metrics
	requestsPerMinute int
	logger            zerolog.Logger

	resultsLock sync.RWMutex
	results     Results
}

type askOutcome struct {
	answer assistants.Answer
	err    error
}

func (r *defaultRunner) Run(ctx context.Context, cfg config.ExperimentConfig) (Summary, error) {
	run, err := r.Start(ctx, cfg)
	if err != nil {
		return Summary{}, err
	}
	return run.Wait(), nil
}

func (r *defaultRunner) Start(ctx context.Context, cfg config.ExperimentConfig) (*AsyncRun, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tasks := NewTasks(cfg)
	run := newAsyncRun(NewExperimentID(), len(tasks), r.reporter)
	logger := NewEmittingLogger(r.logger, run)
	go func() {
		summary := r.execute(ctx, run, cfg, tasks, logger)
		r.setResults(run.Results())
		run.finish(summary)
	}()
	return run, nil
}

func (r *defaultRunner) execute(ctx context.Context, run *AsyncRun, cfg config.ExperimentConfig, tasks []Task, logger logging.Logger) Summary {
	logger = logger.WithContext(run.ExperimentID() + ": ")
	logger.Message(ctx, logging.LevelInfo, "starting %d task%s on %d assistant%s with at most %d concurrent call%s...",
		pluralize(countable(len(tasks)), countable(cfg.AssistantIDs.Len()), countable(cfg.ConcurrencyLimit))...)
	start := time.Now()

	// Tasks and persistence outlive the caller's cancellation so that every task settles.
	taskCtx := context.WithoutCancel(ctx)
	r.startExperiment(taskCtx, ExperimentInfo{
		ID:         run.ExperimentID(),
		Config:     cfg,
		StartTime:  start,
		TotalTasks: len(tasks),
	}, logger)
	goldenAnswers := r.resolveGoldenAnswers(ctx, run.ExperimentID(), cfg, logger)

	aggregator := NewAggregator(run.ExperimentID(), cfg.Name, r.store, logger)
	limiter := r.newRateLimiter(ctx, logger)
	timeout := cfg.Timeout()

	// A slot is released as soon as its call settles; a single collector
	// persists, aggregates and reports results in completion order.
	settled := make(chan TestResult, len(tasks))
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range settled {
			aggregator.Add(taskCtx, result)
			run.settle(result)
		}
	}()

	g := errgroup.Group{}
	g.SetLimit(cfg.ConcurrencyLimit)
	for _, task := range tasks {
		g.Go(func() error {
			result := r.runTask(taskCtx, task, timeout, aggregator, limiter, logger)
			if answer, ok := goldenAnswers[task.Question]; ok {
				result.GoldenAnswer = &answer
			}
			settled <- result
			return nil
		})
	}
	_ = g.Wait()
	close(settled)
	<-collected

	summary := aggregator.Finalize()
	r.finalizeExperiment(taskCtx, summary, logger)
	logger.Message(ctx, logging.LevelInfo, "all tasks have finished in %s: %d succeeded, %d failed (%d timed out), average response time %s.",
		time.Since(start).Round(time.Millisecond), summary.SuccessfulTests, summary.FailedTests, summary.TimedOutTests,
		logging.FormatLogDuration(&summary.AverageResponseTime))
	return summary
}

func (r *defaultRunner) runTask(ctx context.Context, task Task, timeout time.Duration, aggregator *Aggregator, limiter *rate.Limiter, logger logging.Logger) (result TestResult) {
	logger = logger.WithContext(fmt.Sprintf("%s: task %d: ", task.AssistantID, task.ID))
	result = TestResult{
		ID:          ulid.Make().String(),
		TaskID:      task.ID,
		Question:    task.Question,
		AssistantID: task.AssistantID,
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			logger.Error(ctx, logging.LevelWarn, err, "request rate limit wait failed")
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result.StartedAt = time.Now()
	aggregator.MarkDispatched(result.StartedAt)
	r.metrics.CallStarted()
	logger.Message(ctx, logging.LevelDebug, "dispatched")
	logger.Message(ctx, logging.LevelTrace, "question: %s", logging.FormatLogPreview(task.Question))

	answer, err := r.ask(callCtx, task, timeout)
	result.Timestamp = time.Now()
	result.ResponseTime = result.Timestamp.Sub(result.StartedAt)

	switch {
	case err == nil:
		result.Status = Success
		result.Response = answer.Text
		result.ChatID = answer.ChatID
		result.DebugInfo = answer.DebugInfo
		logger.Message(ctx, logging.LevelInfo, "answered in %s.", logging.FormatLogDuration(&result.ResponseTime))
	case assistants.IsTimeout(err):
		result.Status = Timeout
		result.Error = err.Error()
		logger.Error(ctx, logging.LevelWarn, err, "timed out after %s.", logging.FormatLogDuration(&result.ResponseTime))
	default:
		result.Status = Error
		result.Error = err.Error()
		logger.Error(ctx, logging.LevelError, err, "failed after %s.", logging.FormatLogDuration(&result.ResponseTime))
	}
	r.metrics.CallFinished(task.AssistantID, result.Status.String(), result.ResponseTime)
	return result
}

// ask calls the assistant and waits for its answer until the context deadline.
// A call that does not return in time is abandoned and its late answer is discarded.
func (r *defaultRunner) ask(ctx context.Context, task Task, timeout time.Duration) (assistants.Answer, error) {
	outcome := make(chan askOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				outcome <- askOutcome{err: fmt.Errorf("%w: %v", ErrAssistantPanic, p)}
			}
		}()
		answer, err := r.assistant.Ask(ctx, task.AssistantID, task.Question)
		outcome <- askOutcome{answer: answer, err: err}
	}()

	select {
	case o := <-outcome:
		return o.answer, o.err
	case <-ctx.Done():
		select {
		case o := <-outcome:
			return o.answer, o.err
		default:
		}
		return assistants.Answer{}, assistants.NewAskError(assistants.Timeout, ctx.Err(), "no response within %s", timeout)
	}
}

func (r *defaultRunner) newRateLimiter(ctx context.Context, logger logging.Logger) *rate.Limiter {
	if r.requestsPerMinute <= 0 {
		return nil
	}
	logger.Message(ctx, logging.LevelInfo, "request rate limited to %d requests/min.", r.requestsPerMinute)
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.requestsPerMinute)), 1)
}

func (r *defaultRunner) resolveGoldenAnswers(ctx context.Context, experimentID string, cfg config.ExperimentConfig, logger logging.Logger) map[string]golden.Answer {
	if !cfg.GoldenEnabled() {
		return nil
	}
	if r.golden == nil {
		logger.Message(ctx, logging.LevelWarn, "golden model %s requested but no golden answer generator is configured.", cfg.GoldenModel)
		return nil
	}

	questions := cfg.UniqueQuestions()
	logger.Message(ctx, logging.LevelInfo, "resolving golden answers for %d unique question%s with %s...",
		pluralize(countable(len(questions)), cfg.GoldenModel)...)
	start := time.Now()
	answers := r.golden.Resolve(ctx, questions, cfg.GoldenModel, cfg.ConcurrencyLimit)

	ordered := make([]golden.Answer, 0, len(questions))
	failed := 0
	for _, question := range questions {
		answer := answers[question]
		ordered = append(ordered, answer)
		r.metrics.GoldenResolved(answer.Success, answer.GenerationTime())
		if !answer.Success {
			failed++
		}
	}
	logger.Message(ctx, logging.LevelInfo, "golden answers resolved in %s (%d failed).", time.Since(start).Round(time.Millisecond), failed)

	if r.store != nil {
		if err := r.store.SaveGoldenAnswers(context.WithoutCancel(ctx), experimentID, ordered); err != nil {
			logger.Error(ctx, logging.LevelWarn, err, "failed to save golden answers")
		}
	}
	return answers
}

func (r *defaultRunner) startExperiment(ctx context.Context, experiment ExperimentInfo, logger logging.Logger) {
	if r.store == nil {
		return
	}
	if err := r.store.StartExperiment(ctx, experiment); err != nil {
		logger.Error(ctx, logging.LevelWarn, err, "failed to record experiment start")
	}
}

func (r *defaultRunner) finalizeExperiment(ctx context.Context, summary Summary, logger logging.Logger) {
	if r.store == nil {
		return
	}
	if err := r.store.FinalizeExperiment(ctx, summary); err != nil {
		logger.Error(ctx, logging.LevelWarn, err, "failed to save experiment summary")
	}
}

func (r *defaultRunner) setResults(results Results) {
	r.resultsLock.Lock()
	defer r.resultsLock.Unlock()
	r.results = results
}

func (r *defaultRunner) GetResults() Results {
	r.resultsLock.RLock()
	defer r.resultsLock.RUnlock()
	return r.results
}

func (r *defaultRunner) Close(ctx context.Context) {
	if closer, ok := r.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close result store")
		}
	}
}

type countable int

func pluralize(tokens ...any) []interface{} {
	pluralized := make([]interface{}, 0, 2*len(tokens))
	for _, token := range tokens {
		pluralized = append(pluralized, token)
		if v, ok := any(token).(countable); ok {
			switch v {
			case 1:
				pluralized = append(pluralized, "")
			default:
				pluralized = append(pluralized, "s")
			}
		}
	}

	return pluralized
}

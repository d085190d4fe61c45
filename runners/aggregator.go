// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"context"
	"sync"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/pkg/utils"
)

// Aggregator folds settled task results into running counts.
// All methods are safe for concurrent use.
type Aggregator struct {
	experimentID string
	name         string
	store        ResultStore
	logger       logging.Logger

	mu            sync.Mutex
	firstDispatch time.Time
	lastResult    time.Time
	totals        counts
	assistants    map[string]*counts
}

type counts struct {
	total         int
	successful    int
	failed        int
	timedOut      int
	responseTimes time.Duration
}

func (c *counts) add(result TestResult) {
	c.total++
	switch result.Status {
	case Success:
		c.successful++
	case Timeout:
		c.timedOut++
		c.failed++
	default:
		c.failed++
	}
	c.responseTimes += result.ResponseTime
}

func (c counts) stats() AssistantStats {
	return AssistantStats{
		TotalTests:          c.total,
		SuccessfulTests:     c.successful,
		FailedTests:         c.failed,
		TimedOutTests:       c.timedOut,
		AverageResponseTime: utils.MeanDuration(c.responseTimes, c.total),
	}
}

// NewAggregator creates an aggregator for one experiment.
// The store is optional; when present every added result is persisted.
func NewAggregator(experimentID string, name string, store ResultStore, logger logging.Logger) *Aggregator {
	return &Aggregator{
		experimentID: experimentID,
		name:         name,
		store:        store,
		logger:       logger,
		assistants:   make(map[string]*counts),
	}
}

// MarkDispatched records that a task was dispatched at the given time.
// Only the earliest dispatch is kept.
func (a *Aggregator) MarkDispatched(at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.firstDispatch.IsZero() || at.Before(a.firstDispatch) {
		a.firstDispatch = at
	}
}

// Add persists the result and folds it into the counts.
// The result counts as received at its own timestamp, or at the time of the
// call when it has none, so persistence latency never extends the total duration.
// A persistence failure is logged and does not affect the counts.
func (a *Aggregator) Add(ctx context.Context, result TestResult) {
	received := result.Timestamp
	if received.IsZero() {
		received = time.Now()
	}

	if a.store != nil {
		if err := a.store.SaveResult(ctx, a.experimentID, result); err != nil {
			a.logger.Error(ctx, logging.LevelWarn, err, "%s: task %d: failed to save result", result.AssistantID, result.TaskID)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.totals.add(result)
	perAssistant, ok := a.assistants[result.AssistantID]
	if !ok {
		perAssistant = &counts{}
		a.assistants[result.AssistantID] = perAssistant
	}
	perAssistant.add(result)
	if received.After(a.lastResult) {
		a.lastResult = received
	}
}

// Completed returns the number of results added so far.
func (a *Aggregator) Completed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals.total
}

// Snapshot returns a summary of the results added so far.
func (a *Aggregator) Snapshot() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary()
}

// Finalize returns the summary of the experiment. It is meant to be called
// once all tasks have settled.
func (a *Aggregator) Finalize() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	summary := a.summary()
	if summary.StartTime.IsZero() {
		summary.StartTime = time.Now()
	}
	if summary.EndTime.IsZero() {
		summary.EndTime = summary.StartTime
	}
	return summary
}

func (a *Aggregator) summary() Summary {
	assistants := make(map[string]AssistantStats, len(a.assistants))
	for id, c := range a.assistants {
		assistants[id] = c.stats()
	}
	totals := a.totals.stats()
	summary := Summary{
		ExperimentID:        a.experimentID,
		Name:                a.name,
		TotalTests:          totals.TotalTests,
		SuccessfulTests:     totals.SuccessfulTests,
		FailedTests:         totals.FailedTests,
		TimedOutTests:       totals.TimedOutTests,
		AverageResponseTime: totals.AverageResponseTime,
		StartTime:           a.firstDispatch,
		EndTime:             a.lastResult,
		Assistants:          assistants,
	}
	if !a.firstDispatch.IsZero() && a.lastResult.After(a.firstDispatch) {
		summary.TotalDuration = a.lastResult.Sub(a.firstDispatch)
	}
	return summary
}

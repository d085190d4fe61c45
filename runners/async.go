// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"sync"

	"github.com/ThePhilAz/unique-benchmarking/pkg/utils"
)

const (
	progressEventBuffer = 64
	messageEventBuffer  = 256
)

// eventEmitter publishes run events to observers.
type eventEmitter interface {
	emitProgressEvent()
	emitMessageEvent(message string)
}

// AsyncRun is an experiment executing in the background.
// Its event channels are closed when the run ends. Events are dropped
// rather than delaying the run when nobody consumes them.
type AsyncRun struct {
	experimentID string
	total        int
	reporter     ProgressReporter

	mu             sync.Mutex
	completed      int
	results        Results
	closed         bool
	progressEvents chan float32
	messageEvents  chan string

	done    chan struct{}
	summary Summary
}

func newAsyncRun(experimentID string, total int, reporter ProgressReporter) *AsyncRun {
	return &AsyncRun{
		experimentID:   experimentID,
		total:          total,
		reporter:       reporter,
		results:        make(Results),
		progressEvents: make(chan float32, progressEventBuffer),
		messageEvents:  make(chan string, messageEventBuffer),
		done:           make(chan struct{}),
	}
}

// ExperimentID returns the identifier of the experiment.
func (r *AsyncRun) ExperimentID() string {
	return r.experimentID
}

// ProgressEvents returns a channel receiving the completed fraction (0.0 to 1.0) after each settled task.
func (r *AsyncRun) ProgressEvents() <-chan float32 {
	return r.progressEvents
}

// MessageEvents returns a channel receiving the log lines of the run.
func (r *AsyncRun) MessageEvents() <-chan string {
	return r.messageEvents
}

// Done returns a channel that is closed when the run has finished.
func (r *AsyncRun) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run has finished and returns its summary.
func (r *AsyncRun) Wait() Summary {
	<-r.done
	return r.summary
}

// Progress returns the number of settled tasks and the total number of tasks.
func (r *AsyncRun) Progress() (completed int, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed, r.total
}

// Results returns a copy of the results collected so far.
func (r *AsyncRun) Results() Results {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := make(Results, len(r.results))
	for id, list := range r.results {
		results[id] = append([]TestResult(nil), list...)
	}
	return results
}

func (r *AsyncRun) settle(result TestResult) {
	r.mu.Lock()
	r.results[result.AssistantID] = append(r.results[result.AssistantID], result)
	r.completed++
	completed := r.completed
	r.mu.Unlock()

	r.emitProgressEvent()
	if r.reporter != nil {
		_ = utils.NoPanic(func() error {
			r.reporter.ReportProgress(completed, r.total)
			return nil
		})
	}
}

func (r *AsyncRun) emitProgressEvent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	progress := float32(1)
	if r.total > 0 {
		progress = float32(r.completed) / float32(r.total)
	}
	select {
	case r.progressEvents <- progress:
	default:
	}
}

func (r *AsyncRun) emitMessageEvent(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.messageEvents <- message:
	default:
	}
}

func (r *AsyncRun) finish(summary Summary) {
	r.mu.Lock()
	r.closed = true
	close(r.progressEvents)
	close(r.messageEvents)
	r.mu.Unlock()

	r.summary = summary
	close(r.done)
}

// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package runners executes benchmark experiments: every question is sent to
// every assistant with bounded concurrency, and the timed outcomes are
// aggregated into a summary.
package runners

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/pkg/utils"
	"github.com/google/uuid"
)

// Success indicates that the assistant answered the question.
// Error indicates that the call failed with a definitive error.
// Timeout indicates that the assistant did not answer in time.
const (
	Success Status = iota
	Error
	Timeout
)

const experimentIDPrefix = "exp_"

// Status represents the outcome of a single task.
type Status int

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Error:
		return "error"
	case Timeout:
		return "timeout"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "success":
		*s = Success
	case "error":
		*s = Error
	case "timeout":
		*s = Timeout
	default:
		return fmt.Errorf("unknown status: %q", text)
	}
	return nil
}

// Runner executes experiments against the assistant API.
type Runner interface {
	// Run executes all tasks of the experiment and returns its summary when done.
	// An invalid configuration is reported before any task is dispatched.
	Run(ctx context.Context, cfg config.ExperimentConfig) (Summary, error)
	// Start executes the experiment asynchronously.
	Start(ctx context.Context, cfg config.ExperimentConfig) (*AsyncRun, error)
	// GetResults returns the results of the last run.
	GetResults() Results
	// Close releases resources when the runner is no longer needed.
	Close(ctx context.Context)
}

// ProgressReporter is notified each time a task settles.
// Calls for one experiment come from a single goroutine in completion order,
// so completed increases by one with every call.
type ProgressReporter interface {
	ReportProgress(completed int, total int)
}

// ProgressReporterFunc adapts a function to the ProgressReporter interface.
type ProgressReporterFunc func(completed int, total int)

// ReportProgress calls f.
func (f ProgressReporterFunc) ReportProgress(completed int, total int) {
	f(completed, total)
}

// ExperimentInfo describes an experiment at the moment it starts.
type ExperimentInfo struct {
	ID         string
	Config     config.ExperimentConfig
	StartTime  time.Time
	TotalTasks int
}

// ResultStore durably records experiments. Calls are best-effort: the runner
// logs failures and carries on.
type ResultStore interface {
	StartExperiment(ctx context.Context, experiment ExperimentInfo) error
	// SaveResult records a settled task, partitioned by its status.
	SaveResult(ctx context.Context, experimentID string, result TestResult) error
	SaveGoldenAnswers(ctx context.Context, experimentID string, answers []golden.Answer) error
	FinalizeExperiment(ctx context.Context, summary Summary) error
}

// Task is one (question, assistant) pair.
type Task struct {
	// ID is the 1-based position of the task in the question-major cross product.
	ID          int
	Question    string
	AssistantID string
}

// NewTasks expands the experiment into its tasks in dispatch order.
func NewTasks(cfg config.ExperimentConfig) []Task {
	assistantIDs := cfg.AssistantIDs.Values()
	tasks := make([]Task, 0, len(cfg.Questions)*len(assistantIDs))
	for i, question := range cfg.Questions {
		for j, assistantID := range assistantIDs {
			tasks = append(tasks, Task{
				ID:          i*len(assistantIDs) + j + 1,
				Question:    question,
				AssistantID: assistantID,
			})
		}
	}
	return tasks
}

// TestResult is the outcome of one task.
type TestResult struct {
	// ID uniquely identifies the result; IDs sort by creation time.
	ID          string         `json:"id"`
	TaskID      int            `json:"test_id"`
	Question    string         `json:"question"`
	AssistantID string         `json:"assistant_id"`
	Status      Status         `json:"status"`
	Response    string         `json:"response,omitempty"`
	ChatID      string         `json:"chat_id,omitempty"`
	DebugInfo   map[string]any `json:"debug_info,omitempty"`
	Error       string         `json:"error_message,omitempty"`
	// ResponseTime is the wall-clock duration of the call, set for every outcome.
	ResponseTime time.Duration `json:"-"`
	StartedAt    time.Time     `json:"started_at"`
	// Timestamp is the completion time.
	Timestamp    time.Time      `json:"timestamp"`
	GoldenAnswer *golden.Answer `json:"-"`
}

// ResponseTimeSeconds returns the response time in seconds.
func (r TestResult) ResponseTimeSeconds() float64 {
	return r.ResponseTime.Seconds()
}

// Results stores task results for each assistant.
type Results map[string][]TestResult

// AssistantIDs returns the assistants with at least one result, sorted.
func (r Results) AssistantIDs() []string {
	return utils.SortedKeys(r)
}

// Count returns the total number of results.
func (r Results) Count() (count int) {
	for _, results := range r {
		count += len(results)
	}
	return
}

// ByStatus groups the results of one assistant by status, ordered by task ID.
func (r Results) ByStatus(assistantID string) map[Status][]TestResult {
	byStatus := make(map[Status][]TestResult)
	for _, result := range r.Sorted(assistantID) {
		byStatus[result.Status] = append(byStatus[result.Status], result)
	}
	return byStatus
}

// Sorted returns a copy of the results of one assistant ordered by task ID.
func (r Results) Sorted(assistantID string) []TestResult {
	sorted := append([]TestResult(nil), r[assistantID]...)
	slices.SortFunc(sorted, func(a, b TestResult) int { return cmp.Compare(a.TaskID, b.TaskID) })
	return sorted
}

// AssistantStats holds the counts of one assistant.
type AssistantStats struct {
	TotalTests          int           `json:"total_tests"`
	SuccessfulTests     int           `json:"successful_tests"`
	FailedTests         int           `json:"failed_tests"`
	TimedOutTests       int           `json:"timed_out_tests"`
	AverageResponseTime time.Duration `json:"-"`
}

// SuccessRate returns the fraction of successful tests, or 0 when there are none.
func (s AssistantStats) SuccessRate() float64 {
	return utils.Ratio(s.SuccessfulTests, s.TotalTests)
}

// Summary aggregates the results of an experiment.
type Summary struct {
	ExperimentID    string `json:"experiment_id"`
	Name            string `json:"name"`
	TotalTests      int    `json:"total_tests"`
	SuccessfulTests int    `json:"successful_tests"`
	// FailedTests counts both errors and timeouts.
	FailedTests   int `json:"failed_tests"`
	TimedOutTests int `json:"timed_out_tests"`
	// TotalDuration spans from the first dispatch to the last completion.
	TotalDuration time.Duration `json:"-"`
	// AverageResponseTime is the mean response time over all settled tasks.
	AverageResponseTime time.Duration             `json:"-"`
	StartTime           time.Time                 `json:"start_time"`
	EndTime             time.Time                 `json:"end_time"`
	Assistants          map[string]AssistantStats `json:"assistants"`
}

// SuccessRate returns the fraction of successful tests, or 0 when there are none.
func (s Summary) SuccessRate() float64 {
	return utils.Ratio(s.SuccessfulTests, s.TotalTests)
}

// NewExperimentID returns a new random experiment identifier.
func NewExperimentID() string {
	return experimentIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

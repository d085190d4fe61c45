// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/pkg/utils"
)

var (
	// ErrConfiguration is matched by every experiment configuration error.
	ErrConfiguration = errors.New("invalid experiment configuration")
	// ErrNoQuestions indicates that the experiment defines no questions.
	ErrNoQuestions = errors.New("question list is empty")
	// ErrNoAssistants indicates that the experiment defines no assistants.
	ErrNoAssistants = errors.New("assistant set is empty")
	// ErrInvalidConcurrencyLimit indicates a concurrency limit that is not a positive integer.
	ErrInvalidConcurrencyLimit = errors.New("concurrency limit must be positive")
	// ErrInvalidTimeout indicates a per-call timeout that is not a positive number
	// or does not fit in a time.Duration.
	ErrInvalidTimeout = errors.New("timeout must be positive and at most 292 years")
	// ErrBlankValue indicates a blank question or assistant identifier.
	ErrBlankValue = errors.New("value must not be blank")
)

// maxTimeoutSeconds is the largest timeout a time.Duration can hold.
const maxTimeoutSeconds = float64(math.MaxInt64) / float64(time.Second)

// ConfigurationError describes why an experiment configuration was rejected.
// Reason is one of the ErrNoQuestions, ErrNoAssistants, ErrInvalidConcurrencyLimit,
// ErrInvalidTimeout or ErrBlankValue sentinels.
type ConfigurationError struct {
	Field  string
	Reason error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrConfiguration, e.Field, e.Reason)
}

// Unwrap exposes both the reason and the ErrConfiguration sentinel to errors.Is.
func (e *ConfigurationError) Unwrap() []error {
	return []error{ErrConfiguration, e.Reason}
}

// Experiment represents the top-level structure of an experiment definition file.
type Experiment struct {
	// Experiment contains the definition of a single run.
	Experiment ExperimentConfig `yaml:"experiment" validate:"required"`
}

// ExperimentConfig describes one experiment run. It is treated as immutable
// once validated and handed to a runner.
type ExperimentConfig struct {
	// Name is a human readable label of the experiment.
	Name string `yaml:"name"`

	// Questions lists the questions in the order they are dispatched. Duplicates are allowed.
	Questions []string `yaml:"questions"`

	// AssistantIDs is the set of assistants every question is sent to.
	AssistantIDs utils.StringSet `yaml:"assistant-ids"`

	// ConcurrencyLimit caps the number of simultaneously outstanding calls.
	ConcurrencyLimit int `yaml:"concurrency-limit"`

	// TimeoutSeconds is the per-call timeout.
	TimeoutSeconds float64 `yaml:"timeout-seconds"`

	// GoldenModel names the model used to generate golden answers.
	// Empty means no golden answers are produced.
	GoldenModel string `yaml:"golden-model"`

	// OutputDir overrides the storage results directory for this experiment.
	OutputDir string `yaml:"output-dir"`
}

// NewExperimentConfig builds and validates an experiment configuration.
// Duplicate assistant identifiers are discarded keeping the first occurrence.
func NewExperimentConfig(name string, questions []string, assistantIDs []string, concurrencyLimit int, timeoutSeconds float64, goldenModel string) (ExperimentConfig, error) {
	cfg := ExperimentConfig{
		Name:             name,
		Questions:        append([]string(nil), questions...),
		AssistantIDs:     utils.NewStringSet(assistantIDs...),
		ConcurrencyLimit: concurrencyLimit,
		TimeoutSeconds:   timeoutSeconds,
		GoldenModel:      goldenModel,
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration and returns a *ConfigurationError
// describing the first problem found.
func (c ExperimentConfig) Validate() error {
	switch {
	case len(c.Questions) == 0:
		return &ConfigurationError{Field: "questions", Reason: ErrNoQuestions}
	case c.AssistantIDs.Len() == 0:
		return &ConfigurationError{Field: "assistant-ids", Reason: ErrNoAssistants}
	case c.ConcurrencyLimit <= 0:
		return &ConfigurationError{Field: "concurrency-limit", Reason: ErrInvalidConcurrencyLimit}
	case !(c.TimeoutSeconds > 0) || c.TimeoutSeconds >= maxTimeoutSeconds:
		return &ConfigurationError{Field: "timeout-seconds", Reason: ErrInvalidTimeout}
	}
	for i, q := range c.Questions {
		if !IsNotBlank(q) {
			return &ConfigurationError{Field: fmt.Sprintf("questions[%d]", i), Reason: ErrBlankValue}
		}
	}
	if c.AssistantIDs.Any(func(id string) bool { return !IsNotBlank(id) }) {
		return &ConfigurationError{Field: "assistant-ids", Reason: ErrBlankValue}
	}
	return nil
}

// Timeout returns the per-call timeout as a duration.
// Values beyond the range of time.Duration are clamped to its maximum.
func (c ExperimentConfig) Timeout() time.Duration {
	if c.TimeoutSeconds >= maxTimeoutSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// TotalTasks returns the size of the questions × assistants cross product.
func (c ExperimentConfig) TotalTasks() int {
	return len(c.Questions) * c.AssistantIDs.Len()
}

// UniqueQuestions returns the distinct questions in first-seen order.
func (c ExperimentConfig) UniqueQuestions() []string {
	return utils.NewStringSet(c.Questions...).Values()
}

// GoldenEnabled reports whether golden answers were requested.
func (c ExperimentConfig) GoldenEnabled() bool {
	return IsNotBlank(c.GoldenModel)
}

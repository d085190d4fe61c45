// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package golden produces golden (reference) answers for benchmark questions.
// Each distinct question is answered at most once per model and experiment;
// answers may additionally be reused across experiments through a Store.
package golden

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/providers/execution"
)

// FailurePrefix starts the text recorded for a golden answer that could not be generated.
const FailurePrefix = "Error generating golden answer: "

// Answer is a golden answer to one question.
type Answer struct {
	Question  string    `json:"question"`
	Model     string    `json:"model"`
	Text      string    `json:"answer"`
	Success   bool      `json:"success"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Hash returns the cache key of the answer.
func (a Answer) Hash() string {
	return QuestionHash(a.Question, a.Model)
}

// GenerationTime returns how long the answer took to produce.
func (a Answer) GenerationTime() time.Duration {
	return a.EndedAt.Sub(a.StartedAt)
}

// QuestionHash returns the hex SHA-256 digest identifying a question answered by a model.
func QuestionHash(question string, model string) string {
	sum := sha256.Sum256([]byte(question + " - " + model))
	return hex.EncodeToString(sum[:])
}

// Generator produces a golden answer text for a question.
type Generator interface {
	Generate(ctx context.Context, question string, model string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, question string, model string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, question string, model string) (string, error) {
	return f(ctx, question, model)
}

// Store persists golden answers across experiments.
type Store interface {
	// LookupGolden returns the stored answer with the given hash, if any.
	LookupGolden(ctx context.Context, hash string) (answer Answer, found bool, err error)
	// SaveGolden stores or replaces an answer.
	SaveGolden(ctx context.Context, answer Answer) error
}

// NewExecutorGenerator adapts a provider executor to the Generator interface.
func NewExecutorGenerator(executor *execution.Executor, logger logging.Logger) Generator {
	return GeneratorFunc(func(ctx context.Context, question string, model string) (string, error) {
		result, err := executor.Execute(ctx, logger, model, question)
		if err != nil {
			return "", err
		}
		logger.Message(ctx, logging.LevelDebug, "golden answer generated by %s in %s",
			executor.Provider.Name(), result.GetDuration().Round(time.Millisecond))
		return result.Text, nil
	})
}

func failureText(err error) string {
	return fmt.Sprintf("%s%v", FailurePrefix, err)
}

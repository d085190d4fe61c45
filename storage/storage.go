// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package storage persists experiments, their results and golden answers.
package storage

import (
	"errors"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/runners"
)

// Experiment states recorded by the stores.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

var (
	// ErrUnknownExperiment is returned when saving data of an experiment that was never started.
	ErrUnknownExperiment = errors.New("unknown experiment")
	// ErrWrite is returned when data cannot be written.
	ErrWrite = errors.New("failed to write")
	// ErrRead is returned when data cannot be read.
	ErrRead = errors.New("failed to read")
)

type experimentRecord struct {
	ExperimentID     string    `json:"experiment_id"`
	Name             string    `json:"name"`
	Questions        []string  `json:"questions"`
	AssistantIDs     []string  `json:"assistant_ids"`
	ConcurrencyLimit int       `json:"concurrency_limit"`
	TimeoutSeconds   float64   `json:"timeout_seconds"`
	GoldenModel      string    `json:"golden_model,omitempty"`
	TotalTasks       int       `json:"total_tasks"`
	StartTime        time.Time `json:"start_time"`
	Status           string    `json:"status"`
}

func newExperimentRecord(experiment runners.ExperimentInfo) experimentRecord {
	return experimentRecord{
		ExperimentID:     experiment.ID,
		Name:             experiment.Config.Name,
		Questions:        experiment.Config.Questions,
		AssistantIDs:     experiment.Config.AssistantIDs.Values(),
		ConcurrencyLimit: experiment.Config.ConcurrencyLimit,
		TimeoutSeconds:   experiment.Config.TimeoutSeconds,
		GoldenModel:      experiment.Config.GoldenModel,
		TotalTasks:       experiment.TotalTasks,
		StartTime:        experiment.StartTime,
		Status:           StatusRunning,
	}
}

type resultRecord struct {
	runners.TestResult
	Success             bool    `json:"success"`
	ResponseTimeSeconds float64 `json:"response_time_seconds"`
	GoldenAnswer        string  `json:"golden_answer,omitempty"`
}

func newResultRecord(result runners.TestResult) resultRecord {
	record := resultRecord{
		TestResult:          result,
		Success:             result.Status == runners.Success,
		ResponseTimeSeconds: result.ResponseTimeSeconds(),
	}
	if result.GoldenAnswer != nil {
		record.GoldenAnswer = result.GoldenAnswer.Text
	}
	return record
}

type assistantStatsRecord struct {
	runners.AssistantStats
	SuccessRate                float64 `json:"success_rate"`
	AverageResponseTimeSeconds float64 `json:"average_response_time_seconds"`
}

type summaryRecord struct {
	runners.Summary
	Status                     string                          `json:"status"`
	SuccessRate                float64                         `json:"success_rate"`
	TotalDurationSeconds       float64                         `json:"total_duration_seconds"`
	AverageResponseTimeSeconds float64                         `json:"average_response_time_seconds"`
	Assistants                 map[string]assistantStatsRecord `json:"assistants"`
}

func newSummaryRecord(summary runners.Summary) summaryRecord {
	assistants := make(map[string]assistantStatsRecord, len(summary.Assistants))
	for id, stats := range summary.Assistants {
		assistants[id] = assistantStatsRecord{
			AssistantStats:             stats,
			SuccessRate:                stats.SuccessRate(),
			AverageResponseTimeSeconds: stats.AverageResponseTime.Seconds(),
		}
	}
	return summaryRecord{
		Summary:                    summary,
		Status:                     StatusCompleted,
		SuccessRate:                summary.SuccessRate(),
		TotalDurationSeconds:       summary.TotalDuration.Seconds(),
		AverageResponseTimeSeconds: summary.AverageResponseTime.Seconds(),
		Assistants:                 assistants,
	}
}

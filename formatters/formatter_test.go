// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/runners"
	"github.com/stretchr/testify/require"
)

const (
	capitalQuestion = "What is the capital of France?"
	sumQuestion     = "What is 2 + 2?"
)

var mockResults = runners.Results{
	"alpha": {
		{
			ID:           "01JPBM4D6A9V3X0ZQ8E7RNKT2S",
			TaskID:       3,
			Question:     sumQuestion,
			AssistantID:  "alpha",
			Status:       runners.Timeout,
			Error:        "no response within 1s",
			ResponseTime: time.Second,
			GoldenAnswer: &golden.Answer{Question: sumQuestion, Model: "gpt-4o", Text: "4.", Success: true},
		},
		{
			ID:           "01JPBM4D6A9V3X0ZQ8E7RNKT2R",
			TaskID:       1,
			Question:     capitalQuestion,
			AssistantID:  "alpha",
			Status:       runners.Success,
			Response:     "Paris",
			ChatID:       "chat-1",
			DebugInfo:    map[string]any{"model": "unique-v1"},
			ResponseTime: 1500 * time.Millisecond,
			GoldenAnswer: &golden.Answer{Question: capitalQuestion, Model: "gpt-4o", Text: "Paris", Success: true},
		},
	},
	"beta": {
		{
			ID:           "01JPBM4D6A9V3X0ZQ8E7RNKT2T",
			TaskID:       2,
			Question:     sumQuestion,
			AssistantID:  "beta",
			Status:       runners.Success,
			Response:     "4",
			ChatID:       "chat-2",
			ResponseTime: 250 * time.Millisecond,
			GoldenAnswer: &golden.Answer{Question: sumQuestion, Model: "gpt-4o", Text: "4.", Success: true},
		},
	},
}

var mockSummary = runners.Summary{
	ExperimentID:        "exp_1a2b3c4d",
	Name:                "capitals",
	TotalTests:          3,
	SuccessfulTests:     2,
	FailedTests:         1,
	TimedOutTests:       1,
	TotalDuration:       2 * time.Second,
	AverageResponseTime: time.Second,
	Assistants: map[string]runners.AssistantStats{
		"alpha": {TotalTests: 2, SuccessfulTests: 1, FailedTests: 1, TimedOutTests: 1, AverageResponseTime: 1250 * time.Millisecond},
		"beta":  {TotalTests: 1, SuccessfulTests: 1, AverageResponseTime: 250 * time.Millisecond},
	},
}

// table renders rows the way a tabwriter in debug mode with single-space padding does.
func table(widths []int, rows ...[]string) string {
	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprintf(&b, "%-*s|", widths[i]+1, cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func write(t *testing.T, formatter Formatter, summary runners.Summary, results runners.Results) string {
	var out bytes.Buffer
	require.NoError(t, formatter.Write(summary, results, &out))
	return out.String()
}

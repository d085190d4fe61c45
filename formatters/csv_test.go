// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/runners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csvHeader = []string{"Test ID", "Assistant", "Question", "Status", "Response Time (s)", "Answer", "Chat ID", "Golden Answer", "Golden Similarity (%)", "Golden Diff", "Debug Info"}

func TestCSVFormatterWrite(t *testing.T) {
	tests := []struct {
		name    string
		results runners.Results
		want    [][]string
	}{
		{
			name:    "format no results",
			results: runners.Results{},
			want:    [][]string{csvHeader},
		},
		{
			name:    "format some results",
			results: mockResults,
			want: [][]string{
				csvHeader,
				{"1", "alpha", capitalQuestion, "Success", "1.500", "Paris", "chat-1", "Paris", "100.00", "", `{"model":"unique-v1"}`},
				{"3", "alpha", sumQuestion, "Timeout", "1.000", "no response within 1s", "", "4.", "", "", ""},
				{"2", "beta", sumQuestion, "Success", "0.250", "4", "chat-2", "4.", "50.00", DiffText("4.", "4"), ""},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := write(t, NewCSVFormatter(), mockSummary, tt.results)

			records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
			require.NoError(t, err)
			assert.Equal(t, tt.want, records)
		})
	}
}

func TestCSVFormatterWrite_GoldenDiff(t *testing.T) {
	results := runners.Results{
		"alpha": {
			{TaskID: 1, AssistantID: "alpha", Status: runners.Success, Response: "Paris, France",
				GoldenAnswer: &golden.Answer{Text: "Paris", Success: true}},
			{TaskID: 2, AssistantID: "alpha", Status: runners.Success, Response: "Rome",
				GoldenAnswer: &golden.Answer{Text: golden.FailurePrefix + "quota", Success: false}},
		},
	}

	output := write(t, NewCSVFormatter(), runners.Summary{}, results)

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, DiffText("Paris", "Paris, France"), records[1][9])
	assert.Contains(t, records[1][9], "+, France")
	assert.Empty(t, records[2][9])
}

func TestCSVFormatterWrite_MultilineAnswer(t *testing.T) {
	results := runners.Results{
		"alpha": {{TaskID: 1, AssistantID: "alpha", Question: "List two colors.", Status: runners.Success, Response: "red,\n\"blue\""}},
	}

	output := write(t, NewCSVFormatter(), runners.Summary{}, results)

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "red,\n\"blue\"", records[1][5])
}

func TestCSVFormatterFileExt(t *testing.T) {
	assert.Equal(t, "csv", NewCSVFormatter().FileExt())
}

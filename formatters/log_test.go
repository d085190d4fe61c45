// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"strings"
	"testing"

	"github.com/ThePhilAz/unique-benchmarking/runners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logHeader = []string{"Test ID", "Assistant", "Status", "Duration", "Question", "Answer"}

func TestLogFormatterWrite(t *testing.T) {
	tests := []struct {
		name    string
		results runners.Results
		want    string
	}{
		{
			name:    "format no results",
			results: runners.Results{},
			want:    table([]int{7, 9, 6, 8, 8, 6}, logHeader),
		},
		{
			name:    "format some results",
			results: mockResults,
			want: table([]int{7, 9, 7, 8, 30, 21},
				logHeader,
				[]string{"1", "alpha", "Success", "1.5s", capitalQuestion, "Paris"},
				[]string{"3", "alpha", "Timeout", "1s", sumQuestion, "no response within 1s"},
				[]string{"2", "beta", "Success", "250ms", sumQuestion, "4"},
			) + "\n" +
				"alpha: 1/2 succeeded, 2.5s total response time (1.5s in successful calls)\n" +
				"beta: 1/1 succeeded, 250ms total response time (250ms in successful calls)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, write(t, NewLogFormatter(), mockSummary, tt.results))
		})
	}
}

func TestLogFormatterWrite_CollapsesLongAnswers(t *testing.T) {
	results := runners.Results{
		"alpha": {{TaskID: 1, AssistantID: "alpha", Question: "Describe Paris.", Status: runners.Success, Response: strings.Repeat("word ", 40)}},
	}

	output := write(t, NewLogFormatter(), runners.Summary{}, results)

	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "... |")
	assert.Empty(t, lines[2])
	assert.Equal(t, "alpha: 1/1 succeeded, 0s total response time (0s in successful calls)", lines[3])
}

func TestLogFormatterFileExt(t *testing.T) {
	assert.Equal(t, "log", NewLogFormatter().FileExt())
}

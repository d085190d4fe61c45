// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ThePhilAz/unique-benchmarking/runners"
)

// NewCSVFormatter creates a new formatter that outputs one CSV row per result.
func NewCSVFormatter() Formatter {
	return &csvFormatter{}
}

type csvFormatter struct{}

func (f csvFormatter) FileExt() string {
	return "csv"
}

func (f csvFormatter) Write(_ runners.Summary, results runners.Results, out io.Writer) error {
	writer := csv.NewWriter(out)

	headers := []string{"Test ID", "Assistant", "Question", "Status", "Response Time (s)", "Answer", "Chat ID", "Golden Answer", "Golden Similarity (%)", "Golden Diff", "Debug Info"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}

	err := ForEachOrdered(results, func(assistantID string, _ []runners.TestResult) error {
		for _, result := range results.Sorted(assistantID) {
			debugInfo, err := formatDebugInfo(result.DebugInfo)
			if err != nil {
				return err
			}
			var goldenAnswer string
			if result.GoldenAnswer != nil {
				goldenAnswer = result.GoldenAnswer.Text
			}
			row := []string{
				strconv.Itoa(result.TaskID),
				result.AssistantID,
				result.Question,
				ToStatus(result.Status),
				strconv.FormatFloat(RoundToMS(result.ResponseTime).Seconds(), 'f', 3, 64),
				answerText(result),
				result.ChatID,
				goldenAnswer,
				goldenSimilarity(result),
				goldenDiff(result),
				debugInfo,
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("%w: %v", ErrPrintResults, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}
	return nil
}

func formatDebugInfo(debugInfo map[string]any) (string, error) {
	if len(debugInfo) == 0 {
		return "", nil
	}
	data, err := json.Marshal(debugInfo)
	if err != nil {
		return "", fmt.Errorf("%w: debug info: %v", ErrPrintResults, err)
	}
	return string(data), nil
}

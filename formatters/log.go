// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/runners"
)

// NewLogFormatter creates a new formatter that outputs detailed results as an ASCII table.
func NewLogFormatter() Formatter {
	return &logFormatter{}
}

type logFormatter struct{}

func (f logFormatter) FileExt() string {
	return "log"
}

func (f logFormatter) Write(_ runners.Summary, results runners.Results, out io.Writer) error {
	tab := tabwriter.NewWriter(out, 0, 0, 1, ' ', tabwriter.Debug)
	if _, err := fmt.Fprintln(tab, "Test ID\tAssistant\tStatus\tDuration\tQuestion\tAnswer\t"); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}

	err := ForEachOrdered(results, func(assistantID string, _ []runners.TestResult) error {
		for _, result := range results.Sorted(assistantID) {
			if _, err := fmt.Fprintf(tab, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
				result.TaskID, result.AssistantID, ToStatus(result.Status), RoundToMS(result.ResponseTime),
				logging.FormatLogPreview(result.Question), answerPreview(result)); err != nil {
				return fmt.Errorf("%w: %v", ErrPrintResults, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := tab.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}
	if len(results) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(out); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}
	return ForEachOrdered(results, func(assistantID string, _ []runners.TestResult) error {
		byStatus := results.ByStatus(assistantID)
		if _, err := fmt.Fprintf(out, "%s: %d/%d succeeded, %s total response time (%s in successful calls)\n",
			assistantID,
			CountByStatus(byStatus, runners.Success), CountByStatus(byStatus, allStatuses...),
			RoundToMS(TotalDuration(byStatus, allStatuses...)), RoundToMS(TotalDuration(byStatus, runners.Success))); err != nil {
			return fmt.Errorf("%w: %v", ErrPrintResults, err)
		}
		return nil
	})
}

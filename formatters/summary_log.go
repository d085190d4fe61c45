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

	"github.com/ThePhilAz/unique-benchmarking/runners"
)

const summaryTotalRow = "TOTAL"

// NewSummaryLogFormatter creates a new formatter that outputs per-assistant statistics as an ASCII table summary.
func NewSummaryLogFormatter() Formatter {
	return &summaryLogFormatter{}
}

type summaryLogFormatter struct{}

func (f summaryLogFormatter) FileExt() string {
	return "summary.log"
}

func (f summaryLogFormatter) Write(summary runners.Summary, _ runners.Results, out io.Writer) error {
	tab := tabwriter.NewWriter(out, 0, 0, 1, ' ', tabwriter.Debug)
	if _, err := fmt.Fprintf(tab, "Assistant\tTotal\t%s\t%s\t%s\tSuccess Rate (%%)\tAvg Response Time\t\n", Succeeded, Errored, TimedOut); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}

	writeRow := func(name string, stats runners.AssistantStats) error {
		if _, err := fmt.Fprintf(tab, "%s\t%d\t%d\t%d\t%d\t%.2f\t%s\t\n",
			name,
			stats.TotalTests,
			stats.SuccessfulTests,
			stats.FailedTests-stats.TimedOutTests,
			stats.TimedOutTests,
			Percent(stats.SuccessRate()),
			RoundToMS(stats.AverageResponseTime)); err != nil {
			return fmt.Errorf("%w: %v", ErrPrintResults, err)
		}
		return nil
	}
	if err := ForEachOrdered(summary.Assistants, writeRow); err != nil {
		return err
	}
	if err := writeRow(summaryTotalRow, runners.AssistantStats{
		TotalTests:          summary.TotalTests,
		SuccessfulTests:     summary.SuccessfulTests,
		FailedTests:         summary.FailedTests,
		TimedOutTests:       summary.TimedOutTests,
		AverageResponseTime: summary.AverageResponseTime,
	}); err != nil {
		return err
	}
	if err := tab.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}

	if _, err := fmt.Fprintf(out, "\nExperiment: %s (%s)\nTotal duration: %s\n",
		summary.Name, summary.ExperimentID, RoundToMS(summary.TotalDuration)); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}
	return nil
}

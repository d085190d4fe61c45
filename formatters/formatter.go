// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package formatters writes reports of finished experiments.
// It supports CSV and plain text table outputs.
package formatters

import (
	"errors"
	"io"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/runners"
)

// ErrPrintResults indicates that result formatting failed.
var ErrPrintResults = errors.New("failed to print formatted results")

// Formatter handles converting results into specific output formats.
type Formatter interface {
	// FileExt returns the formatter's file extension.
	FileExt() string
	// Write outputs the formatted experiment report to the writer.
	Write(summary runners.Summary, results runners.Results, out io.Writer) error
}

// answerText returns the answer of a successful result or the error of a failed one.
func answerText(result runners.TestResult) string {
	if result.Status == runners.Success {
		return result.Response
	}
	return result.Error
}

// answerPreview returns a single-line preview of the answer text for table outputs.
func answerPreview(result runners.TestResult) string {
	return logging.FormatLogPreview(answerText(result))
}

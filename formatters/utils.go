// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"cmp"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ThePhilAz/unique-benchmarking/pkg/utils"
	"github.com/ThePhilAz/unique-benchmarking/runners"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Status labels used in reports.
const (
	Succeeded = "Success"
	Errored   = "Error"
	TimedOut  = "Timeout"
)

var allStatuses = []runners.Status{runners.Success, runners.Error, runners.Timeout}

// ToStatus returns the report label of a result status.
func ToStatus(status runners.Status) string {
	switch status {
	case runners.Success:
		return Succeeded
	case runners.Error:
		return Errored
	case runners.Timeout:
		return TimedOut
	}
	return fmt.Sprintf("Unknown (%d)", status)
}

// CountByStatus returns the number of results with any of the given statuses.
func CountByStatus(resultsByStatus map[runners.Status][]runners.TestResult, statuses ...runners.Status) (count int) {
	for _, status := range statuses {
		count += len(resultsByStatus[status])
	}
	return
}

// TotalDuration returns the summed response time of results with any of the given statuses.
func TotalDuration(resultsByStatus map[runners.Status][]runners.TestResult, statuses ...runners.Status) (total time.Duration) {
	for _, status := range statuses {
		for _, result := range resultsByStatus[status] {
			total += result.ResponseTime
		}
	}
	return
}

// Percent converts a fraction to a percentage.
func Percent(fraction float64) float64 {
	return fraction * 100
}

// RoundToMS rounds a duration to the nearest millisecond.
func RoundToMS(value time.Duration) time.Duration {
	return value.Round(time.Millisecond)
}

// ForEachOrdered calls fn for each entry of m in ascending key order.
// It stops at the first error.
func ForEachOrdered[K cmp.Ordered, V any](m map[K]V, fn func(key K, value V) error) error {
	for _, key := range utils.SortedKeys(m) {
		if err := fn(key, m[key]); err != nil {
			return err
		}
	}
	return nil
}

// Similarity returns how close actual is to expected as a value between 0 and 1,
// based on the character-level edit distance of the two texts.
func Similarity(expected string, actual string) float64 {
	if expected == actual {
		return 1
	}
	dmp := diffmatchpatch.New()
	distance := dmp.DiffLevenshtein(dmp.DiffMain(expected, actual, false))
	longest := max(utf8.RuneCountInString(expected), utf8.RuneCountInString(actual))
	return 1 - utils.Ratio(distance, longest)
}

// DiffText returns a unified-style patch turning expected into actual.
func DiffText(expected string, actual string) string {
	dmp := diffmatchpatch.New()
	return dmp.PatchToText(dmp.PatchMake(expected, actual))
}

// goldenSimilarity returns the formatted similarity of a successful result to its golden answer,
// or an empty string when there is nothing to compare.
func goldenSimilarity(result runners.TestResult) string {
	if result.Status != runners.Success || result.GoldenAnswer == nil || !result.GoldenAnswer.Success {
		return ""
	}
	return fmt.Sprintf("%.2f", Percent(Similarity(result.GoldenAnswer.Text, result.Response)))
}

// goldenDiff returns the patch turning the golden answer into the response of a successful result,
// or an empty string when there is nothing to compare.
func goldenDiff(result runners.TestResult) string {
	if result.Status != runners.Success || result.GoldenAnswer == nil || !result.GoldenAnswer.Success {
		return ""
	}
	return DiffText(result.GoldenAnswer.Text, result.Response)
}

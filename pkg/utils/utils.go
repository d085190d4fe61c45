// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package utils contains small generic helpers shared across packages.
package utils

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"

	"golang.org/x/exp/constraints"
)

// NoPanic calls fn and converts a panic into an error.
func NoPanic(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// Ratio returns part/total, or 0 when total is zero.
func Ratio[T constraints.Integer | constraints.Float](part, total T) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// MeanDuration divides a total duration evenly over count items, or returns 0 when count is zero.
func MeanDuration[T constraints.Integer](total time.Duration, count T) time.Duration {
	if count <= 0 {
		return 0
	}
	return total / time.Duration(count)
}

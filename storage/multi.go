// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package storage

import (
	"context"
	"errors"
	"io"

	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/runners"
)

// MultiStore forwards every call to all of its stores.
// A failing store does not prevent the others from being called.
type MultiStore []runners.ResultStore

func (m MultiStore) StartExperiment(ctx context.Context, experiment runners.ExperimentInfo) error {
	return m.each(func(store runners.ResultStore) error {
		return store.StartExperiment(ctx, experiment)
	})
}

func (m MultiStore) SaveResult(ctx context.Context, experimentID string, result runners.TestResult) error {
	return m.each(func(store runners.ResultStore) error {
		return store.SaveResult(ctx, experimentID, result)
	})
}

func (m MultiStore) SaveGoldenAnswers(ctx context.Context, experimentID string, answers []golden.Answer) error {
	return m.each(func(store runners.ResultStore) error {
		return store.SaveGoldenAnswers(ctx, experimentID, answers)
	})
}

func (m MultiStore) FinalizeExperiment(ctx context.Context, summary runners.Summary) error {
	return m.each(func(store runners.ResultStore) error {
		return store.FinalizeExperiment(ctx, summary)
	})
}

// Close closes every store that can be closed.
func (m MultiStore) Close() error {
	return m.each(func(store runners.ResultStore) error {
		if closer, ok := store.(io.Closer); ok {
			return closer.Close()
		}
		return nil
	})
}

func (m MultiStore) each(fn func(store runners.ResultStore) error) error {
	errs := make([]error, 0, len(m))
	for _, store := range m {
		errs = append(errs, fn(store))
	}
	return errors.Join(errs...)
}

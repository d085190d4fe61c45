// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThePhilAz/unique-benchmarking/assistants"
	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/pkg/testutils"
	"github.com/ThePhilAz/unique-benchmarking/runners"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) logging.Logger {
	return testutils.NewTestLogger(t)
}

func TestMultiStore_ContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	broken := NewFileStore(testutils.CreateMockFile(t, "not-a-directory", nil))
	working := newTestSQLiteStore(t)
	store := MultiStore{broken, working}

	err := store.StartExperiment(ctx, testExperiment(t, "exp_00000001"))
	require.ErrorIs(t, err, ErrWrite)

	row, err := working.GetExperiment(ctx, "exp_00000001")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, row.Status)

	err = store.SaveResult(ctx, "exp_00000001", testResults()[0])
	require.ErrorIs(t, err, ErrUnknownExperiment)
	counts, err := working.CountResults(ctx, "exp_00000001")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[runners.Success])

	require.NoError(t, store.Close())
}

func TestMultiStore_Empty(t *testing.T) {
	ctx := context.Background()
	var store MultiStore

	require.NoError(t, store.StartExperiment(ctx, testExperiment(t, "exp_00000001")))
	require.NoError(t, store.SaveResult(ctx, "exp_00000001", testResults()[0]))
	require.NoError(t, store.SaveGoldenAnswers(ctx, "exp_00000001", nil))
	require.NoError(t, store.FinalizeExperiment(ctx, testSummary("exp_00000001")))
	require.NoError(t, store.Close())
}

func TestStores_WithRunner(t *testing.T) {
	ctx := context.Background()
	files := NewFileStore(t.TempDir())
	database := newTestSQLiteStore(t)
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		if assistantID == "A2" {
			return assistants.Answer{}, assistants.NewAskError(assistants.APIError, nil, "forbidden")
		}
		return assistants.Answer{Text: "answer to " + question, ChatID: "chat-" + question}, nil
	})
	cache := golden.NewCache(golden.GeneratorFunc(func(_ context.Context, question string, _ string) (string, error) {
		return "golden " + question, nil
	}), database, testLogger(t))
	cfg, err := config.NewExperimentConfig("end to end", []string{"Q1", "Q2", "Q3"}, []string{"A1", "A2"}, 2, 5, "gpt-4o")
	require.NoError(t, err)

	r := runners.NewDefaultRunner(assistant, zerolog.New(zerolog.NewTestWriter(t)),
		runners.WithResultStore(MultiStore{files, database}),
		runners.WithGoldenCache(cache))
	summary, err := r.Run(ctx, cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SuccessfulTests)
	assert.Equal(t, 3, summary.FailedTests)

	dir, ok := files.ExperimentDir(summary.ExperimentID)
	require.True(t, ok)
	successFiles, err := os.ReadDir(filepath.Join(dir, SuccessDir))
	require.NoError(t, err)
	assert.Len(t, successFiles, summary.SuccessfulTests)
	errorFiles, err := os.ReadDir(filepath.Join(dir, ErrorDir))
	require.NoError(t, err)
	assert.Len(t, errorFiles, summary.FailedTests)
	assert.FileExists(t, filepath.Join(dir, SummaryFileName))
	assert.Len(t, testutils.ReadJSONFile[[]golden.Answer](t, filepath.Join(dir, GoldenFileName)), 3)

	counts, err := database.CountResults(ctx, summary.ExperimentID)
	require.NoError(t, err)
	assert.Equal(t, summary.SuccessfulTests, counts[runners.Success])
	assert.Equal(t, summary.FailedTests, counts[runners.Error])
	row, err := database.GetExperiment(ctx, summary.ExperimentID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, row.Status)
	assert.Equal(t, 6, row.CompletedTasks)

	stored, found, err := database.LookupGolden(ctx, golden.QuestionHash("Q2", "gpt-4o"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "golden Q2", stored.Text)
}

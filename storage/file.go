// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/runners"
)

// Names of the files and directories written for each experiment.
const (
	SuccessDir         = "success"
	ErrorDir           = "error"
	ConfigFileName     = "experiment_config.json"
	SummaryFileName    = "experiment_summary.json"
	GoldenFileName     = "golden_answers.json"
	experimentDirFmt   = "20060102_150405"
	experimentDirName  = "experiment_"
	failedResultPrefix = "failed_test_"
)

var invalidFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// FileStore writes each experiment into its own directory of JSON files:
// successful results under success/, failed and timed out results under error/.
type FileStore struct {
	baseDir string

	mu   sync.Mutex
	dirs map[string]string
}

// NewFileStore creates a store writing experiment directories under baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
		dirs:    make(map[string]string),
	}
}

// ExperimentDir returns the directory of a started experiment.
func (s *FileStore) ExperimentDir(experimentID string) (dir string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, ok = s.dirs[experimentID]
	return
}

func (s *FileStore) StartExperiment(ctx context.Context, experiment runners.ExperimentInfo) error {
	dir := filepath.Join(s.baseDir, experimentDirName+experiment.StartTime.Format(experimentDirFmt))
	if _, err := os.Stat(dir); err == nil {
		dir += "_" + experiment.ID
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: experiment directory: %v", ErrWrite, err)
	}
	for _, partition := range []string{SuccessDir, ErrorDir} {
		if err := os.MkdirAll(filepath.Join(dir, partition), 0755); err != nil {
			return fmt.Errorf("%w: experiment directory: %v", ErrWrite, err)
		}
	}

	s.mu.Lock()
	s.dirs[experiment.ID] = dir
	s.mu.Unlock()

	return writeJSON(filepath.Join(dir, ConfigFileName), newExperimentRecord(experiment))
}

func (s *FileStore) SaveResult(ctx context.Context, experimentID string, result runners.TestResult) error {
	dir, ok := s.ExperimentDir(experimentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExperiment, experimentID)
	}
	return writeJSON(filepath.Join(dir, resultPath(result)), newResultRecord(result))
}

func (s *FileStore) SaveGoldenAnswers(ctx context.Context, experimentID string, answers []golden.Answer) error {
	dir, ok := s.ExperimentDir(experimentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExperiment, experimentID)
	}
	return writeJSON(filepath.Join(dir, GoldenFileName), answers)
}

func (s *FileStore) FinalizeExperiment(ctx context.Context, summary runners.Summary) error {
	dir, ok := s.ExperimentDir(summary.ExperimentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExperiment, summary.ExperimentID)
	}
	return writeJSON(filepath.Join(dir, SummaryFileName), newSummaryRecord(summary))
}

// resultPath returns the path of a result file relative to the experiment directory.
// Successful results are named after their chat.
func resultPath(result runners.TestResult) string {
	if result.Status == runners.Success {
		name := result.ChatID
		if name == "" {
			name = "test_" + strconv.Itoa(result.TaskID)
		}
		return filepath.Join(SuccessDir, invalidFileNameChars.ReplaceAllString(name, "_")+".json")
	}
	return filepath.Join(ErrorDir, failedResultPrefix+strconv.Itoa(result.TaskID)+".json")
}

// writeJSON writes v as indented JSON, replacing the file atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %v", ErrWrite, filepath.Base(path), err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %v", ErrWrite, filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, filepath.Base(path), err)
	}
	return nil
}

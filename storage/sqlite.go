// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/assistants"
	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/runners"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const (
	sqliteDriverName = "sqlite"
	memoryDatabase   = ":memory:"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS experiments (
		experiment_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		assistant_ids TEXT NOT NULL,
		questions TEXT NOT NULL,
		concurrency_limit INTEGER NOT NULL,
		timeout_seconds REAL NOT NULL,
		golden_model TEXT,
		status TEXT NOT NULL,
		total_tasks INTEGER NOT NULL DEFAULT 0,
		completed_tasks INTEGER NOT NULL DEFAULT 0,
		progress_percentage REAL NOT NULL DEFAULT 0,
		start_time TEXT NOT NULL,
		end_time TEXT,
		summary TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS assistant_responses (
		id TEXT PRIMARY KEY,
		experiment_id TEXT NOT NULL REFERENCES experiments(experiment_id) ON DELETE CASCADE,
		test_id INTEGER NOT NULL,
		chat_id TEXT,
		question TEXT NOT NULL,
		assistant_id TEXT NOT NULL,
		status TEXT NOT NULL,
		success INTEGER NOT NULL,
		answer TEXT,
		debug_info TEXT,
		hallucination_level TEXT,
		hallucination_reason TEXT,
		error_message TEXT,
		response_time_seconds REAL NOT NULL,
		started_at TEXT,
		ended_at TEXT,
		UNIQUE (experiment_id, test_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assistant_responses_assistant ON assistant_responses(experiment_id, assistant_id)`,
	`CREATE TABLE IF NOT EXISTS golden_answers (
		question_hash TEXT PRIMARY KEY,
		model_name TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		success INTEGER NOT NULL,
		started_at TEXT,
		ended_at TEXT,
		updated_at TEXT NOT NULL
	)`,
}

// ExperimentRow is an experiment as recorded in the database.
type ExperimentRow struct {
	ExperimentID       string
	Name               string
	Status             string
	TotalTasks         int
	CompletedTasks     int
	ProgressPercentage float64
	StartTime          time.Time
	EndTime            *time.Time
}

// SQLiteStore records experiments, results and golden answers in a SQLite database.
// It also serves as the persistent store of the golden answer cache.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path. An empty path opens an in-memory database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = memoryDatabase
	}
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to configure database: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartExperiment(ctx context.Context, experiment runners.ExperimentInfo) error {
	record := newExperimentRecord(experiment)
	assistantIDs, err := json.Marshal(record.AssistantIDs)
	if err != nil {
		return fmt.Errorf("%w: experiment: %v", ErrWrite, err)
	}
	questions, err := json.Marshal(record.Questions)
	if err != nil {
		return fmt.Errorf("%w: experiment: %v", ErrWrite, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO experiments (experiment_id, name, assistant_ids, questions, concurrency_limit, timeout_seconds, golden_model, status, total_tasks, start_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ExperimentID,
		record.Name,
		string(assistantIDs),
		string(questions),
		record.ConcurrencyLimit,
		record.TimeoutSeconds,
		nullString(record.GoldenModel),
		record.Status,
		record.TotalTasks,
		formatTime(record.StartTime),
	)
	if err != nil {
		return fmt.Errorf("%w: experiment: %v", ErrWrite, err)
	}
	return nil
}

// SaveResult records the result and advances the progress of its experiment.
func (s *SQLiteStore) SaveResult(ctx context.Context, experimentID string, result runners.TestResult) (err error) {
	debugInfo, err := json.Marshal(result.DebugInfo)
	if err != nil {
		return fmt.Errorf("%w: result: %v", ErrWrite, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: result: %v", ErrWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assistant_responses (id, experiment_id, test_id, chat_id, question, assistant_id, status, success, answer, debug_info,
			hallucination_level, hallucination_reason, error_message, response_time_seconds, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		experimentID,
		result.TaskID,
		nullString(result.ChatID),
		result.Question,
		result.AssistantID,
		result.Status.String(),
		result.Status == runners.Success,
		nullString(result.Response),
		string(debugInfo),
		nullString(debugString(result.DebugInfo, assistants.MetricHallucinationLevel)),
		nullString(debugString(result.DebugInfo, assistants.MetricHallucinationReason)),
		nullString(result.Error),
		result.ResponseTimeSeconds(),
		formatTime(result.StartedAt),
		formatTime(result.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("%w: result: %v", ErrWrite, err)
	}

	updated, err := tx.ExecContext(ctx, `
		UPDATE experiments
		SET completed_tasks = completed_tasks + 1,
			progress_percentage = CASE WHEN total_tasks > 0 THEN (completed_tasks + 1) * 100.0 / total_tasks ELSE 0 END
		WHERE experiment_id = ?`, experimentID)
	if err != nil {
		return fmt.Errorf("%w: progress: %v", ErrWrite, err)
	}
	if n, _ := updated.RowsAffected(); n == 0 {
		err = fmt.Errorf("%w: %s", ErrUnknownExperiment, experimentID)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: result: %v", ErrWrite, err)
	}
	return nil
}

// SaveGoldenAnswers records the golden answers of an experiment for reuse by later experiments.
// Stored answers are kept as they are, unless a failed answer can be replaced by a successful one.
func (s *SQLiteStore) SaveGoldenAnswers(ctx context.Context, experimentID string, answers []golden.Answer) error {
	var errs []error
	for _, answer := range answers {
		errs = append(errs, s.saveGolden(ctx, answer, `
		ON CONFLICT(question_hash) DO UPDATE SET
			answer = excluded.answer,
			success = excluded.success,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			updated_at = excluded.updated_at
		WHERE golden_answers.success = 0 AND excluded.success = 1`))
	}
	return errors.Join(errs...)
}

// SaveGolden stores or replaces a golden answer.
func (s *SQLiteStore) SaveGolden(ctx context.Context, answer golden.Answer) error {
	return s.saveGolden(ctx, answer, `
		ON CONFLICT(question_hash) DO UPDATE SET
			answer = excluded.answer,
			success = excluded.success,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			updated_at = excluded.updated_at`)
}

func (s *SQLiteStore) saveGolden(ctx context.Context, answer golden.Answer, onConflict string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO golden_answers (question_hash, model_name, question, answer, success, started_at, ended_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`+onConflict,
		answer.Hash(),
		answer.Model,
		answer.Question,
		answer.Text,
		answer.Success,
		formatTime(answer.StartedAt),
		formatTime(answer.EndedAt),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("%w: golden answer: %v", ErrWrite, err)
	}
	return nil
}

// LookupGolden returns the golden answer with the given question hash.
func (s *SQLiteStore) LookupGolden(ctx context.Context, hash string) (answer golden.Answer, found bool, err error) {
	var startedAt, endedAt sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT model_name, question, answer, success, started_at, ended_at
		FROM golden_answers WHERE question_hash = ?`, hash,
	).Scan(&answer.Model, &answer.Question, &answer.Text, &answer.Success, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return golden.Answer{}, false, nil
	} else if err != nil {
		return golden.Answer{}, false, fmt.Errorf("%w: golden answer: %v", ErrRead, err)
	}
	answer.StartedAt = parseTime(startedAt)
	answer.EndedAt = parseTime(endedAt)
	return answer, true, nil
}

// FinalizeExperiment marks the experiment completed and stores its summary.
func (s *SQLiteStore) FinalizeExperiment(ctx context.Context, summary runners.Summary) error {
	data, err := json.Marshal(newSummaryRecord(summary))
	if err != nil {
		return fmt.Errorf("%w: summary: %v", ErrWrite, err)
	}
	updated, err := s.db.ExecContext(ctx, `
		UPDATE experiments SET status = ?, end_time = ?, progress_percentage = 100, summary = ?
		WHERE experiment_id = ?`,
		StatusCompleted, formatTime(summary.EndTime), string(data), summary.ExperimentID)
	if err != nil {
		return fmt.Errorf("%w: summary: %v", ErrWrite, err)
	}
	if n, _ := updated.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownExperiment, summary.ExperimentID)
	}
	return nil
}

// GetExperiment returns the recorded state of an experiment.
func (s *SQLiteStore) GetExperiment(ctx context.Context, experimentID string) (row ExperimentRow, err error) {
	var startTime string
	var endTime sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT experiment_id, name, status, total_tasks, completed_tasks, progress_percentage, start_time, end_time
		FROM experiments WHERE experiment_id = ?`, experimentID,
	).Scan(&row.ExperimentID, &row.Name, &row.Status, &row.TotalTasks, &row.CompletedTasks, &row.ProgressPercentage, &startTime, &endTime)
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("%w: %s", ErrUnknownExperiment, experimentID)
	} else if err != nil {
		return row, fmt.Errorf("%w: experiment: %v", ErrRead, err)
	}
	row.StartTime = parseTime(sql.NullString{String: startTime, Valid: true})
	if endTime.Valid {
		end := parseTime(endTime)
		row.EndTime = &end
	}
	return row, nil
}

// CountResults returns the number of recorded results of an experiment per status.
func (s *SQLiteStore) CountResults(ctx context.Context, experimentID string) (map[runners.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM assistant_responses WHERE experiment_id = ? GROUP BY status`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("%w: results: %v", ErrRead, err)
	}
	defer rows.Close()

	counts := make(map[runners.Status]int)
	for rows.Next() {
		var statusText string
		var count int
		if err := rows.Scan(&statusText, &count); err != nil {
			return nil, fmt.Errorf("%w: results: %v", ErrRead, err)
		}
		var status runners.Status
		if err := status.UnmarshalText([]byte(statusText)); err != nil {
			return nil, fmt.Errorf("%w: results: %v", ErrRead, err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: results: %v", ErrRead, err)
	}
	return counts, nil
}

func debugString(debugInfo map[string]any, key string) string {
	if value, ok := debugInfo[key].(string); ok {
		return value
	}
	return ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(value sql.NullString) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

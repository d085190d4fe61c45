// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/assistants"
	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/pkg/testutils"
	"github.com/ThePhilAz/unique-benchmarking/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mu          sync.Mutex
	started     []ExperimentInfo
	results     []TestResult
	golden      []golden.Answer
	summaries   []Summary
	failResults bool
	saveDelay   time.Duration
}

func (s *recordingStore) StartExperiment(_ context.Context, experiment ExperimentInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, experiment)
	return nil
}

func (s *recordingStore) SaveResult(_ context.Context, _ string, result TestResult) error {
	time.Sleep(s.saveDelay)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failResults {
		return errors.New("disk full")
	}
	s.results = append(s.results, result)
	return nil
}

func (s *recordingStore) SaveGoldenAnswers(_ context.Context, _ string, answers []golden.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.golden = append(s.golden, answers...)
	return nil
}

func (s *recordingStore) FinalizeExperiment(_ context.Context, summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	return nil
}

func newTestRunner(t *testing.T, assistant assistants.Assistant, opts ...RunnerOption) Runner {
	return NewDefaultRunner(assistant, zerolog.New(zerolog.NewTestWriter(t)), opts...)
}

func newTestConfig(t *testing.T, questions []string, assistantIDs []string, concurrencyLimit int, timeoutSeconds float64) config.ExperimentConfig {
	cfg, err := config.NewExperimentConfig("test experiment", questions, assistantIDs, concurrencyLimit, timeoutSeconds, "")
	require.NoError(t, err)
	return cfg
}

func sleepingAssistant(delay time.Duration) assistants.Assistant {
	return assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		select {
		case <-time.After(delay):
			return assistants.Answer{Text: assistantID + " answers " + question, ChatID: "chat-" + question}, nil
		case <-ctx.Done():
			return assistants.Answer{}, assistants.NewAskError(assistants.Timeout, ctx.Err(), "cancelled")
		}
	})
}

func TestNewTasks(t *testing.T) {
	cfg := newTestConfig(t, []string{"Q1", "Q2", "Q1"}, []string{"A1", "A2"}, 1, 1)

	tasks := NewTasks(cfg)

	assert.Equal(t, []Task{
		{ID: 1, Question: "Q1", AssistantID: "A1"},
		{ID: 2, Question: "Q1", AssistantID: "A2"},
		{ID: 3, Question: "Q2", AssistantID: "A1"},
		{ID: 4, Question: "Q2", AssistantID: "A2"},
		{ID: 5, Question: "Q1", AssistantID: "A1"},
		{ID: 6, Question: "Q1", AssistantID: "A2"},
	}, tasks)
}

func TestRunnerRun_ProducesOneResultPerTask(t *testing.T) {
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		switch assistantID {
		case "broken":
			return assistants.Answer{}, assistants.NewAskError(assistants.APIError, nil, "internal server error")
		case "slow":
			<-ctx.Done()
			return assistants.Answer{}, assistants.NewAskError(assistants.Timeout, ctx.Err(), "deadline")
		}
		return assistants.Answer{Text: "ok", DebugInfo: map[string]any{"tool_calls": 1}}, nil
	})
	cfg := newTestConfig(t, []string{"Q1", "Q2", "Q3"}, []string{"good", "broken", "slow"}, 4, 0.1)
	r := newTestRunner(t, assistant)

	summary, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.TotalTasks(), summary.TotalTests)
	assert.Equal(t, summary.TotalTests, summary.SuccessfulTests+summary.FailedTests)
	assert.Equal(t, 3, summary.SuccessfulTests)
	assert.Equal(t, 6, summary.FailedTests)
	assert.Equal(t, 3, summary.TimedOutTests)
	assert.Equal(t, "test experiment", summary.Name)
	assert.Regexp(t, `^exp_[0-9a-f]{8}$`, summary.ExperimentID)

	results := r.GetResults()
	require.Equal(t, 9, results.Count())
	seen := make(map[int]bool)
	for _, assistantID := range results.AssistantIDs() {
		for _, result := range results[assistantID] {
			assert.False(t, seen[result.TaskID], "duplicate result for task %d", result.TaskID)
			seen[result.TaskID] = true
			assert.NotEmpty(t, result.ID)
			assert.Positive(t, result.ResponseTime)
			switch assistantID {
			case "good":
				assert.Equal(t, Success, result.Status)
				assert.Equal(t, "ok", result.Response)
				assert.Empty(t, result.Error)
				assert.Equal(t, map[string]any{"tool_calls": 1}, result.DebugInfo)
			case "broken":
				assert.Equal(t, Error, result.Status)
				assert.Empty(t, result.Response)
				assert.Contains(t, result.Error, "internal server error")
			case "slow":
				assert.Equal(t, Timeout, result.Status)
				assert.NotEmpty(t, result.Error)
			}
		}
	}
	assert.Len(t, seen, 9)

	assert.Equal(t, AssistantStats{TotalTests: 3, SuccessfulTests: 3}, withoutMean(summary.Assistants["good"]))
	assert.Equal(t, AssistantStats{TotalTests: 3, FailedTests: 3}, withoutMean(summary.Assistants["broken"]))
	assert.Equal(t, AssistantStats{TotalTests: 3, FailedTests: 3, TimedOutTests: 3}, withoutMean(summary.Assistants["slow"]))
}

func withoutMean(stats AssistantStats) AssistantStats {
	stats.AverageResponseTime = 0
	return stats
}

func TestRunnerRun_AdmitsAllTasksWhenLimitAllows(t *testing.T) {
	const total = 4
	var started atomic.Int32
	allStarted := make(chan struct{})
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		if started.Add(1) == total {
			close(allStarted)
		}
		select {
		case <-allStarted:
			return assistants.Answer{Text: "ok"}, nil
		case <-ctx.Done():
			return assistants.Answer{}, ctx.Err()
		}
	})
	cfg := newTestConfig(t, []string{"Q1", "Q2"}, []string{"A1", "A2"}, total, 2)

	summary, err := newTestRunner(t, assistant).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, total, summary.SuccessfulTests)
}

func TestRunnerRun_RespectsConcurrencyLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return assistants.Answer{Text: "ok"}, nil
	})
	cfg := newTestConfig(t, []string{"Q1", "Q2", "Q3", "Q4", "Q5"}, []string{"A1", "A2"}, limit, 5)

	summary, err := newTestRunner(t, assistant).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.SuccessfulTests)
	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Positive(t, peak.Load())
}

func TestRunnerRun_UnresponsiveCallTimesOutAndFreesSlot(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		if question == "hang" {
			<-block // ignores the context on purpose
			return assistants.Answer{Text: "too late"}, nil
		}
		return assistants.Answer{Text: "ok"}, nil
	})
	cfg := newTestConfig(t, []string{"hang", "Q2"}, []string{"A1"}, 1, 0.1)
	r := newTestRunner(t, assistant)

	summary, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalTests)
	assert.Equal(t, 1, summary.SuccessfulTests)
	assert.Equal(t, 1, summary.TimedOutTests)

	byStatus := r.GetResults().ByStatus("A1")
	require.Len(t, byStatus[Timeout], 1)
	assert.Equal(t, "hang", byStatus[Timeout][0].Question)
	assert.Empty(t, byStatus[Timeout][0].Response)
	assert.InDelta(t, 0.1, byStatus[Timeout][0].ResponseTimeSeconds(), 0.05)
	require.Len(t, byStatus[Success], 1)
	assert.Equal(t, "Q2", byStatus[Success][0].Question)
}

func TestRunnerRun_SerializedScenario(t *testing.T) {
	cfg := newTestConfig(t, []string{"Q1", "Q2"}, []string{"A1"}, 1, 5)

	summary, err := newTestRunner(t, sleepingAssistant(time.Second)).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalTests)
	assert.Equal(t, 2, summary.SuccessfulTests)
	assert.Zero(t, summary.FailedTests)
	assert.InDelta(t, 1.0, summary.AverageResponseTime.Seconds(), 0.1)
	assert.InDelta(t, 2.0, summary.TotalDuration.Seconds(), 0.2)
	assert.InDelta(t, 1.0, summary.SuccessRate(), 0)
}

func TestRunnerRun_TransportErrorScenario(t *testing.T) {
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		if question == "Q2" {
			return assistants.Answer{}, assistants.NewAskError(assistants.NetworkError, errors.New("connection reset by peer"), "request failed")
		}
		return assistants.Answer{Text: "ok"}, nil
	})
	cfg := newTestConfig(t, []string{"Q1", "Q2"}, []string{"A1"}, 1, 5)
	r := newTestRunner(t, assistant)

	summary, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SuccessfulTests)
	assert.Equal(t, 1, summary.FailedTests)
	assert.Zero(t, summary.TimedOutTests)
	assert.InDelta(t, 0.5, summary.SuccessRate(), 0)
	failed := r.GetResults().ByStatus("A1")[Error]
	require.Len(t, failed, 1)
	assert.Equal(t, "network error: request failed", failed[0].Error)
}

func TestRunnerRun_InvalidConfiguration(t *testing.T) {
	var calls atomic.Int32
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		calls.Add(1)
		return assistants.Answer{}, nil
	})
	store := &recordingStore{}
	r := newTestRunner(t, assistant, WithResultStore(store))

	tests := []struct {
		name string
		cfg  config.ExperimentConfig
		want error
	}{
		{
			name: "no questions",
			cfg:  config.ExperimentConfig{AssistantIDs: utils.NewStringSet("A1"), ConcurrencyLimit: 1, TimeoutSeconds: 1},
			want: config.ErrNoQuestions,
		},
		{
			name: "no assistants",
			cfg:  config.ExperimentConfig{Questions: []string{"Q1"}, ConcurrencyLimit: 1, TimeoutSeconds: 1},
			want: config.ErrNoAssistants,
		},
		{
			name: "zero concurrency",
			cfg:  config.ExperimentConfig{Questions: []string{"Q1"}, AssistantIDs: utils.NewStringSet("A1"), TimeoutSeconds: 1},
			want: config.ErrInvalidConcurrencyLimit,
		},
		{
			name: "negative timeout",
			cfg:  config.ExperimentConfig{Questions: []string{"Q1"}, AssistantIDs: utils.NewStringSet("A1"), ConcurrencyLimit: 1, TimeoutSeconds: -1},
			want: config.ErrInvalidTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(context.Background(), tt.cfg)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, config.ErrConfiguration)
			var cfgErr *config.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}

	assert.Zero(t, calls.Load())
	assert.Empty(t, store.started)
	assert.Empty(t, store.results)
	assert.Empty(t, r.GetResults())
}

func TestRunnerRun_RecoversPanic(t *testing.T) {
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		if assistantID == "A2" {
			panic("nil map")
		}
		return assistants.Answer{Text: "ok"}, nil
	})
	cfg := newTestConfig(t, []string{"Q1"}, []string{"A1", "A2"}, 2, 1)
	r := newTestRunner(t, assistant)

	summary, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SuccessfulTests)
	assert.Equal(t, 1, summary.FailedTests)
	failed := r.GetResults()["A2"]
	require.Len(t, failed, 1)
	assert.Equal(t, Error, failed[0].Status)
	assert.Contains(t, failed[0].Error, "nil map")
}

func TestRunnerRun_PersistsEveryResult(t *testing.T) {
	assistant := assistants.AssistantFunc(func(ctx context.Context, assistantID string, question string) (assistants.Answer, error) {
		if question == "Q2" {
			return assistants.Answer{}, assistants.NewAskError(assistants.APIError, nil, "bad request")
		}
		return assistants.Answer{Text: "ok"}, nil
	})
	store := &recordingStore{}
	cfg := newTestConfig(t, []string{"Q1", "Q2"}, []string{"A1", "A2"}, 2, 1)

	summary, err := newTestRunner(t, assistant, WithResultStore(store)).Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, store.started, 1)
	assert.Equal(t, summary.ExperimentID, store.started[0].ID)
	assert.Equal(t, 4, store.started[0].TotalTasks)
	require.Len(t, store.results, 4)
	successes := 0
	for _, result := range store.results {
		if result.Status == Success {
			successes++
		}
	}
	assert.Equal(t, summary.SuccessfulTests, successes)
	require.Len(t, store.summaries, 1)
	assert.Equal(t, summary, store.summaries[0])
	assert.Empty(t, store.golden)
}

func TestRunnerRun_PersistenceFailureDoesNotAffectSummary(t *testing.T) {
	store := &recordingStore{failResults: true}
	cfg := newTestConfig(t, []string{"Q1", "Q2"}, []string{"A1"}, 2, 1)

	summary, err := newTestRunner(t, sleepingAssistant(0), WithResultStore(store)).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalTests)
	assert.Equal(t, 2, summary.SuccessfulTests)
	assert.Len(t, store.summaries, 1)
}

func TestRunnerRun_SlowStoreDoesNotHoldSlot(t *testing.T) {
	store := &recordingStore{saveDelay: 300 * time.Millisecond}
	cfg := newTestConfig(t, []string{"Q1", "Q2"}, []string{"A1"}, 1, 1)
	r := newTestRunner(t, sleepingAssistant(10*time.Millisecond), WithResultStore(store))

	summary, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	results := r.GetResults().Sorted("A1")
	require.Len(t, results, 2)
	assert.Less(t, results[1].StartedAt.Sub(results[0].StartedAt), 200*time.Millisecond)
	assert.Less(t, summary.TotalDuration, 200*time.Millisecond)
	assert.Equal(t, results[1].Timestamp, summary.EndTime)
	assert.Len(t, store.results, 2)
}

func TestRunnerRun_GoldenAnswersOncePerQuestion(t *testing.T) {
	var generated sync.Map
	var calls atomic.Int32
	generator := golden.GeneratorFunc(func(ctx context.Context, question string, model string) (string, error) {
		calls.Add(1)
		if _, loaded := generated.LoadOrStore(question, true); loaded {
			t.Errorf("golden answer for %q generated twice", question)
		}
		if question == "Q3" {
			return "", errors.New("model overloaded")
		}
		return "golden " + question, nil
	})
	cache := golden.NewCache(generator, nil, testutils.NewTestLogger(t))
	store := &recordingStore{}
	cfg, err := config.NewExperimentConfig("golden", []string{"Q1", "Q2", "Q1", "Q3"}, []string{"A1", "A2", "A3"}, 3, 1, "gpt-4o")
	require.NoError(t, err)
	r := newTestRunner(t, sleepingAssistant(0), WithGoldenCache(cache), WithResultStore(store))

	summary, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 12, summary.SuccessfulTests)
	assert.EqualValues(t, 3, calls.Load())
	require.Len(t, store.golden, 3)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, []string{store.golden[0].Question, store.golden[1].Question, store.golden[2].Question})
	assert.False(t, store.golden[2].Success)

	for _, results := range r.GetResults() {
		for _, result := range results {
			require.NotNil(t, result.GoldenAnswer)
			assert.Equal(t, result.Question, result.GoldenAnswer.Question)
			if result.Question == "Q3" {
				assert.Equal(t, golden.FailurePrefix+"model overloaded", result.GoldenAnswer.Text)
			} else {
				assert.Equal(t, "golden "+result.Question, result.GoldenAnswer.Text)
			}
		}
	}
}

func TestRunnerRun_GoldenModelWithoutGenerator(t *testing.T) {
	cfg, err := config.NewExperimentConfig("golden", []string{"Q1"}, []string{"A1"}, 1, 1, "gpt-4o")
	require.NoError(t, err)
	r := newTestRunner(t, sleepingAssistant(0))

	summary, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SuccessfulTests)
	assert.Nil(t, r.GetResults()["A1"][0].GoldenAnswer)
}

func TestRunnerRun_ReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var reports [][2]int
	reporter := ProgressReporterFunc(func(completed int, total int) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, [2]int{completed, total})
	})
	cfg := newTestConfig(t, []string{"Q1", "Q2", "Q3"}, []string{"A1"}, 2, 1)

	_, err := newTestRunner(t, sleepingAssistant(0), WithProgressReporter(reporter)).Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, reports, 3)
	for i, report := range reports {
		assert.Equal(t, [2]int{i + 1, 3}, report)
	}
}

func TestRunnerRun_ReportsProgressInOrderFromOneGoroutine(t *testing.T) {
	var reports []int
	reporter := ProgressReporterFunc(func(completed int, total int) {
		reports = append(reports, completed)
	})
	questions := []string{"Q1", "Q2", "Q3", "Q4", "Q5", "Q6", "Q7", "Q8"}
	cfg := newTestConfig(t, questions, []string{"A1", "A2"}, 8, 1)

	_, err := newTestRunner(t, sleepingAssistant(time.Millisecond), WithProgressReporter(reporter)).Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, reports, 16)
	for i, completed := range reports {
		assert.Equal(t, i+1, completed)
	}
}

func TestRunnerRun_PanickingReporterIsIgnored(t *testing.T) {
	reporter := ProgressReporterFunc(func(int, int) { panic("observer failed") })
	cfg := newTestConfig(t, []string{"Q1"}, []string{"A1"}, 1, 1)

	summary, err := newTestRunner(t, sleepingAssistant(0), WithProgressReporter(reporter)).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SuccessfulTests)
}

func TestRunnerRun_CallerCancellationDoesNotCancelTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assistant := assistants.AssistantFunc(func(callCtx context.Context, assistantID string, question string) (assistants.Answer, error) {
		cancel()
		select {
		case <-time.After(20 * time.Millisecond):
			return assistants.Answer{Text: "ok"}, nil
		case <-callCtx.Done():
			return assistants.Answer{}, callCtx.Err()
		}
	})
	cfg := newTestConfig(t, []string{"Q1", "Q2"}, []string{"A1"}, 1, 1)

	summary, err := newTestRunner(t, assistant).Run(ctx, cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SuccessfulTests)
}

func TestRunnerRun_RateLimit(t *testing.T) {
	cfg := newTestConfig(t, []string{"Q1", "Q2", "Q3"}, []string{"A1"}, 3, 1)
	r := newTestRunner(t, sleepingAssistant(0), WithRateLimit(600)) // one call per 100ms

	start := time.Now()
	summary, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SuccessfulTests)
	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
}

func TestRunnerStart(t *testing.T) {
	cfg := newTestConfig(t, []string{"Q1", "Q2"}, []string{"A1", "A2"}, 2, 1)
	r := newTestRunner(t, sleepingAssistant(10*time.Millisecond))

	run, err := r.Start(context.Background(), cfg)
	require.NoError(t, err)

	var progress []float32
	for p := range run.ProgressEvents() {
		progress = append(progress, p)
	}
	for range run.MessageEvents() {
	}
	summary := run.Wait()

	assert.NotEmpty(t, progress)
	assert.InDelta(t, 1.0, progress[len(progress)-1], 1e-6)
	assert.Equal(t, run.ExperimentID(), summary.ExperimentID)
	assert.Equal(t, 4, summary.SuccessfulTests)
	completed, total := run.Progress()
	assert.Equal(t, 4, completed)
	assert.Equal(t, 4, total)
	assert.Equal(t, 4, run.Results().Count())
	assert.Equal(t, run.Results(), r.GetResults())
	select {
	case <-run.Done():
	default:
		t.Fatal("run should be done")
	}
}

func TestResults_ByStatusAndSorted(t *testing.T) {
	results := Results{
		"A1": {
			{TaskID: 3, Status: Error},
			{TaskID: 1, Status: Success},
			{TaskID: 2, Status: Success},
		},
		"A0": {{TaskID: 4, Status: Timeout}},
	}

	assert.Equal(t, []string{"A0", "A1"}, results.AssistantIDs())
	assert.Equal(t, 4, results.Count())
	sorted := results.Sorted("A1")
	assert.Equal(t, []int{1, 2, 3}, []int{sorted[0].TaskID, sorted[1].TaskID, sorted[2].TaskID})
	assert.Equal(t, 3, results["A1"][0].TaskID, "Sorted must not reorder the original slice")

	byStatus := results.ByStatus("A1")
	assert.Len(t, byStatus[Success], 2)
	assert.Len(t, byStatus[Error], 1)
	assert.Empty(t, byStatus[Timeout])
}

func TestStatus_Text(t *testing.T) {
	for _, status := range []Status{Success, Error, Timeout} {
		text, err := status.MarshalText()
		require.NoError(t, err)
		var parsed Status
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, status, parsed)
	}
	assert.Equal(t, "unknown", Status(42).String())
	var s Status
	require.Error(t, s.UnmarshalText([]byte("pending")))
}

func TestNewExperimentID(t *testing.T) {
	id := NewExperimentID()
	assert.Regexp(t, `^exp_[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, NewExperimentID())
}

// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package assistants

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	createPath = "/public/chat/space/message"
	latestPath = "/public/chat/space/chat_42/messages/latest"
)

func newTestClient(t *testing.T, server *testutils.MockServer) *Client {
	return NewClient(config.AssistantAPIConfig{
		BaseURL:      server.URL + "/public/chat/",
		APIKey:       "ukey_test",
		AppID:        "app_1",
		UserID:       "user_1",
		CompanyID:    "company_1",
		PollInterval: 10 * time.Millisecond,
		ToolChoices:  []string{"WebSearch"},
	}, testutils.NewTestLogger(t))
}

func TestClient_Ask(t *testing.T) {
	server := testutils.CreateMockServer(t, map[string][]testutils.MockHTTPResponse{
		createPath: {{StatusCode: http.StatusOK, Content: []byte(`{"id":"msg_1","chatId":"chat_42","text":"What is the capital of France?","role":"USER"}`)}},
		latestPath: {
			{StatusCode: http.StatusOK, Content: []byte(`{"id":"msg_2","chatId":"chat_42","text":"","role":"ASSISTANT","completedAt":null}`)},
			{StatusCode: http.StatusServiceUnavailable, Content: []byte(`upstream busy`)},
			{StatusCode: http.StatusOK, Content: []byte(`{"id":"msg_2","chatId":"chat_42","role":"ASSISTANT",
				"text":"Paris<sup>1</sup>.<follow-up-question>Population?</follow-up-question>",
				"completedAt":"2025-06-01T10:00:03Z",
				"references":[{"name":"Wikipedia","url":"https://en.wikipedia.org/wiki/Paris","sequenceNumber":1}],
				"debugInfo":{"tools":[{"time_info":{"search_time":0.5,"crawl_time":1.0,"clean_time":0.1,"total_time":2.0},"search_results":[{"title":"Paris","url":"https://x","content":"c"}],"num chunks in final prompts":4}]},
				"assessment":[{"label":"LOW","explanation":"ok"}]}`)},
		},
	})

	answer, err := newTestClient(t, server).Ask(context.Background(), "assistant_a", "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris[Wikipedia](https://en.wikipedia.org/wiki/Paris).", answer.Text)
	assert.Equal(t, "chat_42", answer.ChatID)
	assert.Equal(t, 1, answer.DebugInfo[MetricToolCalls])
	assert.Equal(t, int64(4), answer.DebugInfo[MetricChunksInFinalPrompt])
	assert.Equal(t, "LOW", answer.DebugInfo[MetricHallucinationLevel])

	requests := server.Requests()
	require.Len(t, requests, 4)

	create := requests[0]
	assert.Equal(t, http.MethodPost, create.Method)
	assert.Equal(t, "Bearer ukey_test", create.Header.Get("Authorization"))
	assert.Equal(t, "app_1", create.Header.Get("x-app-id"))
	assert.Equal(t, "user_1", create.Header.Get("x-user-id"))
	assert.Equal(t, "company_1", create.Header.Get("x-company-id"))
	assert.Equal(t, "application/json", create.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(create.Body, &body))
	assert.Equal(t, "assistant_a", body["assistantId"])
	assert.Equal(t, "What is the capital of France?", body["text"])
	assert.Equal(t, []any{"WebSearch"}, body["toolChoices"])

	for _, poll := range requests[1:] {
		assert.Equal(t, http.MethodGet, poll.Method)
		assert.Equal(t, latestPath, poll.Path)
	}
}

func TestClient_AskAPIError(t *testing.T) {
	server := testutils.CreateMockServer(t, map[string][]testutils.MockHTTPResponse{
		createPath: {{StatusCode: http.StatusNotFound, Content: []byte(`{"message":"assistant not found"}`)}},
	})

	_, err := newTestClient(t, server).Ask(context.Background(), "missing", "Q1")
	var askErr *AskError
	require.True(t, errors.As(err, &askErr))
	assert.Equal(t, APIError, askErr.Kind)
	assert.Equal(t, http.StatusNotFound, askErr.StatusCode)
	assert.Contains(t, askErr.Error(), "assistant not found")
	assert.False(t, IsTimeout(err))
}

func TestClient_AskMissingChatID(t *testing.T) {
	server := testutils.CreateMockServer(t, map[string][]testutils.MockHTTPResponse{
		createPath: {{StatusCode: http.StatusOK, Content: []byte(`{"id":"msg_1"}`)}},
	})

	_, err := newTestClient(t, server).Ask(context.Background(), "assistant_a", "Q1")
	var askErr *AskError
	require.True(t, errors.As(err, &askErr))
	assert.Equal(t, APIError, askErr.Kind)
}

func TestClient_AskMalformedResponse(t *testing.T) {
	server := testutils.CreateMockServer(t, map[string][]testutils.MockHTTPResponse{
		createPath: {{StatusCode: http.StatusOK, Content: []byte(`<html>`)}},
	})

	_, err := newTestClient(t, server).Ask(context.Background(), "assistant_a", "Q1")
	var askErr *AskError
	require.True(t, errors.As(err, &askErr))
	assert.Equal(t, APIError, askErr.Kind)
}

func TestClient_AskTimeoutWhilePolling(t *testing.T) {
	server := testutils.CreateMockServer(t, map[string][]testutils.MockHTTPResponse{
		createPath: {{StatusCode: http.StatusOK, Content: []byte(`{"id":"msg_1","chatId":"chat_42"}`)}},
		latestPath: {{StatusCode: http.StatusOK, Content: []byte(`{"id":"msg_2","chatId":"chat_42","completedAt":null}`)}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, server).Ask(ctx, "assistant_a", "Q1")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestClient_AskTimeoutWhileConnecting(t *testing.T) {
	server := testutils.CreateMockServer(t, map[string][]testutils.MockHTTPResponse{
		createPath: {{StatusCode: http.StatusOK, Content: []byte(`{"chatId":"chat_42"}`), Delay: time.Second}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, server).Ask(ctx, "assistant_a", "Q1")
	var askErr *AskError
	require.True(t, errors.As(err, &askErr))
	assert.Equal(t, Timeout, askErr.Kind)
}

func TestClient_AskNetworkError(t *testing.T) {
	server := testutils.CreateMockServer(t, nil)
	client := newTestClient(t, server)
	server.Close()

	_, err := client.Ask(context.Background(), "assistant_a", "Q1")
	var askErr *AskError
	require.True(t, errors.As(err, &askErr))
	assert.Equal(t, NetworkError, askErr.Kind)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(NewAskError(Timeout, nil, "slow")))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(NewAskError(NetworkError, context.DeadlineExceeded, "refused")))
	assert.False(t, IsTimeout(errors.New("boom")))
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "timeout", Timeout.String())
	assert.Equal(t, "network error", NetworkError.String())
	assert.Equal(t, "api error", APIError.String())
	assert.Equal(t, "unknown", ErrorKind(42).String())
}

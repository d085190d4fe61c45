// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package assistants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/version"
	"github.com/sethvargo/go-retry"
)

const (
	apiVersion      = "2023-12-06"
	maxResponseSize = 16 << 20
	maxErrorPreview = 512
)

var errNotCompleted = errors.New("answer not completed yet")

// Client talks to the chat-in-space assistant API. A question is sent as a
// new message to the assistant, then the latest message of the created chat
// is polled until the API marks it as completed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cfg        config.AssistantAPIConfig
	logger     logging.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the assistant API described by cfg.
func NewClient(cfg config.AssistantAPIConfig, logger logging.Logger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cfg:        cfg,
		logger:     logger.WithContext("[assistant-api] "),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createMessageRequest struct {
	AssistantID string   `json:"assistantId"`
	Text        string   `json:"text"`
	ToolChoices []string `json:"toolChoices,omitempty"`
}

type message struct {
	ID          string          `json:"id"`
	ChatID      string          `json:"chatId"`
	Text        *string         `json:"text"`
	Role        string          `json:"role"`
	DebugInfo   json.RawMessage `json:"debugInfo"`
	CompletedAt *string         `json:"completedAt"`
	References  []Reference     `json:"references"`
	Assessment  json.RawMessage `json:"assessment"`
}

// Ask sends the question to the assistant and waits for the completed answer.
// The context deadline bounds the whole exchange.
func (c *Client) Ask(ctx context.Context, assistantID string, question string) (Answer, error) {
	var created message
	if err := c.doJSON(ctx, http.MethodPost, "/space/message", createMessageRequest{
		AssistantID: assistantID,
		Text:        question,
		ToolChoices: c.cfg.ToolChoices,
	}, &created); err != nil {
		return Answer{}, err
	}
	if created.ChatID == "" {
		return Answer{}, NewAskError(APIError, nil, "message created without a chat id")
	}
	c.logger.Message(ctx, logging.LevelTrace, "%s: waiting for answer in chat %s", assistantID, created.ChatID)

	completed, err := c.waitForCompletion(ctx, created.ChatID)
	if err != nil {
		return Answer{}, err
	}

	var text string
	if completed.Text != nil {
		text = *completed.Text
	}
	return Answer{
		Text:      OptimizeText(text, completed.References),
		ChatID:    completed.ChatID,
		DebugInfo: ExtractDebugInfo(completed.DebugInfo, completed.Assessment, len(completed.References)),
	}, nil
}

func (c *Client) waitForCompletion(ctx context.Context, chatID string) (latest message, err error) {
	path := "/space/" + url.PathEscape(chatID) + "/messages/latest"
	backoff := retry.NewConstant(c.cfg.GetPollInterval())
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var msg message
		if err := c.doJSON(ctx, http.MethodGet, path, nil, &msg); err != nil {
			var askErr *AskError
			if errors.As(err, &askErr) && askErr.Kind == APIError && isTransientStatus(askErr.StatusCode) {
				c.logger.Error(ctx, logging.LevelDebug, err, "chat %s: transient error while polling", chatID)
				return retry.RetryableError(err)
			}
			return err
		}
		if msg.CompletedAt == nil || *msg.CompletedAt == "" {
			return retry.RetryableError(errNotCompleted)
		}
		latest = msg
		return nil
	})
	if err != nil {
		return latest, classifyError(ctx, err)
	}
	return latest, nil
}

func (c *Client) doJSON(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return NewAskError(APIError, err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return NewAskError(NetworkError, err, "failed to create request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyError(ctx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return classifyError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AskError{
			Kind:       APIError,
			Message:    fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, preview(payload)),
			StatusCode: resp.StatusCode,
		}
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return NewAskError(APIError, err, "malformed response from %s %s", method, path)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("x-app-id", c.cfg.AppID)
	req.Header.Set("x-user-id", c.cfg.UserID)
	req.Header.Set("x-company-id", c.cfg.CompanyID)
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("User-Agent", version.GetUserAgent())
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}

// classifyError maps transport failures to an AskError. Errors that are
// already classified are returned unchanged.
func classifyError(ctx context.Context, err error) error {
	var askErr *AskError
	if errors.As(err, &askErr) {
		return askErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewAskError(Timeout, err, "assistant did not answer in time")
	}
	return NewAskError(NetworkError, err, "%v", err)
}

func isTransientStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

func preview(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) > maxErrorPreview {
		return text[:maxErrorPreview] + "..."
	}
	return text
}

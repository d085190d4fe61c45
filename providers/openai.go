// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package providers

import (
	"context"
	"errors"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

// NewOpenAI creates a new OpenAI provider instance with the given configuration.
// A custom endpoint may point the client at any OpenAI-compatible API.
func NewOpenAI(cfg config.OpenAIClientConfig, opts ...option.RequestOption) *OpenAI {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // retries are driven by the golden retry policy
	}
	if config.IsNotBlank(cfg.Endpoint) {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.Endpoint))
	}
	return &OpenAI{
		client: openai.NewClient(append(clientOpts, opts...)...),
	}
}

// OpenAI implements the Provider interface for OpenAI generative models.
type OpenAI struct {
	client openai.Client
}

func (o OpenAI) Name() string {
	return config.OPENAI
}

func (o *OpenAI) Generate(ctx context.Context, logger logging.Logger, model string, question string) (result Result, err error) {
	request := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(question),
		},
		N: param.NewOpt(int64(1)), // generate only one candidate response
	}

	resp, err := timed(func() (*openai.ChatCompletion, error) {
		response, err := o.client.Chat.Completions.New(ctx, request)
		if err != nil && o.isTransientResponse(err) {
			return response, WrapErrRetryable(err)
		}
		return response, err
	}, &result.duration)
	if err != nil {
		return result, WrapErrGenerateResponse(err)
	}

	recordUsage(&resp.Usage.PromptTokens, &resp.Usage.CompletionTokens, &result.usage)
	if len(resp.Choices) == 0 {
		return result, ErrEmptyResponse
	}
	logger.Message(ctx, logging.LevelTrace, "finish reason: %s", resp.Choices[0].FinishReason)
	return result, finalizeText(&result, resp.Choices[0].Message.Content)
}

func (o *OpenAI) isTransientResponse(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return isTransientStatus(apiErr.StatusCode)
	}
	return false
}

func (o *OpenAI) Close(ctx context.Context) error {
	return nil
}

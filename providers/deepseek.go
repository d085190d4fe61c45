// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package providers

import (
	"context"
	"fmt"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	deepseek "github.com/cohesion-org/deepseek-go"
)

// NewDeepseek creates a new Deepseek provider instance with the given configuration.
func NewDeepseek(cfg config.DeepseekClientConfig) (*Deepseek, error) {
	opts := make([]deepseek.Option, 0)
	if cfg.RequestTimeout != nil {
		opts = append(opts, deepseek.WithTimeout(*cfg.RequestTimeout))
	}
	client, err := deepseek.NewClientWithOptions(cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}
	return &Deepseek{
		client: client,
	}, nil
}

// Deepseek implements the Provider interface for Deepseek generative models.
type Deepseek struct {
	client *deepseek.Client
}

func (o Deepseek) Name() string {
	return config.DEEPSEEK
}

func (o *Deepseek) Generate(ctx context.Context, logger logging.Logger, model string, question string) (result Result, err error) {
	request := &deepseek.ChatCompletionRequest{
		Model: model,
		Messages: []deepseek.ChatCompletionMessage{
			{Role: deepseek.ChatMessageRoleUser, Content: question},
		},
	}

	resp, err := timed(func() (*deepseek.ChatCompletionResponse, error) {
		return o.client.CreateChatCompletion(ctx, request)
	}, &result.duration)
	if err != nil {
		return result, WrapErrGenerateResponse(err)
	} else if resp == nil || len(resp.Choices) == 0 {
		return result, ErrEmptyResponse
	}

	recordUsage(&resp.Usage.PromptTokens, &resp.Usage.CompletionTokens, &result.usage)
	logger.Message(ctx, logging.LevelTrace, "finish reason: %s", resp.Choices[0].FinishReason)
	return result, finalizeText(&result, resp.Choices[0].Message.Content)
}

func (o *Deepseek) Close(ctx context.Context) error {
	return nil
}

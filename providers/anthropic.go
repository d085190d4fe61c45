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
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 2048

// NewAnthropic creates a new Anthropic provider instance with the given configuration.
func NewAnthropic(cfg config.AnthropicClientConfig, opts ...anthropicoption.RequestOption) *Anthropic {
	clientOpts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.RequestTimeout != nil {
		clientOpts = append(clientOpts, anthropicoption.WithRequestTimeout(*cfg.RequestTimeout))
	}
	maxTokens := int64(defaultMaxTokens)
	if cfg.MaxTokens != nil {
		maxTokens = *cfg.MaxTokens
	}
	return &Anthropic{
		client:    anthropic.NewClient(append(clientOpts, opts...)...),
		maxTokens: maxTokens,
	}
}

// Anthropic implements the Provider interface for Anthropic generative models.
type Anthropic struct {
	client    anthropic.Client
	maxTokens int64
}

func (o Anthropic) Name() string {
	return config.ANTHROPIC
}

func (o *Anthropic) Generate(ctx context.Context, logger logging.Logger, model string, question string) (result Result, err error) {
	request := anthropic.MessageNewParams{
		MaxTokens: o.maxTokens,
		Model:     anthropic.Model(model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	}

	resp, err := timed(func() (*anthropic.Message, error) {
		response, err := o.client.Messages.New(ctx, request)
		if err != nil && o.isTransientResponse(err) {
			return response, WrapErrRetryable(err)
		}
		return response, err
	}, &result.duration)
	if err != nil {
		return result, WrapErrGenerateResponse(err)
	} else if resp == nil {
		return result, ErrEmptyResponse
	}

	recordUsage(&resp.Usage.InputTokens, &resp.Usage.OutputTokens, &result.usage)
	logger.Message(ctx, logging.LevelTrace, "stop reason: %s", resp.StopReason)

	var parts []string
	for _, block := range resp.Content {
		switch block := block.AsAny().(type) { //nolint:gocritic
		case anthropic.TextBlock:
			parts = append(parts, block.Text)
		}
	}
	return result, finalizeText(&result, parts...)
}

func (o *Anthropic) isTransientResponse(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return isTransientStatus(apiErr.StatusCode)
	}
	return false
}

func (o *Anthropic) Close(ctx context.Context) error {
	return nil
}

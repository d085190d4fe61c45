// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"google.golang.org/genai"
)

// NewGoogleAI creates a new GoogleAI provider instance with the given configuration.
// It returns an error if client initialization fails.
func NewGoogleAI(ctx context.Context, cfg config.GoogleAIClientConfig) (*GoogleAI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}
	return &GoogleAI{
		client: client,
	}, nil
}

// GoogleAI implements the Provider interface for Google AI generative models.
type GoogleAI struct {
	client *genai.Client
}

func (o GoogleAI) Name() string {
	return config.GOOGLE
}

func (o *GoogleAI) Generate(ctx context.Context, logger logging.Logger, model string, question string) (result Result, err error) {
	generateConfig := &genai.GenerateContentConfig{
		CandidateCount: 1,
	}

	resp, err := timed(func() (*genai.GenerateContentResponse, error) {
		response, err := o.client.Models.GenerateContent(ctx, model, genai.Text(question), generateConfig)
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

	if resp.UsageMetadata != nil {
		recordUsage(&resp.UsageMetadata.PromptTokenCount, &resp.UsageMetadata.CandidatesTokenCount, &result.usage)
	}
	return result, finalizeText(&result, resp.Text())
}

func (o *GoogleAI) isTransientResponse(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isTransientStatus(apiErr.Code)
	}
	return false
}

func (o *GoogleAI) Close(ctx context.Context) error {
	return nil
}

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
)

// NewProvider creates a new golden answer provider based on the given configuration.
// It returns an error if the provider name is unknown or initialization fails.
func NewProvider(ctx context.Context, cfg config.GoldenConfig) (Provider, error) {
	switch cfg.Provider {
	case config.OPENAI:
		if c, ok := cfg.ClientConfig.(config.OpenAIClientConfig); ok {
			return NewOpenAI(c), nil
		}
	case config.GOOGLE:
		if c, ok := cfg.ClientConfig.(config.GoogleAIClientConfig); ok {
			return NewGoogleAI(ctx, c)
		}
	case config.ANTHROPIC:
		if c, ok := cfg.ClientConfig.(config.AnthropicClientConfig); ok {
			return NewAnthropic(c), nil
		}
	case config.DEEPSEEK:
		if c, ok := cfg.ClientConfig.(config.DeepseekClientConfig); ok {
			return NewDeepseek(c)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProviderName, cfg.Provider)
	}
	return nil, fmt.Errorf("%w: client-config %T does not match provider %s", ErrCreateClient, cfg.ClientConfig, cfg.Provider)
}

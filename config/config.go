// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package config contains the data models representing the structure of the
// application configuration and experiment definition files. It handles loading
// and validation of application settings, the assistant API connection,
// golden answer generation and result storage from YAML files.
package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// OPENAI identifies the OpenAI golden answer provider.
	OPENAI string = "openai"
	// GOOGLE identifies the Google AI golden answer provider.
	GOOGLE string = "google"
	// ANTHROPIC identifies the Anthropic golden answer provider.
	ANTHROPIC string = "anthropic"
	// DEEPSEEK identifies the DeepSeek golden answer provider.
	DEEPSEEK string = "deepseek"
)

// DefaultPollInterval is used when the assistant API poll interval is not configured.
const DefaultPollInterval = time.Second

// ErrInvalidConfigProperty indicates invalid configuration.
var ErrInvalidConfigProperty = errors.New("invalid configuration property")

// Config represents the top-level configuration structure.
type Config struct {
	// Config contains application-wide settings.
	Config AppConfig `yaml:"config" validate:"required"`
}

// AppConfig defines application-wide settings.
type AppConfig struct {
	// LogFile specifies path to the log file.
	LogFile string `yaml:"log-file" validate:"omitempty,filepath"`

	// OutputDir specifies directory where reports will be saved.
	OutputDir string `yaml:"output-dir" validate:"required"`

	// OutputBaseName specifies base filename for report files.
	OutputBaseName string `yaml:"output-basename" validate:"omitempty,filepath"`

	// ExperimentSource specifies path to the experiment definition file.
	ExperimentSource string `yaml:"experiment-source" validate:"required,filepath"`

	// AssistantAPI holds the connection settings of the assistant API under test.
	AssistantAPI AssistantAPIConfig `yaml:"assistant-api" validate:"required"`

	// Golden configures the golden answer generator.
	// If nil, golden answers are not produced even when an experiment names a golden model.
	Golden *GoldenConfig `yaml:"golden" validate:"omitempty"`

	// Storage configures where individual results are persisted.
	Storage StorageConfig `yaml:"storage" validate:"omitempty"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics" validate:"omitempty"`
}

// AssistantAPIConfig defines how to reach the assistant API.
type AssistantAPIConfig struct {
	// BaseURL is the public chat API root, e.g. https://api.example.app/public/chat.
	BaseURL string `yaml:"base-url" validate:"required,url"`

	// APIKey authenticates requests. Values of the form ${NAME} are read from the environment.
	APIKey string `yaml:"api-key" validate:"required"`

	// AppID identifies the calling application.
	AppID string `yaml:"app-id" validate:"required"`

	// UserID identifies the user on whose behalf questions are asked.
	UserID string `yaml:"user-id" validate:"required"`

	// CompanyID identifies the tenant of the user.
	CompanyID string `yaml:"company-id" validate:"required"`

	// PollInterval is the delay between checks for a completed answer.
	PollInterval time.Duration `yaml:"poll-interval" validate:"omitempty,gt=0"`

	// ToolChoices lists tools the assistant is asked to use, e.g. WebSearch.
	ToolChoices []string `yaml:"tool-choices" validate:"omitempty,dive,required"`

	// MaxRequestsPerMinute limits the number of questions sent per minute.
	// Value of 0 means no limit.
	MaxRequestsPerMinute int `yaml:"max-requests-per-minute" validate:"omitempty,min=0"`
}

// GetPollInterval returns the configured poll interval or DefaultPollInterval.
func (c AssistantAPIConfig) GetPollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

// GoldenConfig defines the provider used to generate golden answers.
type GoldenConfig struct {
	// Provider names the golden answer provider.
	Provider string `yaml:"provider" validate:"required,oneof=openai google anthropic deepseek"`

	// ClientConfig holds provider-specific client settings.
	ClientConfig ClientConfig `yaml:"client-config" validate:"required"`

	// DefaultModel is used when an experiment enables golden answers without naming a model.
	DefaultModel string `yaml:"default-model" validate:"omitempty"`

	// MaxRequestsPerMinute limits the number of generation requests per minute.
	// Value of 0 means no limit.
	MaxRequestsPerMinute int `yaml:"max-requests-per-minute" validate:"omitempty,min=0"`

	// RetryPolicy specifies retry behavior on transient generation errors.
	RetryPolicy RetryPolicy `yaml:"retry-policy" validate:"omitempty"`
}

// ClientConfig is a marker interface for provider-specific configurations.
type ClientConfig interface{}

// OpenAIClientConfig represents OpenAI provider settings.
type OpenAIClientConfig struct {
	// APIKey is the API key for the OpenAI provider.
	APIKey string `yaml:"api-key" validate:"required"`
	// Endpoint optionally points the client at an OpenAI-compatible API.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// GoogleAIClientConfig represents Google AI provider settings.
type GoogleAIClientConfig struct {
	// APIKey is the API key for the Google AI generative models provider.
	APIKey string `yaml:"api-key" validate:"required"`
}

// AnthropicClientConfig represents Anthropic provider settings.
type AnthropicClientConfig struct {
	// APIKey is the API key for the Anthropic generative models provider.
	APIKey string `yaml:"api-key" validate:"required"`
	// RequestTimeout specifies the timeout for API requests.
	RequestTimeout *time.Duration `yaml:"request-timeout" validate:"omitempty"`
	// MaxTokens bounds the length of generated answers.
	MaxTokens *int64 `yaml:"max-tokens" validate:"omitempty,gt=0"`
}

// DeepseekClientConfig represents DeepSeek provider settings.
type DeepseekClientConfig struct {
	// APIKey is the API key for the DeepSeek generative models provider.
	APIKey string `yaml:"api-key" validate:"required"`
	// RequestTimeout specifies the timeout for API requests.
	RequestTimeout *time.Duration `yaml:"request-timeout" validate:"omitempty"`
}

// RetryPolicy defines retry behavior on transient errors.
type RetryPolicy struct {
	// MaxRetryAttempts specifies the maximum number of retry attempts.
	// Value of 0 means no retry attempts will be made.
	MaxRetryAttempts uint `yaml:"max-retry-attempts" validate:"omitempty,min=0"`

	// InitialDelaySeconds specifies the initial delay in seconds before the first retry attempt.
	InitialDelaySeconds int `yaml:"initial-delay-seconds" validate:"omitempty,gt=0"`
}

// StorageConfig defines where experiment results are persisted.
// Both stores are optional and may be combined.
type StorageConfig struct {
	// ResultsDir is the root of the per-experiment JSON directory layout.
	ResultsDir string `yaml:"results-dir" validate:"omitempty"`

	// Database is the path of the SQLite database file.
	Database string `yaml:"database" validate:"omitempty,filepath"`
}

// MetricsConfig defines the Prometheus endpoint settings.
type MetricsConfig struct {
	// ListenAddress is the host:port to serve /metrics on. Empty disables the endpoint.
	ListenAddress string `yaml:"listen-address" validate:"omitempty,hostname_port"`
}

// UnmarshalYAML implements custom YAML unmarshaling for GoldenConfig.
// It decodes the client configuration based on the provider name.
func (gc *GoldenConfig) UnmarshalYAML(value *yaml.Node) error {
	var temp struct {
		Provider             string      `yaml:"provider"`
		ClientConfig         yaml.Node   `yaml:"client-config"`
		DefaultModel         string      `yaml:"default-model"`
		MaxRequestsPerMinute int         `yaml:"max-requests-per-minute"`
		RetryPolicy          RetryPolicy `yaml:"retry-policy"`
	}

	if err := value.Decode(&temp); err != nil {
		return err
	}

	gc.Provider = temp.Provider
	gc.DefaultModel = temp.DefaultModel
	gc.MaxRequestsPerMinute = temp.MaxRequestsPerMinute
	gc.RetryPolicy = temp.RetryPolicy

	var cfg ClientConfig
	switch temp.Provider {
	case OPENAI:
		cfg = &OpenAIClientConfig{}
	case GOOGLE:
		cfg = &GoogleAIClientConfig{}
	case ANTHROPIC:
		cfg = &AnthropicClientConfig{}
	case DEEPSEEK:
		cfg = &DeepseekClientConfig{}
	default:
		return fmt.Errorf("%w: unknown client-config for provider: %s", ErrInvalidConfigProperty, temp.Provider)
	}
	if err := temp.ClientConfig.Decode(cfg); err != nil {
		return err
	}

	switch c := cfg.(type) {
	case *OpenAIClientConfig:
		gc.ClientConfig = *c
	case *GoogleAIClientConfig:
		gc.ClientConfig = *c
	case *AnthropicClientConfig:
		gc.ClientConfig = *c
	case *DeepseekClientConfig:
		gc.ClientConfig = *c
	}
	return nil
}

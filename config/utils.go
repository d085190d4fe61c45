// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var envReference = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// LoadConfigFromFile reads and validates application configuration from the specified file path.
// Secret values given as ${NAME} references are resolved from the environment before validation.
// Returns error if the file cannot be read or contains invalid configuration.
func LoadConfigFromFile(ctx context.Context, path string) (*Config, error) {
	fileContents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := &Config{}
	if err := yamlUnmarshalStrict(fileContents, cfg); err != nil {
		return nil, fmt.Errorf("malformed configuration file: %w", err)
	}

	cfg.Config.resolveSecrets()

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration definition: %w", err)
	}

	return cfg, nil
}

// LoadExperimentFromFile reads and validates an experiment definition from the specified file path.
// Returns a *ConfigurationError if the definition is well-formed but describes an invalid experiment.
func LoadExperimentFromFile(ctx context.Context, path string) (*Experiment, error) {
	fileContents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment file: %w", err)
	}

	exp := &Experiment{}
	if err := yamlUnmarshalStrict(fileContents, exp); err != nil {
		return nil, fmt.Errorf("malformed experiment file: %w", err)
	}

	if err := validate.Struct(exp); err != nil {
		return exp, fmt.Errorf("invalid experiment definition: %w", err)
	}

	if err := exp.Experiment.Validate(); err != nil {
		return exp, err
	}

	return exp, nil
}

func (ac *AppConfig) resolveSecrets() {
	ac.AssistantAPI.APIKey = ResolveSecret(ac.AssistantAPI.APIKey)
	if ac.Golden == nil {
		return
	}
	switch c := ac.Golden.ClientConfig.(type) {
	case OpenAIClientConfig:
		c.APIKey = ResolveSecret(c.APIKey)
		ac.Golden.ClientConfig = c
	case GoogleAIClientConfig:
		c.APIKey = ResolveSecret(c.APIKey)
		ac.Golden.ClientConfig = c
	case AnthropicClientConfig:
		c.APIKey = ResolveSecret(c.APIKey)
		ac.Golden.ClientConfig = c
	case DeepseekClientConfig:
		c.APIKey = ResolveSecret(c.APIKey)
		ac.Golden.ClientConfig = c
	}
}

// ResolveSecret returns the value of the named environment variable if value
// is a ${NAME} reference, otherwise value unchanged.
func ResolveSecret(value string) string {
	if m := envReference.FindStringSubmatch(strings.TrimSpace(value)); m != nil {
		return os.Getenv(m[1])
	}
	return value
}

// yamlUnmarshalStrict is a helper function for strict YAML unmarshaling that fails on unknown fields.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	// NOTE: currently does not propagate to custom unmarshalers:
	// https://github.com/go-yaml/yaml/issues/460
	decoder := yaml.NewDecoder(bytes.NewReader(in))
	decoder.KnownFields(true) // fail on unknown fields
	return decoder.Decode(out)
}

// IsNotBlank returns true if the given string contains non-whitespace characters.
func IsNotBlank(value string) bool {
	return len(strings.TrimSpace(value)) > 0
}

// ResolveFileNamePattern takes a filename pattern containing time placeholders and returns
// a string with the placeholders replaced by values from the given time reference.
// Supported placeholders: {{.Year}}, {{.Month}}, {{.Day}}, {{.Hour}}, {{.Minute}}, {{.Second}}.
// Returns the original pattern if it cannot be resolved.
func ResolveFileNamePattern(pattern string, timeRef time.Time) string {
	tmpl, err := template.New("filename").Parse(pattern)
	if err != nil {
		return pattern
	}
	resolved := strings.Builder{}
	if err := tmpl.Execute(&resolved, struct {
		Year   string
		Month  string
		Day    string
		Hour   string
		Minute string
		Second string
	}{
		Year:   strconv.Itoa(timeRef.Year()),
		Month:  fmt.Sprintf("%02d", int(timeRef.Month())),
		Day:    fmt.Sprintf("%02d", timeRef.Day()),
		Hour:   fmt.Sprintf("%02d", timeRef.Hour()),
		Minute: fmt.Sprintf("%02d", timeRef.Minute()),
		Second: fmt.Sprintf("%02d", timeRef.Second()),
	}); err != nil {
		return pattern
	}
	return resolved.String()
}

// MakeAbs converts relative file path to absolute using the given base directory.
// Returns original path if it's already absolute or blank.
func MakeAbs(baseDirPath string, filePath string) string {
	if IsNotBlank(filePath) {
		if filepath.IsAbs(filePath) {
			return filePath
		}
		return filepath.Join(baseDirPath, filePath)
	}
	return filePath
}

// CleanIfNotBlank cleans the given file path if it's not blank.
// Returns original path if it's blank.
func CleanIfNotBlank(filePath string) string {
	if IsNotBlank(filePath) {
		return filepath.Clean(filePath)
	}
	return filePath
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvAPIKey is consulted when a config file leaves api_key empty.
const EnvAPIKey = "POLLINATIONS_API_KEY" //nolint:gosec // environment variable name, not a secret

// File is the on-disk YAML configuration. Pointer fields distinguish "unset"
// from an explicit zero so the package defaults survive partial files.
type File struct {
	BaseURL          string          `yaml:"base_url"`
	Referrer         string          `yaml:"referrer"` // Sent as the Referer header when set.
	APIKey           string          `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model            string          `yaml:"model"`
	SystemMessage    *string         `yaml:"system_message"`
	Temperature      *float64        `yaml:"temperature"`
	TopP             *float64        `yaml:"top_p"`
	PresencePenalty  *float64        `yaml:"presence_penalty"`
	FrequencyPenalty *float64        `yaml:"frequency_penalty"`
	JSON             bool            `yaml:"json"`
	MaxTokens        *int            `yaml:"max_tokens"`
	Seed             *int            `yaml:"seed"`
	Private          bool            `yaml:"private"`
	Timeout          string          `yaml:"timeout"` // Duration string (e.g. "30s").
	Retry            RetryConfig     `yaml:"retry"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
}

// RetryConfig controls the retrying request path.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"` // Total attempts (0 = default).
	Delays      []string `yaml:"delays"`       // Wait before each retry as duration strings (e.g. "5s").
}

// RateLimitConfig controls client-side request pacing.
type RateLimitConfig struct {
	MinInterval string `yaml:"min_interval"` // Minimum spacing between requests (e.g. "5s"); empty disables pacing.
}

// LoadFile reads a YAML file and returns a File.
// Environment variables referenced as ${VAR} or $VAR are expanded before
// parsing, so API keys can stay in the environment (e.g. a .env file).
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return File{}, fmt.Errorf("config: load file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var f File
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return File{}, fmt.Errorf("config: parse file: %w", err)
	}

	return f, nil
}

// Config converts the file into a validated Config. Fields the file leaves
// unset keep their defaults; an empty api_key falls back to EnvAPIKey.
func (f File) Config() (*Config, error) {
	var opts []Option

	key := f.APIKey
	if key == "" {
		key = os.Getenv(EnvAPIKey)
	}
	opts = append(opts, WithAPIKey(key), WithJSON(f.JSON), WithPrivate(f.Private))

	if f.Model != "" {
		opts = append(opts, WithModel(f.Model))
	}
	if f.SystemMessage != nil {
		opts = append(opts, WithSystemMessage(*f.SystemMessage))
	}
	if f.Temperature != nil {
		opts = append(opts, WithTemperature(*f.Temperature))
	}
	if f.TopP != nil {
		opts = append(opts, WithTopP(*f.TopP))
	}
	if f.PresencePenalty != nil {
		opts = append(opts, WithPresencePenalty(*f.PresencePenalty))
	}
	if f.FrequencyPenalty != nil {
		opts = append(opts, WithFrequencyPenalty(*f.FrequencyPenalty))
	}
	if f.MaxTokens != nil {
		opts = append(opts, WithMaxTokens(*f.MaxTokens))
	}
	if f.Seed != nil {
		opts = append(opts, WithSeed(*f.Seed))
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, invalid("timeout", f.Timeout, err.Error())
		}
		opts = append(opts, WithTimeout(d))
	}

	return New(opts...)
}

// RetryDelays parses Retry.Delays. A nil result means "use the default
// schedule".
func (f File) RetryDelays() ([]time.Duration, error) {
	if len(f.Retry.Delays) == 0 {
		return nil, nil
	}

	delays := make([]time.Duration, len(f.Retry.Delays))
	for i, s := range f.Retry.Delays {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, invalid("retry.delays", s, err.Error())
		}
		if d < 0 {
			return nil, invalid("retry.delays", s, "must not be negative")
		}
		delays[i] = d
	}

	return delays, nil
}

// MinInterval parses RateLimit.MinInterval. Zero means no pacing.
func (f File) MinInterval() (time.Duration, error) {
	if f.RateLimit.MinInterval == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(f.RateLimit.MinInterval)
	if err != nil {
		return 0, invalid("rate_limit.min_interval", f.RateLimit.MinInterval, err.Error())
	}
	if d < 0 {
		return 0, invalid("rate_limit.min_interval", f.RateLimit.MinInterval, "must not be negative")
	}

	return d, nil
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"fmt"
	"strings"
	"time"
)

// Provider selects which text-generation backend the process talks to.
// It is a process-wide configuration value set once, not per call.
type Provider string

const (
	// ProviderLocal is a self-hosted endpoint speaking the Ollama API.
	ProviderLocal Provider = "local"
	// ProviderOpenAI is the hosted OpenAI API, authenticated by key.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is the hosted Gemini API, reached through its
	// OpenAI-compatible endpoint, authenticated by key.
	ProviderGemini Provider = "gemini"
	// ProviderCustom is a user-declared endpoint speaking a generic
	// role/content chat-completion shape.
	ProviderCustom Provider = "custom"
)

// geminiCompatBaseURL is Gemini's OpenAI-compatible surface.
const geminiCompatBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// Config holds configuration for the oracle backend.
type Config struct {
	// Provider selects the backend.
	Provider Provider

	// Host is the base URL for local and custom providers.
	// Example: "http://localhost:11434" for a local Ollama server.
	Host string

	// APIKey authenticates hosted and custom providers.
	APIKey string

	// Model is the model identifier.
	// Example: "qwen2.5:3b", "gpt-4o-mini", "gemini-2.5-flash"
	Model string

	// Timeout bounds a single backend call. Default: 20s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first failed attempt
	// on a transient error. Default: 3.
	MaxRetries int

	// RetryBaseDelay is the backoff base; the delay doubles each attempt.
	// Default: 1s.
	RetryBaseDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the backend provider.
func WithProvider(p Provider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithHost sets the backend base URL (local and custom providers).
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the backend API key (hosted and custom providers).
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRetryPolicy sets the transient-failure retry policy.
func WithRetryPolicy(maxRetries int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryBaseDelay = baseDelay
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// self-hosted backend.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderLocal,
		Host:           "http://localhost:11434",
		Model:          "qwen2.5:3b",
		Timeout:        20 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 1 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// BaseURL returns the chat-completion base URL for the active provider.
// Custom endpoints get the /v1 suffix OpenAI-compatible servers expect.
func (c *Config) BaseURL() string {
	switch c.Provider {
	case ProviderGemini:
		return geminiCompatBaseURL
	case ProviderCustom:
		host := strings.TrimSuffix(c.Host, "/")
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
		return host
	default:
		return strings.TrimSuffix(c.Host, "/")
	}
}

// Validate checks that the configuration is valid and complete.
// An unrecognized provider is a fatal configuration error, surfaced
// immediately without retry.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal, ProviderCustom:
		if c.Host == "" {
			return fmt.Errorf("ai config: Host is required for provider %q", c.Provider)
		}
	case ProviderOpenAI, ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("ai config: APIKey is required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("ai config: Model is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("ai config: MaxRetries cannot be negative")
	}
	return nil
}

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

// Package llm implements ai.Oracle on top of OpenAI-compatible and Ollama
// chat-completion backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/coursefinder/ai"
)

// Client implements ai.Oracle. It is safe for concurrent use; the underlying
// chat client carries no per-call state.
type Client struct {
	config *ai.Config
	model  llms.Model
	logger *slog.Logger
}

// NewClient creates an oracle client for the configured provider.
// The config is validated before use.
func NewClient(config *ai.Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	model, err := newModel(config)
	if err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		model:  model,
		logger: slog.Default().With("component", "llm-client", "provider", string(config.Provider)),
	}, nil
}

func newModel(config *ai.Config) (llms.Model, error) {
	switch config.Provider {
	case ai.ProviderLocal:
		return ollama.New(
			ollama.WithServerURL(config.Host),
			ollama.WithModel(config.Model),
		)
	case ai.ProviderOpenAI, ai.ProviderGemini, ai.ProviderCustom:
		// Use "none" as token for endpoints that don't require authentication
		token := config.APIKey
		if token == "" {
			token = "none"
		}
		return openai.New(
			openai.WithBaseURL(config.BaseURL()),
			openai.WithToken(token),
			openai.WithModel(config.Model),
		)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, config.Provider)
	}
}

// Invoke sends a single-turn prompt and returns the raw response text.
// Transient failures are retried with exponential backoff per the config's
// retry policy; exhaustion surfaces wrapped in ai.ErrTransientBackend.
func (c *Client) Invoke(ctx context.Context, prompt string, temperature float64, reasoningBudget int) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	// Negative budgets leave the backend's own limit in place; zero relies on
	// the prompt to suppress deliberation, since the chat-completion surface
	// has no portable thinking switch.
	if reasoningBudget > 0 {
		opts = append(opts, llms.WithMaxTokens(reasoningBudget))
	}

	var text string
	operation := func() error {
		callCtx := ctx
		if c.config.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
			defer cancel()
		}

		response, err := c.model.GenerateContent(callCtx, content, opts...)
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 {
			return ai.ErrEmptyResponse
		}
		text = response.Choices[0].Content
		return nil
	}

	err := ai.RetryWithBackoff(ctx, operation, transientError, c.config.MaxRetries, c.config.RetryBaseDelay)
	if err != nil {
		if transientError(err) {
			c.logger.Error("backend unavailable after retries", "err", err)
			return "", fmt.Errorf("%w: %w", ai.ErrTransientBackend, err)
		}
		return "", err
	}

	return text, nil
}

// transientError classifies failures worth retrying: rate limits, temporary
// unavailability and transport-level errors. Parse failures and fatal API
// errors are not retried.
func transientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ai.ErrEmptyResponse) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "rate limit", "too many requests",
		"500", "502", "503", "504",
		"overloaded", "unavailable", "timeout",
		"connection refused", "connection reset", "eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

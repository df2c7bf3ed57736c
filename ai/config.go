// Copyright 2025 Fred Agent Contributors
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
	"errors"
	"strings"
	"time"
)

// Config holds configuration for embedding service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// APIToken authenticates against the embedding service.
	// "none" works for local services that don't require authentication.
	APIToken string

	// BatchSize is the maximum number of texts sent in one embedding call.
	// Default: 32
	BatchSize int

	// MaxRetries is the number of attempts for a failing embedding call
	// before the error is surfaced. Default: 3
	MaxRetries int

	// RetryBaseDelay is the delay before the first retry; it doubles on each
	// subsequent attempt. Default: 500ms
	RetryBaseDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIToken sets the API token.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithMaxRetries sets the retry limit for embedding calls.
func WithMaxRetries(retries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithRetryBaseDelay sets the initial retry backoff delay.
func WithRetryBaseDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryBaseDelay = delay
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "embeddinggemma",
		APIToken:       "none",
		BatchSize:      32,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.EmbeddingHost) == "" {
		return errors.New("embedding host required")
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return errors.New("embedding model required")
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be positive")
	}
	if c.MaxRetries < 1 {
		return errors.New("max retries must be positive")
	}
	return nil
}

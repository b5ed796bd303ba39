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
	"errors"
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// RequestsPerSecond caps the outbound embedding request rate.
	// Zero or negative disables rate limiting.
	// Default: 10
	RequestsPerSecond float64

	// RequestBurst is the rate limiter's burst size.
	// Default: 5
	RequestBurst int

	// BreakerMaxFailures is the number of consecutive failures that trip
	// the circuit breaker protecting the embedding service.
	// Default: 3
	BreakerMaxFailures uint32

	// BreakerCooldown is how long the circuit stays open before allowing
	// test requests through again.
	// Default: 30 seconds
	BreakerCooldown time.Duration
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

// WithRequestsPerSecond sets the outbound request rate cap.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithRequestBurst sets the rate limiter burst size.
func WithRequestBurst(burst int) ConfigOption {
	return func(c *Config) {
		c.RequestBurst = burst
	}
}

// WithBreakerMaxFailures sets the consecutive-failure trip threshold.
func WithBreakerMaxFailures(n uint32) ConfigOption {
	return func(c *Config) {
		c.BreakerMaxFailures = n
	}
}

// WithBreakerCooldown sets how long the circuit stays open after tripping.
func WithBreakerCooldown(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.BreakerCooldown = d
	}
}

// DefaultConfig returns a configuration with sensible local defaults,
// optionally adjusted by the given options.
func DefaultConfig(opts ...ConfigOption) *Config {
	c := &Config{
		EmbeddingHost:      "http://localhost:11434/v1",
		EmbeddingModel:     "embeddinggemma",
		RequestsPerSecond:  10,
		RequestBurst:       5,
		BreakerMaxFailures: 3,
		BreakerCooldown:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize cleans up configuration values in place.
func (c *Config) Normalize() {
	c.EmbeddingHost = strings.TrimRight(strings.TrimSpace(c.EmbeddingHost), "/")
	c.EmbeddingModel = strings.TrimSpace(c.EmbeddingModel)
	if c.RequestBurst <= 0 {
		c.RequestBurst = 5
	}
	if c.BreakerMaxFailures == 0 {
		c.BreakerMaxFailures = 3
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

// Validate normalizes the configuration and checks required fields.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	return nil
}

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

// Defaults for the OpenRouter-backed chat chain.
const (
	DefaultBaseURL      = "https://openrouter.ai/api/v1"
	DefaultPrimaryModel = "qwen/qwen3-next-80b-a3b-instruct:free"
	DefaultTimeout      = 45 * time.Second
	DefaultMaxRetries   = 1
	DefaultRetryDelay   = 500 * time.Millisecond
	DefaultTemperature  = 0.2
	DefaultReferer      = "http://localhost:8000"
	DefaultTitle        = "AcademicChatbot"

	// DefaultFallbackMessage is the degraded answer returned when every
	// candidate failed. The verb is replaced with the last error text.
	DefaultFallbackMessage = "Maaf, semua server AI sedang sibuk. (Error: %s)"
)

// DefaultBackupModels is the fixed backup sequence tried after the primary model.
// It intentionally matches the deployed list, duplicates included;
// Candidates() removes repeats.
var DefaultBackupModels = []string{
	"nvidia/nemotron-3-nano-30b-a3b:free",
	"arcee-ai/trinity-large-preview:free",
	"qwen/qwen3-next-80b-a3b-instruct:free",
	"arcee-ai/trinity-large-preview:free",
	"meta-llama/llama-3.3-70b-instruct:free",
}

// Config holds configuration for AI service providers.
type Config struct {
	// BaseURL is the OpenAI-compatible chat completion endpoint.
	// Example: "https://openrouter.ai/api/v1"
	BaseURL string

	// APIKey authenticates chat requests. Empty means an unauthenticated
	// local server.
	APIKey string

	// PrimaryModel is tried first on every invocation.
	PrimaryModel string

	// BackupModels are tried in order after the primary model fails.
	BackupModels []string

	// Timeout bounds a single request to one candidate.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts per candidate after the first.
	MaxRetries int

	// RetryDelay is the base delay between attempts on the same candidate.
	// It doubles on every retry.
	RetryDelay time.Duration

	// Temperature is the fixed sampling temperature.
	Temperature float64

	// Referer and Title are sent as the HTTP-Referer and X-Title headers.
	Referer string
	Title   string

	// RequestsPerSecond caps outbound chat attempts. Zero disables limiting.
	RequestsPerSecond float64

	// FallbackMessage formats the degraded answer; see DefaultFallbackMessage.
	FallbackMessage string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingToken authenticates embedding requests. Empty means none.
	EmbeddingToken string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBaseURL sets the chat completion endpoint.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithAPIKey sets the chat API credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithPrimaryModel sets the first candidate model.
func WithPrimaryModel(model string) ConfigOption {
	return func(c *Config) {
		c.PrimaryModel = model
	}
}

// WithBackupModels replaces the backup sequence.
func WithBackupModels(models ...string) ConfigOption {
	return func(c *Config) {
		c.BackupModels = append([]string(nil), models...)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxRetries sets the number of retries per candidate.
func WithMaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRetryDelay sets the base backoff between retries.
func WithRetryDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithHeaders sets the identifying HTTP-Referer and X-Title values.
func WithHeaders(referer, title string) ConfigOption {
	return func(c *Config) {
		c.Referer = referer
		c.Title = title
	}
}

// WithRequestsPerSecond caps outbound chat attempts.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

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

// WithEmbeddingToken sets the embedding API credential.
func WithEmbeddingToken(token string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingToken = token
	}
}

// DefaultConfig returns a Config pointing chat at OpenRouter and embeddings at a
// local OpenAI-compatible server.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		PrimaryModel:    DefaultPrimaryModel,
		BackupModels:    append([]string(nil), DefaultBackupModels...),
		Timeout:         DefaultTimeout,
		MaxRetries:      DefaultMaxRetries,
		RetryDelay:      DefaultRetryDelay,
		Temperature:     DefaultTemperature,
		Referer:         DefaultReferer,
		Title:           DefaultTitle,
		FallbackMessage: DefaultFallbackMessage,
		EmbeddingHost:   "http://localhost:11434/v1",
		EmbeddingModel:  "embeddinggemma",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithPrimaryModel("meta-llama/llama-3.3-70b-instruct:free"),
//	    WithMaxRetries(2),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required by most
// OpenAI-compatible APIs (OpenRouter, Ollama, vLLM, etc), and trims model names.
func (c *Config) Normalize() {
	c.BaseURL = normalizeHost(c.BaseURL)
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.PrimaryModel = strings.TrimSpace(c.PrimaryModel)
	if c.FallbackMessage == "" {
		c.FallbackMessage = DefaultFallbackMessage
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.BaseURL == "" {
		return errors.New("ai config: BaseURL is required")
	}
	if c.PrimaryModel == "" {
		return errors.New("ai config: PrimaryModel is required")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("ai config: MaxRetries cannot be negative")
	}
	if c.RetryDelay < 0 {
		return errors.New("ai config: RetryDelay cannot be negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	return nil
}

// Candidates returns the ordered fallback list: the primary model followed by
// the backups, blank entries dropped and repeats removed keeping first-seen order.
// Every candidate shares the configured timeout, retry count and temperature.
func (c *Config) Candidates() []Candidate {
	seen := make(map[string]bool)
	models := append([]string{c.PrimaryModel}, c.BackupModels...)
	out := make([]Candidate, 0, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, Candidate{
			Model:       m,
			Timeout:     c.Timeout,
			MaxRetries:  c.MaxRetries,
			Temperature: c.Temperature,
		})
	}
	return out
}

// ParseModelList splits a comma or newline separated model list.
func ParseModelList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

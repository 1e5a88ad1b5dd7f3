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

package openai

import (
	"log/slog"
	"net/http"

	"github.com/poiesic/kbase/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// It owns the embedder and builds one chat client per fallback candidate.
type Provider struct {
	config   *ai.Config
	embedder *Embedder
	client   *http.Client
	logger   *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		embedder: embedder,
		client:   &http.Client{Transport: newHeaderTransport(nil, config.Referer, config.Title)},
		logger:   slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns a chat client bound to the candidate's model and temperature.
// The candidate's timeout is enforced by the caller through the context.
func (p *Provider) Completer(candidate ai.Candidate) (ai.Completer, error) {
	llm, err := openai.New(
		openai.WithBaseURL(p.config.BaseURL),
		openai.WithToken(tokenOrNone(p.config.APIKey)),
		openai.WithModel(candidate.Model),
		openai.WithHTTPClient(p.client),
	)
	if err != nil {
		return nil, err
	}
	return &Completer{
		llm:         llm,
		model:       candidate.Model,
		temperature: candidate.Temperature,
		logger:      p.logger.With("model", candidate.Model),
	}, nil
}

func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	p.client.CloseIdleConnections()
	return nil
}

// tokenOrNone returns "none" for local OpenAI-compatible services that
// don't require authentication; langchaingo refuses an empty token.
func tokenOrNone(token string) string {
	if token == "" {
		return "none"
	}
	return token
}

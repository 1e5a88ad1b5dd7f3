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

package mock

import (
	"sync"

	"github.com/poiesic/kbase/ai"
)

// MockProvider is a test double for ai.AIProvider.
// It aggregates a mock embedder and one mock completer per model.
type MockProvider struct {
	embedder *MockEmbedder

	// FactoryErr, when set, is returned by Completer for the matching model.
	FactoryErr map[string]error

	mu         sync.Mutex
	completers map[string]*MockCompleter
	candidates []ai.Candidate
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockCompleter() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder())
}

// NewMockProviderWithServices creates a mock provider with a custom embedder.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, completers ...*MockCompleter) *MockProvider {
	p := &MockProvider{
		embedder:   embedder,
		FactoryErr: make(map[string]error),
		completers: make(map[string]*MockCompleter),
	}
	for _, c := range completers {
		p.completers[c.Model] = c
	}
	return p
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the mock completer registered for the candidate's model,
// creating a default one on first use.
func (p *MockProvider) Completer(candidate ai.Candidate) (ai.Completer, error) {
	p.mu.Lock()
	p.candidates = append(p.candidates, candidate)
	p.mu.Unlock()

	if err := p.FactoryErr[candidate.Model]; err != nil {
		return nil, err
	}
	return p.GetMockCompleter(candidate.Model), nil
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockCompleter returns the completer for model, creating it if needed.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockCompleter(model string) *MockCompleter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.completers[model]
	if !ok {
		c = NewMockCompleter(model)
		p.completers[model] = c
	}
	return c
}

// Requested returns every candidate passed to Completer, in call order.
func (p *MockProvider) Requested() []ai.Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.Candidate(nil), p.candidates...)
}

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

// Package ai provides abstractions for the AI services used by kbase.
//
// This package defines interfaces for text embeddings and single-prompt chat
// completions, plus the configuration of the ordered model fallback list. The
// domain and business logic depend on these abstractions rather than on a
// concrete provider.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Completer: Answers one prompt with one configured model
//   - AIProvider: Builds completers per fallback candidate and owns the embedder
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Configuration
//
// Config is built once, validated, and handed to consumers. Candidates()
// derives the immutable fallback list from it:
//
//	cfg := ai.NewConfig(ai.WithAPIKey(key))
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	for _, c := range cfg.Candidates() {
//	    fmt.Println(c.Model, c.Timeout, c.Attempts())
//	}
package ai

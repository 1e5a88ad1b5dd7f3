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


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// This package implements the ai.AIProvider interface using the langchaingo
// library. Chat completions are sent to OpenRouter (or any OpenAI-compatible
// router) with the HTTP-Referer and X-Title attribution headers, and one
// client is built per fallback candidate. Embeddings go to a separately
// configured host, usually a local Ollama or vLLM server.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithAPIKey(os.Getenv("OPENROUTER_API_KEY")),
//	    ai.WithEmbeddingHost("http://localhost:11434"), // /v1 added automatically
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "sample text")
//	completer, err := provider.Completer(config.Candidates()[0])
//	answer, err := completer.Complete(ctx, "Kapan jadwal kuliah semester 3?")
package openai

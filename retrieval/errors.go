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


package retrieval

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrConfigRequired is returned when a chain is built without configuration.
	ErrConfigRequired = errors.New("AI config required")

	// ErrCompleterFactoryRequired is returned when a chain is built without a client factory.
	ErrCompleterFactoryRequired = errors.New("completer factory required")

	// ErrNoCandidates is returned when the configuration yields no model to try.
	ErrNoCandidates = errors.New("no candidate models configured")

	// ErrStoreRequired is returned when an engine is built without a vector store.
	ErrStoreRequired = errors.New("vector store required")

	// ErrChainRequired is returned when an engine is built without a chain.
	ErrChainRequired = errors.New("fallback chain required")

	// ErrInvalidTopK is returned when the retrieval depth is not positive.
	ErrInvalidTopK = errors.New("topK must be greater than 0")
)

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


// Package retrieval answers questions against a tenant's knowledge base.
//
// InferDocType classifies a question into a coarse document-type hint used to
// bias the similarity query. FallbackChain invokes an ordered list of chat
// model candidates, each with a bounded number of attempts, and degrades to a
// fixed apology when every candidate fails. Engine ties the two together over
// a storage.VectorStore scoped to the asking tenant.
package retrieval

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


// Package storage provides the storage abstraction layer for kbase.
//
// This package defines the vector store and repository interfaces that
// decouple storage implementation from business logic, so BadgerDB and
// PostgreSQL/pgvector backends can be used interchangeably.
//
// # Tenant Isolation
//
// Every chunk carries a user_id metadata key naming its owning tenant. Code
// that acts on behalf of one tenant never talks to a VectorStore directly;
// it goes through a TenantStore obtained from Scope, which stamps user_id on
// every write and adds it to every query and delete filter:
//
//	store, err := badger.NewMemoryChunkStore(embedder)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	scoped := storage.Scope(store, ownerID)
//	err = scoped.AddTexts(ctx, texts, metadatas)
//	hits, err := scoped.SimilaritySearch(ctx, "jadwal kuliah", 4, nil)
//
// # Thread Safety
//
// All implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage

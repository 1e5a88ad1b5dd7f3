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

package badger

import "github.com/poiesic/kbase/ai"

// Stores bundles the three BadgerDB-backed stores sharing one backend.
type Stores struct {
	Chunks    *ChunkStore
	Documents *DocumentRepository
	Chats     *ChatRepository
	Backend   *Backend
}

// Close releases the stores and then the backend.
func (s *Stores) Close() error {
	s.Chunks.Close()
	s.Documents.Close()
	s.Chats.Close()
	return s.Backend.Close()
}

// OpenStores opens (or creates) a database at path and builds every store on it.
// An empty path opens an in-memory database.
func OpenStores(path string, embedder ai.Embedder, opts ...ChunkStoreOption) (*Stores, error) {
	backend, err := OpenBackend(path, path == "")
	if err != nil {
		return nil, err
	}

	chunks, err := NewChunkStore(backend, embedder, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	docs, err := NewDocumentRepository(backend)
	if err != nil {
		chunks.Close()
		backend.Close()
		return nil, err
	}

	chats, err := NewChatRepository(backend)
	if err != nil {
		docs.Close()
		chunks.Close()
		backend.Close()
		return nil, err
	}

	return &Stores{Chunks: chunks, Documents: docs, Chats: chats, Backend: backend}, nil
}

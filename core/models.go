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

package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID in decimal, the form used in chunk metadata.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a decimal ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// Chunk metadata keys.
const (
	MetaUserID     = "user_id"
	MetaSource     = "source"
	MetaDocID      = "doc_id"
	MetaDocType    = "doc_type"
	MetaGeneration = "generation"
)

// Metadata is the flat key/value provenance attached to every chunk.
// Filters use the same type: a chunk matches when every filter key is present
// with an equal value.
type Metadata map[string]string

// Matches reports whether m carries every key/value pair in filter.
func (m Metadata) Matches(filter Metadata) bool {
	for k, v := range filter {
		if got, ok := m[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// Clone returns a copy of m. A nil map clones to an empty one.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document is an uploaded source file owned by exactly one tenant.
type Document struct {
	Id         ID
	OwnerId    ID
	Title      string
	FilePath   string    // Persisted location of the uploaded bytes
	Format     string    // Parse format tag, the lowercased file extension
	Size       int64     // File size in bytes
	Embedded   bool      // Set once every ingestion stage has succeeded
	Generation int       // Chunk generation currently live in the vector store
	UploadedAt time.Time
	UpdatedAt  time.Time
}

// Chunk is a bounded text segment headed for the vector store.
// Chunks are never persisted on their own outside the store.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// StoredChunk is a chunk as held by a vector store backend.
type StoredChunk struct {
	Id       ID
	Text     string
	Metadata Metadata
	Vector   []float32
}

// ScoredChunk is a similarity query hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// ChatExchange is one answered question, owned by one tenant.
type ChatExchange struct {
	Id        ID
	OwnerId   ID
	Question  string
	Answer    string
	Sources   []string
	Timestamp time.Time
}

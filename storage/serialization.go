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

package storage

import (
	"fmt"

	"github.com/poiesic/kbase/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, core.DocumentMUS.Size(*doc))
	core.DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// MarshalChatExchange serializes a ChatExchange to bytes.
func MarshalChatExchange(exchange *core.ChatExchange) []byte {
	buf := make([]byte, core.ChatExchangeMUS.Size(*exchange))
	core.ChatExchangeMUS.Marshal(*exchange, buf)
	return buf
}

// UnmarshalChatExchange deserializes a ChatExchange from bytes.
func UnmarshalChatExchange(data []byte) (*core.ChatExchange, error) {
	exchange, _, err := core.ChatExchangeMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &exchange, nil
}

// MarshalStoredChunk serializes a StoredChunk to bytes.
func MarshalStoredChunk(chunk *core.StoredChunk) []byte {
	buf := make([]byte, core.StoredChunkMUS.Size(*chunk))
	core.StoredChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalStoredChunk deserializes a StoredChunk from bytes.
func UnmarshalStoredChunk(data []byte) (*core.StoredChunk, error) {
	chunk, _, err := core.StoredChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &chunk, nil
}

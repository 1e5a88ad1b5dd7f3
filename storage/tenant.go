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
	"context"
	"fmt"

	"github.com/poiesic/kbase/core"
)

// TenantStore is a capability view of a VectorStore limited to one owner.
// Every write is stamped with the owner's user_id and every query and delete
// filter is narrowed to it.
type TenantStore struct {
	store   VectorStore
	ownerID core.ID
	userID  string
}

// Scope returns a view of store that can only see and modify chunks owned by
// ownerID.
func Scope(store VectorStore, ownerID core.ID) *TenantStore {
	return &TenantStore{store: store, ownerID: ownerID, userID: ownerID.String()}
}

// OwnerID returns the tenant this view is bound to.
func (s *TenantStore) OwnerID() core.ID {
	return s.ownerID
}

// AddTexts stamps user_id on every metadata entry and forwards the batch.
// A chunk already tagged with another tenant fails the whole batch with
// core.ErrTenantMismatch.
func (s *TenantStore) AddTexts(ctx context.Context, texts []string, metadatas []core.Metadata) error {
	if s.ownerID == 0 {
		return core.ErrMissingOwner
	}
	if len(texts) != len(metadatas) {
		return fmt.Errorf("%w: %d texts, %d metadatas", ErrLengthMismatch, len(texts), len(metadatas))
	}
	stamped := make([]core.Metadata, len(metadatas))
	for i, md := range metadatas {
		if owner, ok := md[core.MetaUserID]; ok && owner != s.userID {
			return fmt.Errorf("%w: chunk %d tagged %s, scope is %s", core.ErrTenantMismatch, i, owner, s.userID)
		}
		stamped[i] = md.Clone()
		stamped[i][core.MetaUserID] = s.userID
	}
	return s.store.AddTexts(ctx, texts, stamped)
}

// SimilaritySearch queries only the owner's chunks.
func (s *TenantStore) SimilaritySearch(ctx context.Context, query string, k int, filter core.Metadata) ([]core.ScoredChunk, error) {
	scoped, err := s.scopeFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.store.SimilaritySearch(ctx, query, k, scoped)
}

// Delete removes only the owner's chunks matching filter. An empty filter
// removes every chunk the owner has.
func (s *TenantStore) Delete(ctx context.Context, filter core.Metadata) (int, error) {
	scoped, err := s.scopeFilter(filter)
	if err != nil {
		return 0, err
	}
	return s.store.Delete(ctx, scoped)
}

func (s *TenantStore) scopeFilter(filter core.Metadata) (core.Metadata, error) {
	if s.ownerID == 0 {
		return nil, core.ErrMissingOwner
	}
	if owner, ok := filter[core.MetaUserID]; ok && owner != s.userID {
		return nil, fmt.Errorf("%w: filter names %s, scope is %s", core.ErrTenantMismatch, owner, s.userID)
	}
	scoped := filter.Clone()
	scoped[core.MetaUserID] = s.userID
	return scoped, nil
}

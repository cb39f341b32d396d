// Copyright 2025 Storyowl Labs
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

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
)

// ItemRepository implements storage.ItemRepository for BadgerDB.
type ItemRepository struct {
	backend *Backend
}

var _ storage.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(backend *Backend) (*ItemRepository, error) {
	return &ItemRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *ItemRepository) Close() error {
	return nil
}

// PutItems upserts one or more items with content-derived IDs.
func (r *ItemRepository) PutItems(ctx context.Context, items ...*core.Item) ([]*core.Item, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, item := range items {
			if err := core.ValidateItem(item); err != nil {
				return err
			}

			item.Id = core.IDFromContent(item.Kind.String() + ":" + item.SourceId)

			// Truncate to the serializer's resolution so a value read back
			// compares equal to the one written.
			now := time.Now().UTC().Truncate(time.Microsecond)
			old, err := r.readItem(tx, makeItemKey(item.Id))
			if err != nil {
				return err
			}
			if old != nil {
				item.InsertedAt = old.InsertedAt
			} else {
				item.InsertedAt = now
			}
			item.UpdatedAt = now

			if err := tx.Set(makeItemKey(item.Id), storage.MarshalItem(item)); err != nil {
				return err
			}
			if err := tx.Set(makeItemSourceKey(item.SourceId), storage.MarshalID(item.Id)); err != nil {
				return err
			}
			// InsertedAt is stable across upserts, so the recency key is too.
			recencyKey := makeItemRecencyKey(item.InsertedAt, item.Id)
			if err := tx.Set(recencyKey, storage.MarshalID(item.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return items, err
}

// GetItem retrieves a single item by ID.
func (r *ItemRepository) GetItem(ctx context.Context, id core.ID) (*core.Item, error) {
	var item *core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		item, err = r.readItem(tx, makeItemKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, storage.ErrNotFound
	}
	return item, nil
}

// GetItemBySourceId retrieves an item by its source identifier.
func (r *ItemRepository) GetItemBySourceId(ctx context.Context, sourceId string) (*core.Item, error) {
	var item *core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeItemSourceKey(sourceId))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var id core.ID
		if err := entry.Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}
		item, err = r.readItem(tx, makeItemKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, storage.ErrNotFound
	}
	return item, nil
}

// FindNearest finds items whose vectors are most similar to the query vector.
// The scan is linear over all items; catalog sizes here are tens of
// thousands, well inside what a single pass handles.
func (r *ItemRepository) FindNearest(ctx context.Context, vector []float32, minSimilarity float32, limit int, filter *storage.ItemFilter) ([]*storage.ScoredItem, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*storage.ScoredItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(itemPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var item *core.Item
			err := iter.Item().Value(func(val []byte) error {
				var err error
				item, err = storage.UnmarshalItem(val)
				return err
			})
			if err != nil {
				return err
			}
			if item == nil || len(item.Vector) == 0 {
				continue
			}
			if !matchesFilter(item, filter) {
				continue
			}

			// Cosine similarity; vectors are normalized at ingestion so the
			// dot product suffices.
			similarity := dotProduct(vector, item.Vector)
			if similarity >= minSimilarity {
				results = append(results, &storage.ScoredItem{
					Item:       item,
					Similarity: similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *storage.ScoredItem) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ListRecent returns the most recently ingested items, newest first.
func (r *ItemRepository) ListRecent(ctx context.Context, limit int, filter *storage.ItemFilter) ([]*core.Item, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible recency key, then walk backwards.
		startKey := makeItemRecencyKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC), core.ID(^uint64(0)))
		prefix := []byte(itemRecencyPrefix + ":")

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			item, err := r.readItem(tx, makeItemKey(id))
			if err != nil {
				return err
			}
			if item != nil && matchesFilter(item, filter) {
				results = append(results, item)
			}
		}
		return nil
	}, false)

	return results, err
}

// Count returns the number of items in the catalog.
func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(itemPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readItem reads an item by key within a transaction.
// Returns (nil, nil) if the key doesn't exist.
func (r *ItemRepository) readItem(tx *badger.Txn, key []byte) (*core.Item, error) {
	entry, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item *core.Item
	err = entry.Value(func(val []byte) error {
		var err error
		item, err = storage.UnmarshalItem(val)
		return err
	})
	return item, err
}

// matchesFilter applies an ItemFilter. A nil filter matches everything.
func matchesFilter(item *core.Item, filter *storage.ItemFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Kind != 0 && item.Kind != filter.Kind {
		return false
	}
	if !item.SuitableForAge(filter.Age) {
		return false
	}
	if filter.ExcludeIds[item.SourceId] {
		return false
	}
	for _, blocked := range filter.ExcludeTags {
		for _, tag := range item.Tags {
			if strings.EqualFold(tag, blocked) {
				return false
			}
		}
	}
	return true
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

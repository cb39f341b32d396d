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


package retrieval

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/storyowl/storyowl/storage"
)

// Retriever gathers nearest-neighbor candidates from the item catalog,
// merging multiple seed vectors into one deterministic pool.
type Retriever struct {
	items  storage.ItemRepository
	pool   *ants.Pool
	config *Config
	logger *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithConfig replaces the retrieval parameters.
func WithConfig(cfg *Config) Option {
	return func(r *Retriever) error {
		if cfg != nil {
			r.config = cfg
		}
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent seed queries.
// Default is 4.
func WithPoolSize(size int) Option {
	return func(r *Retriever) error {
		if size < 1 {
			size = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// NewRetriever creates a new retriever over the item catalog.
func NewRetriever(items storage.ItemRepository, opts ...Option) (*Retriever, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}

	pool, err := ants.NewPool(4)
	if err != nil {
		return nil, err
	}

	r := &Retriever{
		items:  items,
		pool:   pool,
		config: DefaultConfig(),
		logger: slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

// Release shuts down the worker pool.
func (r *Retriever) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Config returns the active retrieval parameters.
func (r *Retriever) Config() *Config {
	return r.config
}

// FetchNearest runs a single-seed nearest-neighbor query with the standard
// pool sizing.
func (r *Retriever) FetchNearest(ctx context.Context, vector []float32, limit int, filter *storage.ItemFilter) ([]*storage.ScoredItem, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return r.items.FindNearest(ctx, vector, 0, r.config.PoolSize(limit), filter)
}

// Gather fetches a candidate pool per seed vector concurrently and merges
// the pools by round-robin rank interleave: rank 0 of every seed, then rank
// 1, and so on, de-duplicating by item id so the first occurrence wins. The
// merged order depends only on the per-seed ranks, never on which query
// returned first.
//
// With no seeds it falls back to a recency-ordered scan under the same
// filter, so a profile-less, seed-less turn still yields candidates.
func (r *Retriever) Gather(ctx context.Context, seeds [][]float32, limit int, filter *storage.ItemFilter) ([]*Candidate, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	seeds = nonEmptySeeds(seeds)
	if len(seeds) == 0 {
		return r.gatherRecent(ctx, limit, filter)
	}

	poolSize := r.config.PoolSize(limit)
	perSeed := make([][]*storage.ScoredItem, len(seeds))
	errs := make([]error, len(seeds))

	var wg sync.WaitGroup
	for i, seed := range seeds {
		wg.Add(1)
		i, seed := i, seed
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			perSeed[i], errs[i] = r.items.FindNearest(ctx, seed, 0, poolSize, filter)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			r.logger.Error("seed query failed", "seed", i, "err", err)
			return nil, err
		}
	}

	return interleave(perSeed), nil
}

func (r *Retriever) gatherRecent(ctx context.Context, limit int, filter *storage.ItemFilter) ([]*Candidate, error) {
	items, err := r.items.ListRecent(ctx, r.config.PoolSize(limit), filter)
	if err != nil {
		return nil, err
	}
	candidates := make([]*Candidate, len(items))
	for i, item := range items {
		candidates[i] = &Candidate{Item: item}
	}
	return candidates, nil
}

// interleave merges per-seed result lists round-robin by rank position,
// keeping the first occurrence of each item.
func interleave(perSeed [][]*storage.ScoredItem) []*Candidate {
	maxLen := 0
	total := 0
	for _, list := range perSeed {
		total += len(list)
		if len(list) > maxLen {
			maxLen = len(list)
		}
	}

	seen := make(map[string]bool, total)
	merged := make([]*Candidate, 0, total)
	for rank := 0; rank < maxLen; rank++ {
		for _, list := range perSeed {
			if rank >= len(list) {
				continue
			}
			s := list[rank]
			if seen[s.Item.SourceId] {
				continue
			}
			seen[s.Item.SourceId] = true
			merged = append(merged, &Candidate{Item: s.Item, QuerySim: s.Similarity})
		}
	}
	return merged
}

func nonEmptySeeds(seeds [][]float32) [][]float32 {
	out := seeds[:0:0]
	for _, s := range seeds {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

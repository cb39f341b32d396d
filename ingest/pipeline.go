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


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/storyowl/storyowl/ai"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/storage"
)

// DefaultBatchSize is the number of texts sent to the embedder per call.
const DefaultBatchSize = 32

// Pipeline embeds and upserts catalog items.
type Pipeline struct {
	items     storage.ItemRepository
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent batch embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many texts go to the embedder per call.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(items storage.ItemRepository, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		items:     items,
		embedder:  provider.Embedder(),
		pool:      pool,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "ingest"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Ingest validates, embeds, and upserts the items. Batches are embedded
// concurrently on the worker pool and joined before the upsert, so either
// every item lands with its vector or the call fails as a whole.
func (p *Pipeline) Ingest(ctx context.Context, items ...*core.Item) ([]*core.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	for _, item := range items {
		if err := core.ValidateItem(item); err != nil {
			return nil, err
		}
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = ComposeText(item)
	}

	vectors, err := p.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Vector = vectors[i]
	}

	stored, err := p.items.PutItems(ctx, items...)
	if err != nil {
		return nil, err
	}
	p.logger.Info("ingested items", "count", len(stored))
	return stored, nil
}

// embedAll splits texts into batches, embeds them on the pool, and stitches
// the results back in input order.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		batches = append(batches, batch{start: start, texts: texts[start:end]})
	}

	vectors := make([][]float32, len(texts))
	errs := make([]error, len(batches))
	var wg sync.WaitGroup
	for i, b := range batches {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			embedded, err := p.embedder.EmbedTexts(ctx, b.texts)
			if err != nil {
				errs[i] = err
				return
			}
			if len(embedded) != len(b.texts) {
				errs[i] = fmt.Errorf("%w: expected %d, received %d",
					ai.ErrEmbeddingCountMismatch, len(b.texts), len(embedded))
				return
			}
			copy(vectors[b.start:], embedded)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

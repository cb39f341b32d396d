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


package storyowl

import (
	"log/slog"

	"github.com/storyowl/storyowl/ai"
	"github.com/storyowl/storyowl/ai/openai"
	"github.com/storyowl/storyowl/chat"
	"github.com/storyowl/storyowl/ingest"
	"github.com/storyowl/storyowl/profile"
	"github.com/storyowl/storyowl/retrieval"
	"github.com/storyowl/storyowl/storage"
	"github.com/storyowl/storyowl/storage/badger"
)

// Engine bundles the storage backend, repositories, and the embedding
// provider behind one handle. Higher-level components (retriever,
// orchestrator, ingest pipeline) are built from it on demand.
type Engine struct {
	backend  *badger.Backend
	items    storage.ItemRepository
	profiles storage.ProfileRepository
	sessions storage.SessionRepository
	provider ai.AIProvider
	embedder ai.Embedder
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(cfg *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider injects an already-built provider instead of constructing
// one from the AI config.
func WithAIProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage opens the backend without a data directory. State is
// lost on Close.
func WithInMemoryStorage() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

func NewEngine(filePath string, opts ...EngineOption) (*Engine, error) {
	// Apply options
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}
	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create item repository
	items, err := badger.NewItemRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create profile repository
	profiles, err := badger.NewProfileRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create session repository
	sessions, err := badger.NewSessionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Engine{
		backend:  backend,
		items:    items,
		profiles: profiles,
		sessions: sessions,
		provider: provider,
		embedder: ai.NewRetryingEmbedder(provider.Embedder()),
		logger:   slog.Default(),
	}, nil
}

func (e *Engine) Close() error {
	// Close AI provider first
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	// Close backend
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (e *Engine) ItemRepository() storage.ItemRepository {
	return e.items
}

func (e *Engine) ProfileRepository() storage.ProfileRepository {
	return e.profiles
}

func (e *Engine) SessionRepository() storage.SessionRepository {
	return e.sessions
}

// Embedder returns the retry-wrapped embedding client shared by every
// component built from this engine.
func (e *Engine) Embedder() ai.Embedder {
	return e.embedder
}

func (e *Engine) NewIngestPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	return ingest.NewPipeline(e.items, e.provider, opts...)
}

func (e *Engine) NewProfileRebuilder() (*profile.Rebuilder, error) {
	return profile.NewRebuilder(e.embedder, e.profiles)
}

func (e *Engine) NewRetriever(opts ...retrieval.Option) (*retrieval.Retriever, error) {
	return retrieval.NewRetriever(e.items, opts...)
}

// NewOrchestrator builds a chat orchestrator over the given retriever. The
// engine's profile repository is wired in; callers add catalog sources,
// the personalizer, and configuration through opts.
func (e *Engine) NewOrchestrator(retriever *retrieval.Retriever, opts ...chat.Option) (*chat.Orchestrator, error) {
	opts = append([]chat.Option{chat.WithProfiles(e.profiles)}, opts...)
	return chat.NewOrchestrator(e.embedder, retriever, e.sessions, opts...)
}

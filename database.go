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


package semblance

import (
	"log/slog"

	"github.com/poiesic/semblance/ai"
	"github.com/poiesic/semblance/ai/openai"
	"github.com/poiesic/semblance/filter"
	"github.com/poiesic/semblance/indexing"
	"github.com/poiesic/semblance/search"
	"github.com/poiesic/semblance/storage"
	"github.com/poiesic/semblance/storage/badger"
)

// Database wires the storage backend, repositories, and AI provider
// into one handle that hands out searchers, matchers, and pipelines.
type Database struct {
	backend       *badger.Backend
	entityRepo    storage.EntityRepository
	embeddingRepo storage.EmbeddingRepository
	provider      ai.AIProvider
	logger        *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithAIProvider injects a pre-built AI provider, bypassing the OpenAI
// provider construction. Used by tests to supply mocks.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory opens the backend in memory, ignoring the file path.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens a database at the given path.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	entityRepo, err := badger.NewEntityRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	embeddingRepo, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		entityRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			embeddingRepo.Close()
			entityRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:       backend,
		entityRepo:    entityRepo,
		embeddingRepo: embeddingRepo,
		provider:      provider,
		logger:        slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.embeddingRepo.Close(); err != nil {
		db.logger.Error("error closing embedding repository", "err", err)
		return err
	}
	if err := db.entityRepo.Close(); err != nil {
		db.logger.Error("error closing entity repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) EntityRepository() storage.EntityRepository {
	return db.entityRepo
}

func (db *Database) EmbeddingRepository() storage.EmbeddingRepository {
	return db.embeddingRepo
}

func (db *Database) NewIndexingPipeline(opts ...indexing.Option) (*indexing.Pipeline, error) {
	return indexing.NewPipeline(db.entityRepo, db.embeddingRepo, db.provider, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.entityRepo, db.embeddingRepo, db.provider, opts...)
}

func (db *Database) NewFilterEngine(opts ...filter.Option) *filter.Engine {
	return filter.NewEngine(opts...)
}

func (db *Database) NewMatcher(opts ...search.MatcherOption) (*search.Matcher, error) {
	searcher, err := db.NewSearcher()
	if err != nil {
		return nil, err
	}
	return search.NewMatcher(searcher, opts...)
}

package storage

import (
	"context"

	"github.com/poiesic/semblance/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// EntityRepository provides operations for managing entities.
type EntityRepository interface {
	Repository

	// AddEntities adds one or more entities to storage.
	// For entities with ID=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Returns the entities with generated IDs and timestamps populated.
	AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// UpdateEntities updates existing entities.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any entity doesn't exist.
	UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// DeleteEntities removes entities by their IDs.
	// Returns ErrNotFound if any entity doesn't exist.
	DeleteEntities(ctx context.Context, ids ...core.ID) error

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// GetEntities retrieves multiple entities by their IDs.
	// Returns only the entities that exist (no error for missing entities).
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// GetAllEntities retrieves every stored entity.
	GetAllEntities(ctx context.Context) ([]*core.Entity, error)
}

// EmbeddingRepository provides operations for managing embedding records.
type EmbeddingRepository interface {
	Repository

	// PutEmbeddings stores one or more embedding records, replacing any
	// existing record for the same entity.
	PutEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error

	// GetEmbedding retrieves the embedding record for an entity.
	// Returns ErrNotFound if no record exists.
	GetEmbedding(ctx context.Context, id core.ID) (*core.EmbeddingRecord, error)

	// DeleteEmbeddings removes embedding records by entity ID.
	// Missing records are ignored.
	DeleteEmbeddings(ctx context.Context, ids ...core.ID) error

	// GetEmbeddingsByStatus retrieves embedding records with the given
	// generation status. A limit <= 0 returns all matching records.
	GetEmbeddingsByStatus(ctx context.Context, status core.EmbeddingStatus, limit int) ([]*core.EmbeddingRecord, error)
}

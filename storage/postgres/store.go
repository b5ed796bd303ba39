package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/semblance/core"
)

// DefaultDimensions is the embedding column width used when no option
// overrides it. Matches the mock embedder and common local models.
const DefaultDimensions = 384

// Store is a Postgres-backed entity store with pgvector ranking. It
// exists for deployments that want filter push-down: the WHERE
// fragments produced by filter.(*Engine).BuildStoreQuery prune
// candidates inside the database before the application-level pass.
type Store struct {
	db     *sql.DB
	dims   int
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDimensions sets the embedding column width.
// Default is DefaultDimensions.
func WithDimensions(dims int) Option {
	return func(s *Store) {
		if dims > 0 {
			s.dims = dims
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to Postgres with the given DSN. Call Init before first
// use and Close when done.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	s := &Store{
		db:     db,
		dims:   DefaultDimensions,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertEntities inserts or updates entities by id. Metadata and
// privacy maps are stored as JSONB.
func (s *Store) UpsertEntities(ctx context.Context, entities ...*core.Entity) error {
	const stmt = `
		INSERT INTO entities (id, kind, display_name, searchable, metadata, privacy, inserted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			display_name = EXCLUDED.display_name,
			searchable = EXCLUDED.searchable,
			metadata = EXCLUDED.metadata,
			privacy = EXCLUDED.privacy,
			updated_at = now()`

	for _, entity := range entities {
		if err := core.ValidateEntity(entity); err != nil {
			return err
		}
		metadata, err := json.Marshal(entity.Metadata)
		if err != nil {
			return fmt.Errorf("postgres: marshal metadata: %w", err)
		}
		privacy, err := json.Marshal(entity.Privacy)
		if err != nil {
			return fmt.Errorf("postgres: marshal privacy: %w", err)
		}
		_, err = s.db.ExecContext(ctx, stmt,
			int64(entity.Id), entity.Kind, entity.DisplayName, entity.Searchable,
			metadata, privacy)
		if err != nil {
			return fmt.Errorf("postgres: upsert entity %d: %w", entity.Id, err)
		}
	}
	return nil
}

// SetEmbedding stores an entity's embedding vector.
func (s *Store) SetEmbedding(ctx context.Context, id core.ID, vector []float32) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE entities SET embedding = $2, updated_at = now() WHERE id = $1`,
		int64(id), pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("postgres: set embedding for %d: %w", id, err)
	}
	return nil
}

// SearchEntities loads searchable entities matching a WHERE fragment
// produced by filter.(*Engine).BuildStoreQuery. The fragment is a
// coarse pre-filter: it never saw privacy rules, so callers must re-run
// the filter engine over the returned entities.
func (s *Store) SearchEntities(ctx context.Context, whereFragment string, limit int) ([]*core.Entity, error) {
	if whereFragment == "" {
		whereFragment = "TRUE"
	}
	query := fmt.Sprintf(`
		SELECT id, kind, display_name, searchable, metadata, privacy, inserted_at, updated_at
		FROM entities
		WHERE searchable AND (%s)
		ORDER BY id`, whereFragment)
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: search entities: %w", err)
	}
	defer rows.Close()

	var entities []*core.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// VectorMatch is one row of a vector ranking.
type VectorMatch struct {
	Id    core.ID
	Score float32
}

// RankByVector ranks stored embeddings against the reference vector by
// cosine similarity inside the database, optionally pre-filtered by a
// push-down WHERE fragment. Rows without an embedding are skipped.
func (s *Store) RankByVector(ctx context.Context, ref []float32, whereFragment string, limit int) ([]VectorMatch, error) {
	if whereFragment == "" {
		whereFragment = "TRUE"
	}
	query := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS score
		FROM entities
		WHERE embedding IS NOT NULL AND searchable AND (%s)
		ORDER BY embedding <=> $1
		LIMIT $2`, whereFragment)

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(ref), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: rank by vector: %w", err)
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("postgres: scan match: %w", err)
		}
		if score < 0 {
			score = 0
		}
		matches = append(matches, VectorMatch{Id: core.ID(id), Score: float32(score)})
	}
	return matches, rows.Err()
}

// DeleteEntities removes entities by id. Missing ids are ignored.
func (s *Store) DeleteEntities(ctx context.Context, ids ...core.ID) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, int64(id)); err != nil {
			return fmt.Errorf("postgres: delete entity %d: %w", id, err)
		}
	}
	return nil
}

func scanEntity(rows *sql.Rows) (*core.Entity, error) {
	var (
		id                        int64
		entity                    core.Entity
		metadataJSON, privacyJSON []byte
	)
	err := rows.Scan(&id, &entity.Kind, &entity.DisplayName, &entity.Searchable,
		&metadataJSON, &privacyJSON, &entity.InsertedAt, &entity.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan entity: %w", err)
	}
	entity.Id = core.ID(id)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entity.Metadata); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal metadata: %w", err)
		}
	}
	if len(privacyJSON) > 0 {
		if err := json.Unmarshal(privacyJSON, &entity.Privacy); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal privacy: %w", err)
		}
	}
	return &entity, nil
}

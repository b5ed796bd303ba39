package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/semblance/core"
	"github.com/poiesic/semblance/storage"
)

func newTestRepos(t *testing.T) (storage.EntityRepository, storage.EmbeddingRepository) {
	t.Helper()
	entityRepo, embeddingRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		entityRepo.Close()
		embeddingRepo.Close()
		backend.Close()
	})
	return entityRepo, embeddingRepo
}

func person(name string) *core.Entity {
	return &core.Entity{
		Kind:        "person",
		DisplayName: name,
		Searchable:  true,
		Metadata:    map[string]any{"location": "Lisbon"},
	}
}

func TestAddEntities(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns sequence ids", func(t *testing.T) {
		repo, _ := newTestRepos(t)

		stored, err := repo.AddEntities(ctx, person("Alice"), person("Bob"))
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.NotZero(t, stored[0].Id)
		assert.NotZero(t, stored[1].Id)
		assert.NotEqual(t, stored[0].Id, stored[1].Id)
	})

	t.Run("preserves content-based ids", func(t *testing.T) {
		repo, _ := newTestRepos(t)

		entity := person("Alice")
		entity.Id = core.IDFromContent("person:Alice")

		stored, err := repo.AddEntities(ctx, entity)
		require.NoError(t, err)
		assert.Equal(t, core.IDFromContent("person:Alice"), stored[0].Id)
	})

	t.Run("sets timestamps", func(t *testing.T) {
		repo, _ := newTestRepos(t)

		stored, err := repo.AddEntities(ctx, person("Alice"))
		require.NoError(t, err)
		assert.False(t, stored[0].InsertedAt.IsZero())
		assert.Equal(t, stored[0].InsertedAt, stored[0].UpdatedAt)
	})

	t.Run("rejects invalid entities", func(t *testing.T) {
		repo, _ := newTestRepos(t)

		_, err := repo.AddEntities(ctx, &core.Entity{DisplayName: "no kind"})
		assert.ErrorIs(t, err, core.ErrInvalidEntity)
	})
}

func TestUpdateEntities(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves inserted at and bumps updated at", func(t *testing.T) {
		repo, _ := newTestRepos(t)

		stored, err := repo.AddEntities(ctx, person("Alice"))
		require.NoError(t, err)
		insertedAt := stored[0].InsertedAt

		stored[0].DisplayName = "Alice B."
		updated, err := repo.UpdateEntities(ctx, stored[0])
		require.NoError(t, err)
		assert.Equal(t, insertedAt, updated[0].InsertedAt)
		assert.False(t, updated[0].UpdatedAt.Before(insertedAt))

		got, err := repo.GetEntity(ctx, stored[0].Id)
		require.NoError(t, err)
		assert.Equal(t, "Alice B.", got.DisplayName)
	})

	t.Run("missing entity", func(t *testing.T) {
		repo, _ := newTestRepos(t)

		entity := person("Ghost")
		entity.Id = 9999
		_, err := repo.UpdateEntities(ctx, entity)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestGetEntities(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepos(t)

	stored, err := repo.AddEntities(ctx, person("Alice"), person("Bob"), person("Carol"))
	require.NoError(t, err)

	t.Run("single lookup", func(t *testing.T) {
		got, err := repo.GetEntity(ctx, stored[1].Id)
		require.NoError(t, err)
		assert.Equal(t, "Bob", got.DisplayName)
		assert.Equal(t, "Lisbon", got.Metadata["location"])
	})

	t.Run("single lookup missing", func(t *testing.T) {
		_, err := repo.GetEntity(ctx, 9999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("batch lookup skips missing ids", func(t *testing.T) {
		got, err := repo.GetEntities(ctx, stored[0].Id, 9999, stored[2].Id)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Alice", got[0].DisplayName)
		assert.Equal(t, "Carol", got[1].DisplayName)
	})

	t.Run("get all", func(t *testing.T) {
		all, err := repo.GetAllEntities(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestDeleteEntities(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepos(t)

	stored, err := repo.AddEntities(ctx, person("Alice"), person("Bob"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteEntities(ctx, stored[0].Id))

	_, err = repo.GetEntity(ctx, stored[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.GetEntity(ctx, stored[1].Id)
	assert.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteEntities(ctx, stored[0].Id), storage.ErrNotFound)
}

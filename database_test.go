package semblance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/semblance/ai/mock"
	"github.com/poiesic/semblance/core"
	"github.com/poiesic/semblance/indexing"
	"github.com/poiesic/semblance/search"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase("", WithInMemory(), WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	db := newTestDatabase(t)
	assert.NotNil(t, db.EntityRepository())
	assert.NotNil(t, db.EmbeddingRepository())
}

func TestDatabaseEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	pipeline, err := db.NewIndexingPipeline(indexing.WithSynchronous(), indexing.WithModel("test-model"))
	require.NoError(t, err)
	defer pipeline.Release()

	entities := []*core.Entity{
		{Kind: "person", DisplayName: "Alice", Searchable: true,
			Metadata: map[string]any{"occupation": "engineer", "location": "Lisbon"}},
		{Kind: "person", DisplayName: "Bob", Searchable: true,
			Metadata: map[string]any{"occupation": "engineer", "location": "Porto"}},
		{Kind: "job", DisplayName: "Go Engineer", Searchable: true,
			Metadata: map[string]any{"location": "Lisbon"}},
	}
	_, err = pipeline.Ingest(ctx, entities...)
	require.NoError(t, err)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)

	t.Run("text search finds ingested entities", func(t *testing.T) {
		// The mock embedder is deterministic, so searching with an
		// entity's exact embedding text scores it at similarity one.
		result, err := searcher.SearchByText(ctx, indexing.EmbeddingText(entities[0]), search.Query{
			Limit:         3,
			MinSimilarity: 0.99,
		})
		require.NoError(t, err)
		require.NotEmpty(t, result.Matches)
		assert.Equal(t, "Alice", result.Matches[0].DisplayName)
	})

	t.Run("similarity search excludes the reference", func(t *testing.T) {
		result, err := searcher.FindSimilarToEntity(ctx, entities[0].Id, search.Query{Limit: 10})
		require.NoError(t, err)
		for _, match := range result.Matches {
			assert.NotEqual(t, entities[0].Id, match.EntityId)
		}
	})

	t.Run("kind filter narrows results", func(t *testing.T) {
		result, err := searcher.FindSimilarToEntity(ctx, entities[0].Id, search.Query{
			Limit: 10,
			Filters: &core.FilterGroup{
				Operator: core.LogicAnd,
				Filters: []core.AttributeFilter{
					{Field: "kind", Operator: core.OpEquals, Value: core.StringValue("job")},
				},
			},
		})
		require.NoError(t, err)
		for _, match := range result.Matches {
			assert.Equal(t, "Go Engineer", match.DisplayName)
		}
	})
}

func TestDatabaseNewMatcher(t *testing.T) {
	db := newTestDatabase(t)

	matcher, err := db.NewMatcher(search.WithReverseWindow(10))
	require.NoError(t, err)
	matcher.Release()
}

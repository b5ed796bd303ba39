package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/semblance/core"
)

// stubSearcher scripts forward and reverse results per entity id.
type stubSearcher struct {
	mu      sync.Mutex
	results map[core.ID]*Result
	errs    map[core.ID]error
	queries map[core.ID]Query
}

var _ EntitySearcher = (*stubSearcher)(nil)

func newStubSearcher() *stubSearcher {
	return &stubSearcher{
		results: make(map[core.ID]*Result),
		errs:    make(map[core.ID]error),
		queries: make(map[core.ID]Query),
	}
}

func (s *stubSearcher) FindSimilarToEntity(_ context.Context, entityId core.ID, query Query) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[entityId] = query
	if err := s.errs[entityId]; err != nil {
		return nil, err
	}
	if result, ok := s.results[entityId]; ok {
		return result, nil
	}
	return &Result{}, nil
}

func (s *stubSearcher) on(entityId core.ID, matches ...*core.EntityMatch) {
	s.results[entityId] = &Result{Matches: matches, TotalMatches: len(matches)}
}

func match(id core.ID, score float32) *core.EntityMatch {
	return &core.EntityMatch{EntityId: id, Score: score}
}

func newTestMatcher(t *testing.T, stub *stubSearcher, opts ...MatcherOption) *Matcher {
	t.Helper()
	matcher, err := NewMatcher(stub, opts...)
	require.NoError(t, err)
	t.Cleanup(matcher.Release)
	return matcher
}

func TestFindMutualMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("forward hit confirmed by reverse", func(t *testing.T) {
		// A sees B at 0.82; B sees A at 0.88. Mean is 0.85.
		stub := newStubSearcher()
		stub.on(1, match(2, 0.82))
		stub.on(2, match(1, 0.88))

		matcher := newTestMatcher(t, stub)
		result, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{MinSimilarity: 0.8, Limit: 50})
		require.NoError(t, err)

		require.Len(t, result.Matches, 1)
		m := result.Matches[0]
		assert.Equal(t, core.ID(1), m.EntityId)
		assert.Equal(t, core.ID(2), m.OtherId)
		assert.InDelta(t, 0.82, float64(m.ForwardScore), 1e-6)
		assert.InDelta(t, 0.88, float64(m.ReverseScore), 1e-6)
		assert.InDelta(t, 0.85, float64(m.MutualScore), 1e-6)
		assert.False(t, m.DetectedAt.IsZero())

		assert.Equal(t, 1, result.Metadata.CandidatesEvaluated)
		assert.Equal(t, 1, result.Metadata.ReverseLookups)
	})

	t.Run("mean of two legs", func(t *testing.T) {
		stub := newStubSearcher()
		stub.on(1, match(2, 0.9))
		stub.on(2, match(1, 0.85))

		matcher := newTestMatcher(t, stub)
		result, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{})
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		assert.InDelta(t, 0.875, float64(result.Matches[0].MutualScore), 1e-6)
	})

	t.Run("origin missing from reverse window excludes candidate", func(t *testing.T) {
		stub := newStubSearcher()
		stub.on(1, match(2, 0.9), match(3, 0.85))
		stub.on(2, match(1, 0.88))
		stub.on(3, match(99, 0.95)) // 3 ranks someone else, not the origin

		matcher := newTestMatcher(t, stub)
		result, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{})
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		assert.Equal(t, core.ID(2), result.Matches[0].OtherId)
		assert.Equal(t, 2, result.Metadata.CandidatesEvaluated)
		assert.Equal(t, 2, result.Metadata.ReverseLookups)
	})

	t.Run("reverse failure excludes only that candidate", func(t *testing.T) {
		stub := newStubSearcher()
		stub.on(1, match(2, 0.9), match(3, 0.85))
		stub.on(2, match(1, 0.88))
		stub.errs[3] = errors.New("candidate embedding corrupt")

		matcher := newTestMatcher(t, stub)
		result, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{})
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		assert.Equal(t, core.ID(2), result.Matches[0].OtherId)
	})

	t.Run("forward failure is fatal", func(t *testing.T) {
		stub := newStubSearcher()
		stub.errs[1] = errors.New("reference embedding missing")

		matcher := newTestMatcher(t, stub)
		_, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{})
		assert.Error(t, err)
	})

	t.Run("sorted descending and truncated", func(t *testing.T) {
		stub := newStubSearcher()
		stub.on(1, match(2, 0.81), match(3, 0.95), match(4, 0.9))
		stub.on(2, match(1, 0.81))
		stub.on(3, match(1, 0.95))
		stub.on(4, match(1, 0.9))

		matcher := newTestMatcher(t, stub)
		result, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{Limit: 2})
		require.NoError(t, err)
		require.Len(t, result.Matches, 2)
		assert.Equal(t, core.ID(3), result.Matches[0].OtherId)
		assert.Equal(t, core.ID(4), result.Matches[1].OtherId)
	})
}

func TestFindMutualMatchesQueryShape(t *testing.T) {
	ctx := context.Background()

	t.Run("forward leg over-fetches three times the limit", func(t *testing.T) {
		stub := newStubSearcher()
		matcher := newTestMatcher(t, stub)

		_, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{Limit: 50, MinSimilarity: 0.8})
		require.NoError(t, err)

		forward := stub.queries[1]
		assert.Equal(t, 150, forward.Limit)
		assert.Equal(t, float32(0.8), forward.MinSimilarity)
	})

	t.Run("kind filter applies to the forward leg", func(t *testing.T) {
		stub := newStubSearcher()
		matcher := newTestMatcher(t, stub)

		_, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{TargetKind: "person"})
		require.NoError(t, err)

		forward := stub.queries[1]
		require.NotNil(t, forward.Filters)
		require.Len(t, forward.Filters.Filters, 1)
		assert.Equal(t, "kind", forward.Filters.Filters[0].Field)
		assert.Equal(t, core.StringValue("person"), forward.Filters.Filters[0].Value)
	})

	t.Run("reverse leg uses the window and no filters", func(t *testing.T) {
		stub := newStubSearcher()
		stub.on(1, match(2, 0.9))
		stub.on(2, match(1, 0.9))

		matcher := newTestMatcher(t, stub, WithReverseWindow(25))
		_, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{TargetKind: "person"})
		require.NoError(t, err)

		reverse := stub.queries[2]
		assert.Equal(t, 25, reverse.Limit)
		assert.Nil(t, reverse.Filters)
	})

	t.Run("defaults applied", func(t *testing.T) {
		stub := newStubSearcher()
		matcher := newTestMatcher(t, stub)

		result, err := matcher.FindMutualMatches(ctx, 1, MutualQuery{})
		require.NoError(t, err)
		assert.Equal(t, float32(DefaultMutualMinSimilarity), result.Metadata.MinSimilarity)

		forward := stub.queries[1]
		assert.Equal(t, DefaultMutualLimit*3, forward.Limit)
	})
}

package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/semblance/ai"
	"github.com/poiesic/semblance/core"
	"github.com/poiesic/semblance/filter"
	"github.com/poiesic/semblance/storage"
)

// DefaultLimit is the result cap applied when a query does not set one.
const DefaultLimit = 10

// filterOverFetchFactor is how many extra ranked candidates are
// considered per requested result when filters are active, to absorb
// filter attrition without a second ranking pass.
const filterOverFetchFactor = 2

// Query is the caller-tunable part of a similarity search.
type Query struct {
	// Limit caps the number of returned matches. Defaults to DefaultLimit.
	Limit int

	// MinSimilarity excludes candidates scoring below this threshold.
	MinSimilarity float32

	// IncludeFull hydrates the full entity payload onto each match.
	IncludeFull bool

	// Filters is an optional attribute filter tree; nil or empty matches all.
	Filters *core.FilterGroup

	// Metadata is an optional exact-match constraint on entity metadata.
	// Every key must resolve on the entity and compare equal.
	Metadata map[string]any

	// RequesterId identifies who is searching, for privacy enforcement.
	RequesterId core.ID

	// EnforcePrivacy applies per-field visibility rules during filtering.
	// Only trusted internal paths may disable it.
	EnforcePrivacy bool
}

func (q Query) normalized() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

func (q Query) hasFilters() bool {
	return !q.Filters.Empty() || len(q.Metadata) > 0
}

// ResultMetadata describes how a search was executed.
type ResultMetadata struct {
	SearchedAt        time.Time
	CandidatesScanned int
	MinSimilarity     float32
	RequestedLimit    int
	Duration          time.Duration
}

// Result is a completed similarity search.
type Result struct {
	Matches      []*core.EntityMatch
	TotalMatches int
	Metadata     ResultMetadata
}

// Searcher provides hybrid similarity search over entities: vector
// ranking combined with structured attribute filtering.
type Searcher struct {
	entityRepository    storage.EntityRepository
	embeddingRepository storage.EmbeddingRepository
	embedder            ai.Embedder
	engine              *filter.Engine
	logger              *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithEngine sets a custom filter engine, for non-default derived
// field sets.
func WithEngine(engine *filter.Engine) Option {
	return func(s *Searcher) error {
		if engine != nil {
			s.engine = engine
		}
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	entityRepository storage.EntityRepository,
	embeddingRepository storage.EmbeddingRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if entityRepository == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if embeddingRepository == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		entityRepository:    entityRepository,
		embeddingRepository: embeddingRepository,
		embedder:            provider.Embedder(),
		engine:              filter.NewEngine(),
		logger:              slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilarToEntity searches for entities similar to the given one.
// The reference entity is always excluded from its own results.
func (s *Searcher) FindSimilarToEntity(ctx context.Context, entityId core.ID, query Query) (*Result, error) {
	return s.FindSimilarToEntityWithMonitor(ctx, entityId, query, nil)
}

// FindSimilarToEntityWithMonitor is FindSimilarToEntity with search
// process monitoring. The monitor receives callbacks at each stage.
//
// The reference entity's embedding must be generated and non-empty;
// otherwise core.ErrEmbeddingNotReady is returned. A reference entity
// without any embedding record yields storage.ErrNotFound.
func (s *Searcher) FindSimilarToEntityWithMonitor(ctx context.Context, entityId core.ID, query Query, monitor SearchMonitor) (*Result, error) {
	ref, err := s.embeddingRepository.GetEmbedding(ctx, entityId)
	if err != nil {
		return nil, err
	}
	if !ref.Ready() {
		return nil, fmt.Errorf("%w: entity %d has status %d", core.ErrEmbeddingNotReady, entityId, ref.Status)
	}

	return s.findSimilarToVector(ctx, entityId, ref.Vector, query, monitor)
}

// SearchByText searches for entities similar to free text. The text is
// embedded with the searcher's AI provider; no entity is excluded.
func (s *Searcher) SearchByText(ctx context.Context, text string, query Query) (*Result, error) {
	return s.SearchByTextWithMonitor(ctx, text, query, nil)
}

// SearchByTextWithMonitor is SearchByText with search process monitoring.
func (s *Searcher) SearchByTextWithMonitor(ctx context.Context, text string, query Query, monitor SearchMonitor) (*Result, error) {
	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		s.logger.Error("error generating embedding for query text", "err", err)
		return nil, err
	}

	return s.findSimilarToVector(ctx, core.AnonymousID, vector, query, monitor)
}

// findSimilarToVector ranks every generated embedding against the
// reference vector, then walks the ranking in order applying the
// searchable flag, attribute filters, and metadata equality until the
// limit is reached. With filters active it considers up to
// filterOverFetchFactor times the limit before giving up.
func (s *Searcher) findSimilarToVector(ctx context.Context, excludeId core.ID, ref []float32, query Query, monitor SearchMonitor) (*Result, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	query = query.normalized()
	start := time.Now()
	monitor.Start(excludeId)

	candidates, err := s.loadCandidates(ctx, excludeId)
	if err != nil {
		s.logger.Error("error loading candidate embeddings", "err", err)
		return nil, err
	}

	ranked := Rank(ref, candidates, query.MinSimilarity)
	monitor.AfterRank(ranked)

	scanBudget := query.Limit
	if query.hasFilters() {
		scanBudget = query.Limit * filterOverFetchFactor
	}
	if scanBudget > len(ranked) {
		scanBudget = len(ranked)
	}

	matches, scanned := s.collectMatches(ctx, ranked[:scanBudget], query, monitor)

	result := &Result{
		Matches:      matches,
		TotalMatches: len(matches),
		Metadata: ResultMetadata{
			SearchedAt:        start,
			CandidatesScanned: scanned,
			MinSimilarity:     query.MinSimilarity,
			RequestedLimit:    query.Limit,
			Duration:          time.Since(start),
		},
	}
	monitor.Finish(result)
	return result, nil
}

// loadCandidates gathers every ready embedding except the excluded
// entity's own.
func (s *Searcher) loadCandidates(ctx context.Context, excludeId core.ID) ([]Candidate, error) {
	records, err := s.embeddingRepository.GetEmbeddingsByStatus(ctx, core.EmbeddingGenerated, 0)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(records))
	for _, record := range records {
		if record == nil || record.EntityId == excludeId || !record.Ready() {
			continue
		}
		candidates = append(candidates, Candidate{Id: record.EntityId, Vector: record.Vector})
	}
	return candidates, nil
}

// collectMatches applies the post-ranking filter pass in rank order.
// Per-candidate failures, whether loading the entity or evaluating
// filters against its values, are logged and skipped so one bad record
// cannot fail a whole search.
func (s *Searcher) collectMatches(ctx context.Context, ranked []Scored, query Query, monitor SearchMonitor) ([]*core.EntityMatch, int) {
	matches := make([]*core.EntityMatch, 0, query.Limit)
	scanned := 0

	for _, sc := range ranked {
		if len(matches) >= query.Limit {
			break
		}
		scanned++
		monitor.CandidateConsidered(sc.Id)

		entity, err := s.entityRepository.GetEntity(ctx, sc.Id)
		if err != nil {
			s.logger.Warn("failed to load candidate entity", "entityId", sc.Id, "err", err)
			monitor.CandidateRejected(sc.Id, "load failed")
			continue
		}
		if entity == nil {
			s.logger.Warn("embedding without entity", "entityId", sc.Id)
			monitor.CandidateRejected(sc.Id, "missing entity")
			continue
		}

		if !entity.Searchable {
			monitor.CandidateRejected(sc.Id, "not searchable")
			continue
		}

		pass, err := s.engine.EvaluateFilters(entity, query.Filters, query.RequesterId, query.EnforcePrivacy)
		if err != nil {
			s.logger.Warn("failed to evaluate filters for candidate", "entityId", sc.Id, "err", err)
			monitor.CandidateRejected(sc.Id, "filter evaluation failed")
			continue
		}
		if !pass {
			monitor.CandidateRejected(sc.Id, "attribute filters")
			continue
		}

		if !metadataMatches(entity, query.Metadata) {
			monitor.CandidateRejected(sc.Id, "metadata mismatch")
			continue
		}

		match := &core.EntityMatch{
			EntityId:          sc.Id,
			Score:             sc.Score,
			MatchedAttributes: s.engine.MatchedAttributes(entity, query.Filters, query.RequesterId, query.EnforcePrivacy),
			DisplayName:       entity.DisplayName,
			UpdatedAt:         entity.UpdatedAt,
		}
		if query.IncludeFull {
			match.Entity = entity
		}
		matches = append(matches, match)
	}

	return matches, scanned
}

// metadataMatches checks the metadata-map equality constraint: every
// key must resolve on the entity and compare equal under filter
// semantics (nested maps, widened numerics, case-folded strings).
func metadataMatches(entity *core.Entity, constraints map[string]any) bool {
	for key, want := range constraints {
		got, present := filter.ResolveField(entity, key)
		if !present || !filter.ValuesEqual(got, want) {
			return false
		}
	}
	return true
}

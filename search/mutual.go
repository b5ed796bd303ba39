package search

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/semblance/core"
)

const (
	// DefaultMutualLimit caps mutual-match results when unset.
	DefaultMutualLimit = 50

	// DefaultMutualMinSimilarity is the threshold both legs of a mutual
	// match must clear when the query does not set one.
	DefaultMutualMinSimilarity = 0.8

	// DefaultReverseWindow is how many reverse results are inspected for
	// the origin entity. The origin must rank inside this window of the
	// candidate's own results for the match to count as mutual.
	DefaultReverseWindow = 100

	// forwardOverFetchFactor scales the forward search beyond the
	// requested limit. Most forward hits fail the reverse check, so the
	// forward leg over-fetches more aggressively than a one-way search.
	forwardOverFetchFactor = 3
)

// EntitySearcher is the similarity lookup the Matcher runs its forward
// and reverse legs on. *Searcher implements it.
type EntitySearcher interface {
	FindSimilarToEntity(ctx context.Context, entityId core.ID, query Query) (*Result, error)
}

var _ EntitySearcher = (*Searcher)(nil)

// MutualQuery is the caller-tunable part of a mutual-match resolution.
type MutualQuery struct {
	// MinSimilarity is the threshold both directions must clear.
	// Defaults to DefaultMutualMinSimilarity.
	MinSimilarity float32

	// TargetKind restricts candidates to one entity kind when non-empty.
	TargetKind string

	// Limit caps the number of returned pairs. Defaults to DefaultMutualLimit.
	Limit int

	// RequesterId identifies who is searching, for privacy enforcement.
	RequesterId core.ID

	// EnforcePrivacy applies per-field visibility rules during filtering.
	EnforcePrivacy bool
}

func (q MutualQuery) normalized() MutualQuery {
	if q.MinSimilarity <= 0 {
		q.MinSimilarity = DefaultMutualMinSimilarity
	}
	if q.Limit <= 0 {
		q.Limit = DefaultMutualLimit
	}
	return q
}

// MutualResultMetadata describes how a mutual-match resolution was executed.
type MutualResultMetadata struct {
	CandidatesEvaluated int
	ReverseLookups      int
	Duration            time.Duration
	MinSimilarity       float32
}

// MutualResult is a completed mutual-match resolution.
type MutualResult struct {
	Matches            []*core.MutualMatch
	TotalMutualMatches int
	Metadata           MutualResultMetadata
}

// Matcher resolves mutual matches: pairs of entities that each rank the
// other above a similarity threshold. Reverse lookups run concurrently
// on a bounded worker pool.
type Matcher struct {
	searcher      EntitySearcher
	pool          *ants.Pool
	reverseWindow int
	logger        *slog.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher) error

// WithMatcherLogger sets a custom logger.
// Default is slog.Default().
func WithMatcherLogger(logger *slog.Logger) MatcherOption {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithReverseWindow sets how many reverse results are inspected for the
// origin entity. Default is DefaultReverseWindow.
func WithReverseWindow(window int) MatcherOption {
	return func(m *Matcher) error {
		if window > 0 {
			m.reverseWindow = window
		}
		return nil
	}
}

// WithPoolSize sets the number of concurrent reverse lookups.
// Default is runtime.NumCPU().
func WithPoolSize(size int) MatcherOption {
	return func(m *Matcher) error {
		if size <= 0 {
			return nil
		}
		if m.pool != nil {
			m.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		m.pool = pool
		return nil
	}
}

// NewMatcher creates a mutual-match resolver over the given searcher.
// Call Release when done to free the worker pool.
func NewMatcher(searcher EntitySearcher, opts ...MatcherOption) (*Matcher, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		searcher:      searcher,
		pool:          pool,
		reverseWindow: DefaultReverseWindow,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			m.pool.Release()
			return nil, err
		}
	}

	return m, nil
}

// Release frees the worker pool. The matcher must not be used after.
func (m *Matcher) Release() {
	m.pool.Release()
}

// FindMutualMatches finds entities that the given entity ranks above
// the threshold and that rank the given entity back within the reverse
// window. MutualScore is the mean of the two directional scores.
//
// Reverse lookup failures exclude the candidate and are logged; they
// never fail the whole resolution.
func (m *Matcher) FindMutualMatches(ctx context.Context, entityId core.ID, query MutualQuery) (*MutualResult, error) {
	query = query.normalized()
	start := time.Now()

	forwardQuery := Query{
		Limit:          query.Limit * forwardOverFetchFactor,
		MinSimilarity:  query.MinSimilarity,
		RequesterId:    query.RequesterId,
		EnforcePrivacy: query.EnforcePrivacy,
	}
	if query.TargetKind != "" {
		forwardQuery.Filters = &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{{
				Field:    "kind",
				Operator: core.OpEquals,
				Value:    core.StringValue(query.TargetKind),
			}},
		}
	}

	forward, err := m.searcher.FindSimilarToEntity(ctx, entityId, forwardQuery)
	if err != nil {
		return nil, err
	}

	// One slot per candidate. Workers write only their own slot, so the
	// gather after Wait needs no locking.
	slots := make([]*core.MutualMatch, len(forward.Matches))
	var reverseLookups atomic.Int64
	var wg sync.WaitGroup

	for i, candidate := range forward.Matches {
		i, candidate := i, candidate
		wg.Add(1)
		task := func() {
			defer wg.Done()
			reverseLookups.Add(1)
			slots[i] = m.reverseCheck(ctx, entityId, candidate, query)
		}
		if err := m.pool.Submit(task); err != nil {
			wg.Done()
			m.logger.Warn("failed to submit reverse lookup", "candidateId", candidate.EntityId, "err", err)
		}
	}
	wg.Wait()

	matches := make([]*core.MutualMatch, 0, len(slots))
	for _, match := range slots {
		if match != nil {
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MutualScore > matches[j].MutualScore
	})
	if len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}

	return &MutualResult{
		Matches:            matches,
		TotalMutualMatches: len(matches),
		Metadata: MutualResultMetadata{
			CandidatesEvaluated: len(forward.Matches),
			ReverseLookups:      int(reverseLookups.Load()),
			Duration:            time.Since(start),
			MinSimilarity:       query.MinSimilarity,
		},
	}, nil
}

// reverseCheck runs one candidate's reverse search and returns the
// mutual match if the origin appears in the candidate's results.
func (m *Matcher) reverseCheck(ctx context.Context, originId core.ID, candidate *core.EntityMatch, query MutualQuery) *core.MutualMatch {
	reverse, err := m.searcher.FindSimilarToEntity(ctx, candidate.EntityId, Query{
		Limit:          m.reverseWindow,
		MinSimilarity:  query.MinSimilarity,
		RequesterId:    query.RequesterId,
		EnforcePrivacy: query.EnforcePrivacy,
	})
	if err != nil {
		m.logger.Warn("reverse lookup failed", "candidateId", candidate.EntityId, "err", err)
		return nil
	}

	for _, hit := range reverse.Matches {
		if hit.EntityId != originId {
			continue
		}
		return &core.MutualMatch{
			EntityId:          originId,
			OtherId:           candidate.EntityId,
			ForwardScore:      candidate.Score,
			ReverseScore:      hit.Score,
			MutualScore:       (candidate.Score + hit.Score) / 2,
			DetectedAt:        time.Now().UTC(),
			MatchedAttributes: candidate.MatchedAttributes,
		}
	}
	return nil
}

package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/semblance/ai"
	"github.com/poiesic/semblance/core"
	"github.com/poiesic/semblance/storage"
)

// DefaultMaxRetries is how many failed generation attempts a record may
// accumulate before Reindex stops retrying it.
const DefaultMaxRetries = 3

// Pipeline orchestrates entity ingestion and embedding generation.
// Entities are stored synchronously; embedding generation runs on a
// bounded worker pool so ingestion never blocks on the AI service.
type Pipeline struct {
	entityRepository    storage.EntityRepository
	embeddingRepository storage.EmbeddingRepository
	embedder            ai.Embedder
	pool                *ants.Pool
	model               string
	maxRetries          int
	synchronous         bool
	logger              *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
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

// WithModel records the embedding model name on generated records.
func WithModel(model string) Option {
	return func(p *Pipeline) error {
		p.model = model
		return nil
	}
}

// WithSynchronous processes embeddings inline instead of on the worker
// pool. Intended for one-shot command line use, where the process would
// otherwise exit before async generation completes.
func WithSynchronous() Option {
	return func(p *Pipeline) error {
		p.synchronous = true
		return nil
	}
}

// WithMaxRetries sets the retry cap for failed embedding records.
// Default is DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(p *Pipeline) error {
		if n > 0 {
			p.maxRetries = n
		}
		return nil
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	entityRepository storage.EntityRepository,
	embeddingRepository storage.EmbeddingRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if entityRepository == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if embeddingRepository == nil {
		return nil, ErrEmbeddingRepositoryRequired
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
		entityRepository:    entityRepository,
		embeddingRepository: embeddingRepository,
		embedder:            provider.Embedder(),
		pool:                pool,
		maxRetries:          DefaultMaxRetries,
		logger:              slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest stores entities and schedules embedding generation for them.
// Storage is synchronous; embedding generation is asynchronous and its
// failures are logged and recorded on the embedding records, never
// returned from Ingest.
func (p *Pipeline) Ingest(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	added, err := p.entityRepository.AddEntities(ctx, entities...)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return added, nil
	}

	ids := make([]core.ID, len(added))
	pending := make([]*core.EmbeddingRecord, len(added))
	for i, entity := range added {
		ids[i] = entity.Id
		pending[i] = &core.EmbeddingRecord{
			EntityId: entity.Id,
			Status:   core.EmbeddingPending,
			Model:    p.model,
		}
	}
	if err := p.embeddingRepository.PutEmbeddings(ctx, pending...); err != nil {
		return nil, err
	}

	p.submit(ids)
	return added, nil
}

// Reindex re-runs embedding generation for every record that is pending
// or failed below the retry cap. Call it after switching embedding
// models or recovering from an AI service outage.
func (p *Pipeline) Reindex(ctx context.Context) (int, error) {
	var ids []core.ID

	pending, err := p.embeddingRepository.GetEmbeddingsByStatus(ctx, core.EmbeddingPending, 0)
	if err != nil {
		return 0, err
	}
	for _, record := range pending {
		ids = append(ids, record.EntityId)
	}

	failed, err := p.embeddingRepository.GetEmbeddingsByStatus(ctx, core.EmbeddingFailed, 0)
	if err != nil {
		return 0, err
	}
	for _, record := range failed {
		if record.RetryCount >= p.maxRetries {
			p.logger.Warn("skipping embedding past retry cap",
				"entityId", record.EntityId, "retries", record.RetryCount)
			continue
		}
		ids = append(ids, record.EntityId)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	p.logger.Info("reindexing embeddings", "records", len(ids))
	if err := p.process(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// submit queues asynchronous embedding generation for the given ids.
func (p *Pipeline) submit(ids []core.ID) {
	if p.synchronous {
		if err := p.process(context.Background(), ids); err != nil {
			p.logger.Error("error processing embeddings", "err", err)
		}
		return
	}
	err := p.pool.Submit(func() {
		if err := p.process(context.Background(), ids); err != nil {
			p.logger.Error("error processing embeddings", "err", err)
		}
	})
	if err != nil {
		// Records stay Pending; Reindex will pick them up.
		p.logger.Warn("failed to submit embedding batch", "records", len(ids), "err", err)
	}
}

// process embeds the entities in one batch and stores the outcome. A
// batch-level failure marks every record failed with the error message
// so Reindex can pick them up later.
func (p *Pipeline) process(ctx context.Context, ids []core.ID) error {
	entities, err := p.entityRepository.GetEntities(ctx, ids...)
	if err != nil {
		p.logger.Error("error retrieving entities for embedding", "err", err)
		return err
	}

	texts := make([]string, len(entities))
	for i, entity := range entities {
		texts[i] = EmbeddingText(entity)
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		p.logger.Error("error generating embeddings", "count", len(texts), "err", err)
		return p.markFailed(ctx, entities, err)
	}
	if len(vectors) != len(entities) {
		err := fmt.Errorf("embedding result mismatch. expected %d, received %d", len(entities), len(vectors))
		return p.markFailed(ctx, entities, err)
	}

	records := make([]*core.EmbeddingRecord, len(entities))
	now := time.Now().UTC()
	for i, entity := range entities {
		records[i] = &core.EmbeddingRecord{
			EntityId:    entity.Id,
			Vector:      vectors[i],
			Dimensions:  len(vectors[i]),
			Status:      core.EmbeddingGenerated,
			Model:       p.model,
			GeneratedAt: now,
		}
	}
	return p.embeddingRepository.PutEmbeddings(ctx, records...)
}

// markFailed records a generation failure on every entity in the batch,
// preserving and incrementing prior retry counts.
func (p *Pipeline) markFailed(ctx context.Context, entities []*core.Entity, cause error) error {
	records := make([]*core.EmbeddingRecord, 0, len(entities))
	for _, entity := range entities {
		retries := 0
		if prior, err := p.embeddingRepository.GetEmbedding(ctx, entity.Id); err == nil {
			retries = prior.RetryCount
		}
		records = append(records, &core.EmbeddingRecord{
			EntityId:   entity.Id,
			Status:     core.EmbeddingFailed,
			Model:      p.model,
			RetryCount: retries + 1,
			LastError:  cause.Error(),
		})
	}
	if err := p.embeddingRepository.PutEmbeddings(ctx, records...); err != nil {
		return err
	}
	return cause
}

// EmbeddingText renders an entity into the text that gets embedded: the
// display name, kind, and metadata flattened into sorted key/value
// lines so identical entities embed identically.
func EmbeddingText(entity *core.Entity) string {
	var b strings.Builder
	b.WriteString(entity.DisplayName)
	b.WriteString("\n")
	b.WriteString(entity.Kind)

	keys := make([]string, 0, len(entity.Metadata))
	for k := range entity.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, entity.Metadata[k])
	}
	return b.String()
}

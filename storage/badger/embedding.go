package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/semblance/core"
	"github.com/poiesic/semblance/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	return &EmbeddingRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EmbeddingRepository has no resources to release.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EmbeddingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutEmbeddings stores one or more embedding records, replacing any
// existing record for the same entity.
func (r *EmbeddingRepository) PutEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if err := core.ValidateEmbeddingRecord(record); err != nil {
				return err
			}

			key := makeEmbeddingKey(record.EntityId)
			value := storage.MarshalEmbedding(record)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEmbedding retrieves the embedding record for an entity.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, id core.ID) (*core.EmbeddingRecord, error) {
	var result *core.EmbeddingRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEmbeddingKey(id)
		var err error
		result, err = readEmbedding(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// DeleteEmbeddings removes embedding records by entity ID.
// Missing records are ignored.
func (r *EmbeddingRepository) DeleteEmbeddings(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeEmbeddingKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEmbeddingsByStatus retrieves embedding records with the given
// generation status. A limit <= 0 returns all matching records.
func (r *EmbeddingRepository) GetEmbeddingsByStatus(ctx context.Context, status core.EmbeddingStatus, limit int) ([]*core.EmbeddingRecord, error) {
	var results []*core.EmbeddingRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var record *core.EmbeddingRecord
			err := item.Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalEmbedding(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil || record.Status != status {
				continue
			}

			results = append(results, record)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)

	return results, err
}

// readEmbedding reads an embedding record from the transaction.
func readEmbedding(tx *badger.Txn, key []byte) (*core.EmbeddingRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.EmbeddingRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalEmbedding(val)
		return err
	})
	return record, err
}

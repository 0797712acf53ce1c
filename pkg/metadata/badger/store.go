package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// BadgerDocumentStore implements metadata.DocumentStore on top of BadgerDB.
//
// Every operation runs in a single badger transaction, so a record and its
// index entries are always written or removed together. There is no
// transaction spanning multiple DocumentStore calls.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use; the store holds no other
// mutable state.
type BadgerDocumentStore struct {
	db    *badger.DB
	clock func() time.Time
}

// BadgerDocumentStoreConfig configures the BadgerDB store.
type BadgerDocumentStoreConfig struct {
	// DBPath is the directory holding the database files.
	// Required unless InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database entirely in memory (useful for tests).
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB sets the block cache size. Default: 64MB.
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`

	// IndexCacheSizeMB sets the index cache size. Default: 32MB.
	IndexCacheSizeMB int64 `mapstructure:"index_cache_mb"`

	// Clock overrides the timestamp source. Defaults to time.Now in UTC.
	Clock func() time.Time `mapstructure:"-"`
}

// NewBadgerDocumentStore opens (or creates) a BadgerDB document store.
func NewBadgerDocumentStore(ctx context.Context, config BadgerDocumentStoreConfig) (*BadgerDocumentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if config.DBPath == "" && !config.InMemory {
		return nil, fmt.Errorf("badger document store: db_path is required")
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.DBPath)
	}

	// Records are small JSON documents; compression costs more than it saves.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	clock := config.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &BadgerDocumentStore{db: db, clock: clock}, nil
}

func (s *BadgerDocumentStore) Insert(ctx context.Context, e *metadata.Entity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	rec := metadata.PrepareInsert(e, id, s.clock())
	if err := metadata.ValidateEntity(rec); err != nil {
		return "", err
	}

	data, err := encodeEntity(rec)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyEntity(id), data); err != nil {
			return err
		}
		if err := txn.Set(keyOwnerIndex(rec.OwnerID, id), nil); err != nil {
			return err
		}
		return txn.Set(keyParentIndex(rec.OwnerID, rec.ParentID, id), nil)
	})
	if err != nil {
		return "", fmt.Errorf("badger insert %s: %w", id, err)
	}

	return id, nil
}

func (s *BadgerDocumentStore) Get(ctx context.Context, id string) (*metadata.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *metadata.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = loadEntity(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BadgerDocumentStore) Update(ctx context.Context, id string, patch metadata.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = s.clock()
	}

	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := loadEntity(txn, id)
		if err != nil {
			return err
		}

		patch.Apply(rec)
		if err := metadata.ValidateEntity(rec); err != nil {
			return err
		}

		data, err := encodeEntity(rec)
		if err != nil {
			return err
		}
		return txn.Set(keyEntity(id), data)
	})
}

func (s *BadgerDocumentStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := loadEntity(txn, id)
		if err != nil {
			return err
		}

		if err := txn.Delete(keyEntity(id)); err != nil {
			return err
		}
		if err := txn.Delete(keyOwnerIndex(rec.OwnerID, id)); err != nil {
			return err
		}
		return txn.Delete(keyParentIndex(rec.OwnerID, rec.ParentID, id))
	})
}

func (s *BadgerDocumentStore) Query(ctx context.Context, q metadata.Query) ([]*metadata.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	// The parent index is narrower whenever the query pins a parent.
	prefix := keyOwnerPrefix(q.OwnerID)
	if q.ParentID != nil {
		prefix = keyParentPrefix(q.OwnerID, *q.ParentID)
	}

	result := make([]*metadata.Entity, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			id := idFromIndexKey(it.Item().Key(), prefix)
			rec, err := loadEntity(txn, id)
			if err != nil {
				if metadata.IsNotFound(err) {
					// Dangling index entry; the record is gone.
					continue
				}
				return err
			}

			if q.Matches(rec) {
				result = append(result, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metadata.SortEntities(result, q.OrderBy)
	return result, nil
}

func (s *BadgerDocumentStore) Now(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	return s.clock(), nil
}

// ContentRefs scans every record and collects blob references.
func (s *BadgerDocumentStore) ContentRefs(ctx context.Context) (map[string]struct{}, error) {
	refs := make(map[string]struct{})

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixEntity)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := it.Item().Value(func(val []byte) error {
				rec, err := decodeEntity(val)
				if err != nil {
					return err
				}
				if rec.ContentRef != "" {
					refs[rec.ContentRef] = struct{}{}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// Close closes the underlying database.
func (s *BadgerDocumentStore) Close() error {
	return s.db.Close()
}

func loadEntity(txn *badger.Txn, id string) (*metadata.Entity, error) {
	item, err := txn.Get(keyEntity(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, metadata.NewNotFoundError(id)
		}
		return nil, fmt.Errorf("badger get %s: %w", id, err)
	}

	var rec *metadata.Entity
	err = item.Value(func(val []byte) error {
		var err error
		rec, err = decodeEntity(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// MemoryDocumentStore implements metadata.DocumentStore using in-memory maps.
//
// This implementation is suitable for:
//   - Testing and development environments
//   - Ephemeral deployments where persistence is not required
//
// Thread Safety:
// All operations are protected by a single read-write mutex, making the store
// safe for concurrent access from multiple goroutines.
//
// Storage Model:
//
// Records are kept in a map keyed by ID. A secondary index maps each owner to
// the set of IDs it owns so that queries never scan other owners' records.
// Stored records are never handed out directly: every read returns a clone.
type MemoryDocumentStore struct {
	mu sync.RWMutex

	entities map[string]*metadata.Entity
	byOwner  map[string]map[string]struct{}

	clock func() time.Time

	// failures injects errors per operation and id, for tests.
	failures map[failureKey]error
}

// MemoryDocumentStoreConfig configures the in-memory store.
type MemoryDocumentStoreConfig struct {
	// Clock overrides the timestamp source. Defaults to time.Now in UTC.
	Clock func() time.Time `mapstructure:"-"`
}

type failureKey struct {
	op string
	id string
}

// NewMemoryDocumentStore creates an empty in-memory document store.
func NewMemoryDocumentStore(config MemoryDocumentStoreConfig) *MemoryDocumentStore {
	clock := config.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &MemoryDocumentStore{
		entities: make(map[string]*metadata.Entity),
		byOwner:  make(map[string]map[string]struct{}),
		clock:    clock,
		failures: make(map[failureKey]error),
	}
}

// NewMemoryDocumentStoreWithDefaults creates an in-memory store using the
// system clock.
func NewMemoryDocumentStoreWithDefaults() *MemoryDocumentStore {
	return NewMemoryDocumentStore(MemoryDocumentStoreConfig{})
}

// FailOn makes every call of op ("get", "update", "delete", "query") on id
// fail with err. For "query" the id is the queried
// parent ID. Passing a nil err clears the injection.
func (s *MemoryDocumentStore) FailOn(op, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := failureKey{op: op, id: id}
	if err == nil {
		delete(s.failures, key)
		return
	}
	s.failures[key] = err
}

func (s *MemoryDocumentStore) injected(op, id string) error {
	return s.failures[failureKey{op: op, id: id}]
}

// Insert stores a clone of e under a freshly generated UUID.
func (s *MemoryDocumentStore) Insert(ctx context.Context, e *metadata.Entity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	rec := metadata.PrepareInsert(e, id, s.clock())
	if err := metadata.ValidateEntity(rec); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities[id] = rec
	owned, ok := s.byOwner[rec.OwnerID]
	if !ok {
		owned = make(map[string]struct{})
		s.byOwner[rec.OwnerID] = owned
	}
	owned[id] = struct{}{}

	return id, nil
}

func (s *MemoryDocumentStore) Get(ctx context.Context, id string) (*metadata.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected("get", id); err != nil {
		return nil, err
	}

	rec, ok := s.entities[id]
	if !ok {
		return nil, metadata.NewNotFoundError(id)
	}
	return rec.Clone(), nil
}

func (s *MemoryDocumentStore) Update(ctx context.Context, id string, patch metadata.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("update", id); err != nil {
		return err
	}

	rec, ok := s.entities[id]
	if !ok {
		return metadata.NewNotFoundError(id)
	}

	updated := rec.Clone()
	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = s.clock()
	}
	patch.Apply(updated)
	if err := metadata.ValidateEntity(updated); err != nil {
		return err
	}

	s.entities[id] = updated
	return nil
}

func (s *MemoryDocumentStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("delete", id); err != nil {
		return err
	}

	rec, ok := s.entities[id]
	if !ok {
		return metadata.NewNotFoundError(id)
	}

	delete(s.entities, id)
	if owned, ok := s.byOwner[rec.OwnerID]; ok {
		delete(owned, id)
		if len(owned) == 0 {
			delete(s.byOwner, rec.OwnerID)
		}
	}
	return nil
}

func (s *MemoryDocumentStore) Query(ctx context.Context, q metadata.Query) ([]*metadata.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if q.ParentID != nil {
		if err := s.injected("query", *q.ParentID); err != nil {
			return nil, err
		}
	}

	result := make([]*metadata.Entity, 0)
	for id := range s.byOwner[q.OwnerID] {
		rec := s.entities[id]
		if q.Matches(rec) {
			result = append(result, rec.Clone())
		}
	}

	metadata.SortEntities(result, q.OrderBy)
	return result, nil
}

func (s *MemoryDocumentStore) Now(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	return s.clock(), nil
}

// ContentRefs returns every blob reference held by any record.
func (s *MemoryDocumentStore) ContentRefs(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make(map[string]struct{})
	for _, rec := range s.entities {
		if rec.ContentRef != "" {
			refs[rec.ContentRef] = struct{}{}
		}
	}
	return refs, nil
}

// Len returns the number of stored records.
func (s *MemoryDocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Put stores e verbatim, bypassing ID generation and validation.
//
// Intended for tests that need to construct corrupt trees (for example
// parent cycles) which Insert would never produce.
func (s *MemoryDocumentStore) Put(e *metadata.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := e.Clone()
	s.entities[rec.ID] = rec
	owned, ok := s.byOwner[rec.OwnerID]
	if !ok {
		owned = make(map[string]struct{})
		s.byOwner[rec.OwnerID] = owned
	}
	owned[rec.ID] = struct{}{}
}

func (s *MemoryDocumentStore) Close() error {
	return nil
}

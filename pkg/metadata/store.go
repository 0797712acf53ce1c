package metadata

import (
	"context"
	"sort"
	"strings"
	"time"
)

// DocumentStore is the durable home of entity records.
//
// It is a plain document repository: it knows nothing about hierarchy,
// ownership checks or cascades. Those live in the drive, hierarchy and
// cascade packages, which talk to the store one call at a time. There is no
// transaction spanning multiple calls.
//
// Implementations must:
//   - Assign a fresh, opaque ID on Insert
//   - Validate records with ValidateEntity before persisting them
//   - Return a StoreError with code ErrNotFound for unknown ids
//   - Return copies, so callers can mutate results freely
//   - Be safe for concurrent use
type DocumentStore interface {
	// Insert stores a new record and returns its assigned ID.
	//
	// The ID field of e is ignored and overwritten. CreatedAt and UpdatedAt are
	// filled from Now when zero.
	Insert(ctx context.Context, e *Entity) (string, error)

	// Get returns the record with the given ID.
	//
	// Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Entity, error)

	// Update applies a partial update to an existing record.
	//
	// Returns ErrNotFound if absent.
	Update(ctx context.Context, id string, patch Patch) error

	// Delete removes the record with the given ID.
	//
	// Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Query returns all records matching q, ordered by q.OrderBy.
	Query(ctx context.Context, q Query) ([]*Entity, error)

	// Now returns the store's notion of the current time. All createdAt,
	// updatedAt and deletedAt values come from here.
	Now(ctx context.Context) (time.Time, error)

	// Close releases resources held by the store.
	Close() error
}

// ContentRefLister is implemented by stores that can enumerate every blob
// reference they hold across all owners. Used by the orphan collector.
type ContentRefLister interface {
	ContentRefs(ctx context.Context) (map[string]struct{}, error)
}

// Order selects the ordering of Query results.
type Order int

const (
	// OrderNone returns results in creation order.
	OrderNone Order = iota

	// OrderKindName puts folders before files, then sorts by name ascending.
	OrderKindName

	// OrderUpdatedDesc sorts by UpdatedAt, most recent first.
	OrderUpdatedDesc

	// OrderDeletedDesc sorts by DeletedAt, most recent first.
	OrderDeletedDesc
)

// Query selects records by equality predicates.
//
// OwnerID is mandatory. Nil pointers mean "any value". A ParentID pointing at
// the empty string selects root-level entities.
type Query struct {
	OwnerID  string
	ParentID *string
	Starred  *bool
	InTrash  *bool
	OrderBy  Order
}

// Validate rejects queries without an owner.
func (q Query) Validate() error {
	if q.OwnerID == "" {
		return NewInvalidArgumentError("query requires an owner id")
	}
	return nil
}

// Matches reports whether e satisfies every predicate of q.
func (q Query) Matches(e *Entity) bool {
	if e.OwnerID != q.OwnerID {
		return false
	}
	if q.ParentID != nil && e.ParentID != *q.ParentID {
		return false
	}
	if q.Starred != nil && e.Starred != *q.Starred {
		return false
	}
	if q.InTrash != nil && e.InTrash != *q.InTrash {
		return false
	}
	return true
}

// SortEntities orders entities in place according to order.
//
// Ties are broken by ID so that every backend returns the same sequence.
func SortEntities(entities []*Entity, order Order) {
	switch order {
	case OrderNone:
		sort.SliceStable(entities, func(i, j int) bool {
			a, b := entities[i], entities[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
	case OrderKindName:
		sort.SliceStable(entities, func(i, j int) bool {
			a, b := entities[i], entities[j]
			if a.IsFolder() != b.IsFolder() {
				return a.IsFolder()
			}
			if c := strings.Compare(a.Name, b.Name); c != 0 {
				return c < 0
			}
			return a.ID < b.ID
		})
	case OrderUpdatedDesc:
		sort.SliceStable(entities, func(i, j int) bool {
			a, b := entities[i], entities[j]
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return a.ID < b.ID
		})
	case OrderDeletedDesc:
		sort.SliceStable(entities, func(i, j int) bool {
			a, b := deletedAt(entities[i]), deletedAt(entities[j])
			if !a.Equal(b) {
				return a.After(b)
			}
			return entities[i].ID < entities[j].ID
		})
	}
}

func deletedAt(e *Entity) time.Time {
	if e.DeletedAt == nil {
		return time.Time{}
	}
	return *e.DeletedAt
}

// PrepareInsert fills server-side fields of a record about to be inserted.
//
// Shared by backends so that every implementation stamps records the same way.
func PrepareInsert(e *Entity, id string, now time.Time) *Entity {
	rec := e.Clone()
	rec.ID = id
	rec.Name = NormalizeName(rec.Name)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	return rec
}

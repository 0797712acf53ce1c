package hierarchy

import "github.com/marmos91/dittodrive/pkg/metadata"

// Forest is an in-memory view of one owner's entities keyed by id.
//
// It answers the same ancestry questions as Resolver without repository
// round trips, for callers that already hold the whole set. A Forest is not
// safe for concurrent use; callers that mutate it guard it themselves.
type Forest struct {
	byID     map[string]*metadata.Entity
	maxDepth int
}

// NewForest indexes entities. maxDepth <= 0 selects DefaultMaxDepth.
func NewForest(entities []*metadata.Entity, maxDepth int) *Forest {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	f := &Forest{byID: make(map[string]*metadata.Entity, len(entities)), maxDepth: maxDepth}
	for _, e := range entities {
		f.byID[e.ID] = e
	}
	return f
}

// Put inserts or replaces e.
func (f *Forest) Put(e *metadata.Entity) {
	f.byID[e.ID] = e
}

// Remove drops id. Unknown ids are ignored.
func (f *Forest) Remove(id string) {
	delete(f.byID, id)
}

// Get returns the entity stored under id.
func (f *Forest) Get(id string) (*metadata.Entity, bool) {
	e, ok := f.byID[id]
	return e, ok
}

// Len returns the number of entities.
func (f *Forest) Len() int {
	return len(f.byID)
}

// Each calls fn for every entity in unspecified order.
func (f *Forest) Each(fn func(*metadata.Entity)) {
	for _, e := range f.byID {
		fn(e)
	}
}

// EffectivelyTrashed reports whether id or any ancestor of it is in trash.
// Unknown ids are not trashed.
func (f *Forest) EffectivelyTrashed(id string) bool {
	visited := make(map[string]struct{})

	for depth := 0; id != "" && depth < f.maxDepth; depth++ {
		if _, seen := visited[id]; seen {
			return false
		}
		visited[id] = struct{}{}

		e, ok := f.byID[id]
		if !ok {
			return false
		}
		if e.InTrash {
			return true
		}
		id = e.ParentID
	}
	return false
}

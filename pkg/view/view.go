// Package view computes the displayed sequence of entities from a listing.
//
// Project is pure: it never mutates its input and depends only on its
// arguments, including the evaluation instant.
package view

import (
	"sort"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Options controls a projection.
type Options struct {
	// OwnerID, when set, drops entities of any other owner.
	OwnerID string

	// SearchResults replaces the base set when non-nil. An empty non-nil
	// slice is an active search with no hits.
	SearchResults []*metadata.Entity

	Filter Filter
	SortBy SortKey
	Order  SortOrder

	// Now is the instant recency buckets are measured from. Zero means
	// time.Now().
	Now time.Time

	// Locale drives name collation. Zero means language.Und.
	Locale language.Tag
}

// Project filters and sorts entities according to opts.
//
// Folders always precede files. Within a kind, entities are ordered by
// opts.SortBy in opts.Order; equal keys keep their input order.
func Project(entities []*metadata.Entity, opts Options) []*metadata.Entity {
	src := entities
	if opts.SearchResults != nil {
		src = opts.SearchResults
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	threshold, bounded := opts.Filter.Date.Threshold(now)

	out := make([]*metadata.Entity, 0, len(src))
	for _, e := range src {
		if e == nil {
			continue
		}
		if opts.OwnerID != "" && e.OwnerID != opts.OwnerID {
			continue
		}
		if !opts.Filter.Kind.Matches(e) {
			continue
		}
		if bounded && e.UpdatedAt.Before(threshold) {
			continue
		}
		out = append(out, e)
	}

	compare := comparator(opts.SortBy, opts.Locale)
	desc := opts.Order == Descending

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsFolder() != b.IsFolder() {
			return a.IsFolder()
		}
		c := compare(a, b)
		if desc {
			c = -c
		}
		return c < 0
	})
	return out
}

func comparator(key SortKey, locale language.Tag) func(a, b *metadata.Entity) int {
	switch key {
	case SortBySize:
		return func(a, b *metadata.Entity) int {
			return cmpInt64(sizeOf(a), sizeOf(b))
		}
	case SortByUpdatedAt:
		return func(a, b *metadata.Entity) int {
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
	default:
		// Collators are not safe for concurrent use; one per projection.
		col := collate.New(locale)
		return func(a, b *metadata.Entity) int {
			return col.CompareString(a.Name, b.Name)
		}
	}
}

func sizeOf(e *metadata.Entity) int64 {
	if e.IsFolder() {
		return 0
	}
	return e.SizeBytes
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

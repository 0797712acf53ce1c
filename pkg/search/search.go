// Package search finds entities by case-insensitive substring.
//
// A term matches an entity when it occurs in the entity's name or in its kind
// label ("file", "folder"). Entities in trash, or below a trashed folder, are
// never returned. Results are ordered by creation time; callers sort for
// display through the view package.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"golang.org/x/text/cases"
)

// Searcher answers search queries for one owner at a time.
type Searcher interface {
	Search(ctx context.Context, ownerID, term string) ([]*metadata.Entity, error)
}

// Mode selects the Searcher implementation.
type Mode string

const (
	// ModeScan re-reads the owner's records on every query.
	ModeScan Mode = "scan"

	// ModeIndex keeps an incrementally maintained per-owner index.
	ModeIndex Mode = "index"
)

// Config configures the search component.
type Config struct {
	Mode Mode `mapstructure:"mode" validate:"omitempty,oneof=scan index" yaml:"mode"`
}

// New builds the Searcher selected by cfg.Mode (index by default).
func New(cfg Config, store metadata.DocumentStore, maxDepth int, m metrics.DriveMetrics) (Searcher, error) {
	switch cfg.Mode {
	case ModeScan:
		return NewScanner(store, maxDepth, m), nil
	case ModeIndex, "":
		return NewIndex(store, maxDepth, m), nil
	default:
		return nil, fmt.Errorf("unknown search mode: %q", cfg.Mode)
	}
}

// fold normalizes text for caseless comparison.
func fold(s string) string {
	return cases.Fold().String(s)
}

// matches reports whether the folded term occurs in the folded name or in
// the kind label.
func matches(foldedName string, kind metadata.Kind, foldedTerm string) bool {
	return strings.Contains(foldedName, foldedTerm) || strings.Contains(string(kind), foldedTerm)
}

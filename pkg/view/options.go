package view

import (
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// KindFilter narrows a projection by entity kind.
type KindFilter string

const (
	KindAll    KindFilter = "all"
	KindFile   KindFilter = "file"
	KindFolder KindFilter = "folder"
)

// Matches reports whether e passes the filter. The zero value passes all.
func (k KindFilter) Matches(e *metadata.Entity) bool {
	switch k {
	case KindFile:
		return e.Kind == metadata.KindFile
	case KindFolder:
		return e.Kind == metadata.KindFolder
	default:
		return true
	}
}

// DateFilter narrows a projection by UpdatedAt recency.
type DateFilter string

const (
	DateAll       DateFilter = "all"
	DateLastDay   DateFilter = "lastDay"
	DateLastWeek  DateFilter = "lastWeek"
	DateLastMonth DateFilter = "lastMonth"
)

// Threshold returns the oldest UpdatedAt admitted at now, and false when the
// filter admits everything.
func (d DateFilter) Threshold(now time.Time) (time.Time, bool) {
	switch d {
	case DateLastDay:
		return now.Add(-24 * time.Hour), true
	case DateLastWeek:
		return now.Add(-7 * 24 * time.Hour), true
	case DateLastMonth:
		return now.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}

// Filter combines the kind and recency filters.
type Filter struct {
	Kind KindFilter
	Date DateFilter
}

// SortKey selects the within-kind ordering.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortBySize      SortKey = "size"
	SortByUpdatedAt SortKey = "updatedAt"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseKindFilter validates s. The empty string selects KindAll.
func ParseKindFilter(s string) (KindFilter, error) {
	switch k := KindFilter(s); k {
	case "":
		return KindAll, nil
	case KindAll, KindFile, KindFolder:
		return k, nil
	default:
		return "", metadata.NewInvalidArgumentError("unknown kind filter %q", s)
	}
}

// ParseDateFilter validates s. The empty string selects DateAll.
func ParseDateFilter(s string) (DateFilter, error) {
	switch d := DateFilter(s); d {
	case "":
		return DateAll, nil
	case DateAll, DateLastDay, DateLastWeek, DateLastMonth:
		return d, nil
	default:
		return "", metadata.NewInvalidArgumentError("unknown date filter %q", s)
	}
}

// ParseSortKey validates s. The empty string selects SortByName.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortByName, nil
	case SortByName, SortBySize, SortByUpdatedAt:
		return k, nil
	default:
		return "", metadata.NewInvalidArgumentError("unknown sort key %q", s)
	}
}

// ParseSortOrder validates s. The empty string selects Ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return Ascending, nil
	case Ascending, Descending:
		return o, nil
	default:
		return "", metadata.NewInvalidArgumentError("unknown sort order %q", s)
	}
}

package view

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func file(id, name string, size int64, updated time.Time) *metadata.Entity {
	return &metadata.Entity{ID: id, Name: name, Kind: metadata.KindFile, OwnerID: "u1", SizeBytes: size, UpdatedAt: updated}
}

func folder(id, name string, updated time.Time) *metadata.Entity {
	return &metadata.Entity{ID: id, Name: name, Kind: metadata.KindFolder, OwnerID: "u1", UpdatedAt: updated}
}

func ids(entities []*metadata.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}

func sample() []*metadata.Entity {
	return []*metadata.Entity{
		file("f1", "zeta.txt", 300, now.Add(-2*time.Hour)),
		folder("d1", "Reports", now.Add(-10*24*time.Hour)),
		file("f2", "alpha.pdf", 100, now.Add(-3*24*time.Hour)),
		folder("d2", "archive", now.Add(-40*24*time.Hour)),
		file("f3", "Beta.png", 200, now.Add(-20*24*time.Hour)),
	}
}

func TestProject_Sorting(t *testing.T) {
	tests := []struct {
		name  string
		key   SortKey
		order SortOrder
		want  []string
	}{
		{"name asc", SortByName, Ascending, []string{"d2", "d1", "f2", "f3", "f1"}},
		{"name desc", SortByName, Descending, []string{"d1", "d2", "f1", "f3", "f2"}},
		{"size asc", SortBySize, Ascending, []string{"d1", "d2", "f2", "f3", "f1"}},
		{"size desc", SortBySize, Descending, []string{"d1", "d2", "f1", "f3", "f2"}},
		{"updated asc", SortByUpdatedAt, Ascending, []string{"d2", "d1", "f3", "f2", "f1"}},
		{"updated desc", SortByUpdatedAt, Descending, []string{"d1", "d2", "f1", "f2", "f3"}},
		{"defaults", "", "", []string{"d2", "d1", "f2", "f3", "f1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(sample(), Options{SortBy: tt.key, Order: tt.order, Now: now})
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestProject_KindFilter(t *testing.T) {
	files := Project(sample(), Options{Filter: Filter{Kind: KindFile}, Now: now})
	assert.Equal(t, []string{"f2", "f3", "f1"}, ids(files))

	folders := Project(sample(), Options{Filter: Filter{Kind: KindFolder}, Now: now})
	assert.Equal(t, []string{"d2", "d1"}, ids(folders))
}

func TestProject_DateFilter(t *testing.T) {
	tests := []struct {
		filter DateFilter
		want   []string
	}{
		{DateAll, []string{"d2", "d1", "f2", "f3", "f1"}},
		{DateLastDay, []string{"f1"}},
		{DateLastWeek, []string{"f2", "f1"}},
		{DateLastMonth, []string{"d1", "f2", "f3", "f1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			got := Project(sample(), Options{Filter: Filter{Date: tt.filter}, Now: now})
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestProject_DateBoundaryInclusive(t *testing.T) {
	edge := file("e", "edge", 1, now.Add(-24*time.Hour))
	got := Project([]*metadata.Entity{edge}, Options{Filter: Filter{Date: DateLastDay}, Now: now})
	assert.Len(t, got, 1)
}

func TestProject_LastMonthIsCalendar(t *testing.T) {
	// March 31 minus one calendar month normalizes to March 2.
	march1 := file("m", "m", 1, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	march3 := file("n", "n", 1, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC))

	got := Project([]*metadata.Entity{march1, march3}, Options{Filter: Filter{Date: DateLastMonth}, Now: now})
	assert.Equal(t, []string{"n"}, ids(got))
}

func TestProject_SearchSupersedes(t *testing.T) {
	hits := []*metadata.Entity{file("s1", "report-final.txt", 1, now), folder("s2", "Reports", now)}

	got := Project(sample(), Options{SearchResults: hits, Now: now})
	assert.Equal(t, []string{"s2", "s1"}, ids(got))

	empty := Project(sample(), Options{SearchResults: []*metadata.Entity{}, Now: now})
	assert.Empty(t, empty, "an active search with no hits shows nothing")
}

func TestProject_OwnerFilter(t *testing.T) {
	foreign := file("x", "theirs", 1, now)
	foreign.OwnerID = "u2"

	got := Project(append(sample(), foreign), Options{OwnerID: "u1", Now: now})
	for _, e := range got {
		assert.Equal(t, "u1", e.OwnerID)
	}
	assert.Len(t, got, 5)
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	in := sample()
	before := ids(in)

	_ = Project(in, Options{SortBy: SortBySize, Order: Descending, Now: now})
	assert.Equal(t, before, ids(in))
}

func TestProject_StableTies(t *testing.T) {
	in := []*metadata.Entity{
		file("a", "same", 10, now),
		file("b", "same", 10, now),
		file("c", "same", 10, now),
	}

	for _, key := range []SortKey{SortByName, SortBySize, SortByUpdatedAt} {
		for _, order := range []SortOrder{Ascending, Descending} {
			got := Project(in, Options{SortBy: key, Order: order, Now: now})
			assert.Equal(t, []string{"a", "b", "c"}, ids(got), "%s %s", key, order)
		}
	}
}

func TestProject_LocaleCollation(t *testing.T) {
	in := []*metadata.Entity{
		file("z", "zebra", 1, now),
		file("e", "éclair", 1, now),
		file("B", "Banana", 1, now),
		file("a", "apple", 1, now),
	}

	got := Project(in, Options{Locale: language.English, Now: now})
	assert.Equal(t, []string{"a", "B", "e", "z"}, ids(got))
}

func TestProject_FoldersAlwaysFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		var in []*metadata.Entity
		n := 2 + rng.Intn(20)
		for i := 0; i < n; i++ {
			updated := now.Add(-time.Duration(rng.Intn(1000)) * time.Hour)
			name := fmt.Sprintf("n%03d", rng.Intn(500))
			if rng.Intn(2) == 0 {
				in = append(in, folder(fmt.Sprint(i), name, updated))
			} else {
				in = append(in, file(fmt.Sprint(i), name, rng.Int63n(1<<20), updated))
			}
		}
		// Guarantee a mixed set.
		in = append(in, folder("df", "zz", now), file("ff", "aa", 0, now))

		for _, key := range []SortKey{SortByName, SortBySize, SortByUpdatedAt} {
			for _, order := range []SortOrder{Ascending, Descending} {
				got := Project(in, Options{SortBy: key, Order: order, Now: now})
				require.Len(t, got, len(in))

				seenFile := false
				for _, e := range got {
					if !e.IsFolder() {
						seenFile = true
						continue
					}
					require.False(t, seenFile, "folder after file with %s %s", key, order)
				}
			}
		}
	}
}

func TestParse(t *testing.T) {
	k, err := ParseKindFilter("")
	require.NoError(t, err)
	assert.Equal(t, KindAll, k)

	_, err = ParseKindFilter("video")
	assert.True(t, metadata.IsInvalidArgument(err))

	d, err := ParseDateFilter("lastWeek")
	require.NoError(t, err)
	assert.Equal(t, DateLastWeek, d)

	_, err = ParseDateFilter("yesterday")
	assert.True(t, metadata.IsInvalidArgument(err))

	s, err := ParseSortKey("updatedAt")
	require.NoError(t, err)
	assert.Equal(t, SortByUpdatedAt, s)

	_, err = ParseSortKey("color")
	assert.Error(t, err)

	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, Ascending, o)

	_, err = ParseSortOrder("sideways")
	assert.Error(t, err)
}

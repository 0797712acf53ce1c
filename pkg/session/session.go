// Package session holds the per-user view state of a drive client.
//
// A Session is a best-effort cache over the entity store: the current folder
// listing, starred and trash lists, breadcrumb path, active search and the
// display options. It is refreshed explicitly after every mutation; there
// are no push updates, so two sessions of the same user may observe stale
// state until their next refresh.
//
// Read operations degrade gracefully: when a listing fails the affected list
// is emptied and the error is kept in Err, so callers can always render.
package session

import (
	"context"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/view"
	"go.uber.org/multierr"
	"golang.org/x/text/language"
)

// Drive is the subset of drive.Service a session uses.
type Drive interface {
	CreateFolder(ctx context.Context, name, ownerID, parentID string) (*metadata.Entity, error)
	UploadFile(ctx context.Context, req drive.UploadRequest, onProgress content.ProgressFunc) (*metadata.Entity, error)
	Rename(ctx context.Context, id, newName, ownerID string) (*metadata.Entity, error)
	ToggleStarred(ctx context.Context, id, ownerID string) (*metadata.Entity, error)
	MoveToTrash(ctx context.Context, id, ownerID string) (*metadata.Entity, error)
	RestoreFromTrash(ctx context.Context, id, ownerID string) (*metadata.Entity, error)
	PermanentlyDelete(ctx context.Context, id, ownerID string) error
	EmptyTrash(ctx context.Context, ownerID string) (int, error)
	List(ctx context.Context, ownerID, parentID string) ([]*metadata.Entity, error)
	ListStarred(ctx context.Context, ownerID string) ([]*metadata.Entity, error)
	ListTrash(ctx context.Context, ownerID string) ([]*metadata.Entity, error)
	Search(ctx context.Context, ownerID, term string) ([]*metadata.Entity, error)
	Path(ctx context.Context, folderID, ownerID string) []metadata.Crumb
}

// Session is the view state of one user.
//
// Thread Safety:
// All state is guarded by a read-write mutex. The lock is never held across
// calls to the Drive, so a slow listing does not block readers.
type Session struct {
	drive   Drive
	ownerID string
	locale  language.Tag

	mu sync.RWMutex

	folderID string
	files    []*metadata.Entity
	starred  []*metadata.Entity
	trash    []*metadata.Entity
	path     []metadata.Crumb

	searchTerm    string
	searchResults []*metadata.Entity

	sortBy view.SortKey
	order  view.SortOrder
	filter view.Filter

	uploads map[string]float64

	lastErr error
}

// New creates a session for ownerID positioned at the root folder.
//
// The session starts empty; call Refresh to load it.
func New(d Drive, ownerID string) *Session {
	return &Session{
		drive:   d,
		ownerID: ownerID,
		locale:  language.Und,
		sortBy:  view.SortByName,
		order:   view.Ascending,
		filter:  view.Filter{Kind: view.KindAll, Date: view.DateAll},
		files:   []*metadata.Entity{},
		starred: []*metadata.Entity{},
		trash:   []*metadata.Entity{},
		path:    []metadata.Crumb{},
		uploads: make(map[string]float64),
	}
}

// SetLocale selects the collation used to sort names.
func (s *Session) SetLocale(tag language.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = tag
}

// Refresh re-fetches the current folder, breadcrumb path, starred and trash
// lists. Failed lists are emptied; the combined error is returned and kept.
func (s *Session) Refresh(ctx context.Context) error {
	return multierr.Combine(
		s.loadFolder(ctx),
		s.loadStarred(ctx),
		s.loadTrash(ctx),
	)
}

// Open navigates to folderID ("" for the root). Any active search is cleared.
func (s *Session) Open(ctx context.Context, folderID string) error {
	s.mu.Lock()
	s.folderID = folderID
	s.mu.Unlock()

	return s.loadFolder(ctx)
}

// loadFolder fetches the listing and path of the current folder and resets
// the search, as navigating always returns to the folder view.
func (s *Session) loadFolder(ctx context.Context) error {
	s.mu.RLock()
	folderID := s.folderID
	s.mu.RUnlock()

	files, err := s.drive.List(ctx, s.ownerID, folderID)
	path := s.drive.Path(ctx, folderID, s.ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.folderID != folderID {
		// Navigated away while loading.
		return err
	}

	s.searchTerm = ""
	s.searchResults = nil
	s.path = path
	if err != nil {
		s.files = []*metadata.Entity{}
		return s.fail("list folder", err)
	}
	s.files = files
	return nil
}

func (s *Session) loadStarred(ctx context.Context) error {
	starred, err := s.drive.ListStarred(ctx, s.ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.starred = []*metadata.Entity{}
		return s.fail("list starred", err)
	}
	s.starred = starred
	return nil
}

func (s *Session) loadTrash(ctx context.Context) error {
	trash, err := s.drive.ListTrash(ctx, s.ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.trash = []*metadata.Entity{}
		return s.fail("list trash", err)
	}
	s.trash = trash
	return nil
}

// fail records err as the last error. Callers hold s.mu.
func (s *Session) fail(op string, err error) error {
	logger.Debug("Session %s: %s failed: %v", s.ownerID, op, err)
	s.lastErr = err
	return err
}

func (s *Session) record(op string, err error) error {
	if err == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail(op, err)
}

// Search runs term against the owner's entities. A blank term clears the
// search and reloads the current folder. A failed search yields an empty
// result set.
func (s *Session) Search(ctx context.Context, term string) error {
	if metadata.NormalizeName(term) == "" {
		return s.loadFolder(ctx)
	}

	results, err := s.drive.Search(ctx, s.ownerID, term)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchTerm = term
	if err != nil {
		s.searchResults = []*metadata.Entity{}
		return s.fail("search", err)
	}
	s.searchResults = results
	return nil
}

// ClearSearch drops the active search without reloading.
func (s *Session) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchTerm = ""
	s.searchResults = nil
}

// SetSort selects the sort key and order of Visible.
func (s *Session) SetSort(key view.SortKey, order view.SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortBy = key
	s.order = order
}

// SetFilter selects the kind and recency filters of Visible.
func (s *Session) SetFilter(f view.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Visible returns the projected listing: search results when a search is
// active, the current folder otherwise, filtered and sorted as configured.
func (s *Session) Visible(now time.Time) []*metadata.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return view.Project(s.files, view.Options{
		OwnerID:       s.ownerID,
		SearchResults: s.searchResults,
		Filter:        s.filter,
		SortBy:        s.sortBy,
		Order:         s.order,
		Now:           now,
		Locale:        s.locale,
	})
}

// CreateFolder creates a folder in the current folder. An active search is
// kept and re-run, as for every other mutation.
func (s *Session) CreateFolder(ctx context.Context, name string) (*metadata.Entity, error) {
	folder, err := s.drive.CreateFolder(ctx, name, s.ownerID, s.CurrentFolder())
	if err != nil {
		return nil, s.record("create folder", err)
	}
	s.reload(ctx)
	return folder, nil
}

// Upload stores a file in the current folder.
//
// While the upload runs its progress is visible through Uploads under the
// returned id's key; the entry is removed when the upload finishes, whether
// it succeeded or not.
func (s *Session) Upload(ctx context.Context, name, mimeType string, size int64, body io.Reader) (*metadata.Entity, error) {
	uploadID := uuid.NewString()

	s.mu.Lock()
	s.uploads[uploadID] = 0
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.uploads, uploadID)
		s.mu.Unlock()
	}()

	file, err := s.drive.UploadFile(ctx, drive.UploadRequest{
		Name:     name,
		MimeType: mimeType,
		Size:     size,
		Body:     body,
		OwnerID:  s.ownerID,
		ParentID: s.CurrentFolder(),
	}, func(pct float64) {
		s.mu.Lock()
		s.uploads[uploadID] = pct
		s.mu.Unlock()
	})
	if err != nil {
		return nil, s.record("upload", err)
	}

	s.reload(ctx)
	return file, nil
}

// Rename renames an entity and refreshes every list that may show it.
func (s *Session) Rename(ctx context.Context, id, newName string) (*metadata.Entity, error) {
	e, err := s.drive.Rename(ctx, id, newName, s.ownerID)
	if err != nil {
		return nil, s.record("rename", err)
	}
	s.reload(ctx)
	return e, nil
}

// ToggleStarred flips the starred flag of an entity.
func (s *Session) ToggleStarred(ctx context.Context, id string) (*metadata.Entity, error) {
	e, err := s.drive.ToggleStarred(ctx, id, s.ownerID)
	if err != nil {
		return nil, s.record("toggle starred", err)
	}
	s.reload(ctx)
	return e, nil
}

// MoveToTrash trashes an entity. The lists are refreshed even after a
// partial failure, since part of the tree did change.
func (s *Session) MoveToTrash(ctx context.Context, id string) error {
	_, err := s.drive.MoveToTrash(ctx, id, s.ownerID)
	if err != nil && !metadata.IsPartialFailure(err) {
		return s.record("move to trash", err)
	}
	s.reload(ctx)
	return s.record("move to trash", err)
}

// Restore takes an entity out of trash.
func (s *Session) Restore(ctx context.Context, id string) error {
	if _, err := s.drive.RestoreFromTrash(ctx, id, s.ownerID); err != nil {
		return s.record("restore", err)
	}
	s.reload(ctx)
	return nil
}

// Delete permanently removes an entity.
func (s *Session) Delete(ctx context.Context, id string) error {
	err := s.drive.PermanentlyDelete(ctx, id, s.ownerID)
	if err != nil && !metadata.IsPartialFailure(err) {
		return s.record("delete", err)
	}
	s.reload(ctx)
	return s.record("delete", err)
}

// EmptyTrash permanently removes everything in trash.
func (s *Session) EmptyTrash(ctx context.Context) (int, error) {
	n, err := s.drive.EmptyTrash(ctx, s.ownerID)
	if err != nil && !metadata.IsPartialFailure(err) {
		return 0, s.record("empty trash", err)
	}
	s.reload(ctx)
	return n, s.record("empty trash", err)
}

// reload refreshes every list after a mutation, keeping an active search.
func (s *Session) reload(ctx context.Context) {
	s.mu.RLock()
	term := s.searchTerm
	s.mu.RUnlock()

	_ = s.Refresh(ctx)
	if term != "" {
		_ = s.Search(ctx, term)
	}
}

// OwnerID returns the session's user.
func (s *Session) OwnerID() string {
	return s.ownerID
}

// CurrentFolder returns the open folder id, "" at the root.
func (s *Session) CurrentFolder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folderID
}

// Files returns the unprojected listing of the current folder.
func (s *Session) Files() []*metadata.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.files)
}

// Starred returns the starred list.
func (s *Session) Starred() []*metadata.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.starred)
}

// Trash returns the trash list.
func (s *Session) Trash() []*metadata.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.trash)
}

// Path returns the breadcrumb trail of the current folder.
func (s *Session) Path() []metadata.Crumb {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.path)
}

// SearchTerm returns the active search term, "" when none.
func (s *Session) SearchTerm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchTerm
}

// SearchResults returns the active results; nil when no search is active.
func (s *Session) SearchResults() []*metadata.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.searchResults)
}

// Sort returns the current sort key and order.
func (s *Session) Sort() (view.SortKey, view.SortOrder) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortBy, s.order
}

// Filter returns the current filter.
func (s *Session) Filter() view.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Uploads returns the progress of in-flight uploads keyed by upload id.
func (s *Session) Uploads() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.uploads)
}

// Err returns the last recorded error.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

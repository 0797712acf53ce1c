package metadata

import (
	"strings"
	"time"
)

// Kind distinguishes files from folders.
//
// The string value doubles as the kind label matched by search.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// String returns the kind label.
func (k Kind) String() string {
	return string(k)
}

// Entity is the metadata record of a file or folder.
//
// Entities form a forest per owner: ParentID references a folder of the same
// owner, or is empty for root-level entities. Kind and OwnerID never change
// after creation.
type Entity struct {
	// ID is assigned by the DocumentStore on Insert.
	ID string `json:"id"`

	// Name is the display name. Not unique among siblings.
	Name string `json:"name" validate:"required,max=1024"`

	Kind Kind `json:"kind" validate:"required,oneof=file folder"`

	OwnerID string `json:"owner_id" validate:"required"`

	// ParentID is the containing folder, empty for root.
	ParentID string `json:"parent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Starred bool `json:"starred"`

	// InTrash marks a soft-deleted entity. DeletedAt is set iff InTrash.
	InTrash   bool       `json:"in_trash"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// File-only attributes.
	MimeType   string `json:"mime_type,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty" validate:"gte=0"`
	ContentRef string `json:"content_ref,omitempty" validate:"required_if=Kind file"`
	ContentURL string `json:"content_url,omitempty"`
}

// IsFolder reports whether the entity is a folder.
func (e *Entity) IsFolder() bool {
	return e.Kind == KindFolder
}

// IsRoot reports whether the entity lives at the owner's root.
func (e *Entity) IsRoot() bool {
	return e.ParentID == ""
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// Crumb is one element of a breadcrumb path.
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NormalizeName trims surrounding whitespace from a user supplied name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// Patch is a partial update applied by DocumentStore.Update.
//
// Nil fields are left untouched. UpdatedAt is always written.
type Patch struct {
	Name      *string
	Starred   *bool
	InTrash   *bool
	DeletedAt *time.Time

	// ClearDeletedAt resets DeletedAt to nil. Takes precedence over DeletedAt.
	ClearDeletedAt bool

	UpdatedAt time.Time
}

// Apply writes the patch onto e.
func (p Patch) Apply(e *Entity) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Starred != nil {
		e.Starred = *p.Starred
	}
	if p.InTrash != nil {
		e.InTrash = *p.InTrash
	}
	if p.ClearDeletedAt {
		e.DeletedAt = nil
	} else if p.DeletedAt != nil {
		t := *p.DeletedAt
		e.DeletedAt = &t
	}
	if !p.UpdatedAt.IsZero() {
		e.UpdatedAt = p.UpdatedAt
	}
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Time returns a pointer to t.
func Time(t time.Time) *time.Time {
	return &t
}

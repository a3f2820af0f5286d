package content

import (
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
)

// Type is the kind of local content a record holds.
type Type string

const (
	// Note is a short plain text post, mirrored as kind 1.
	Note Type = "note"
	// Article is a long form post with a title and rich body, mirrored as
	// kind 30023.
	Article Type = "article"
)

// Kind returns the event kind a record type is published as.
func (t Type) Kind() (k kind.T, ok bool) {
	switch t {
	case Note:
		return kind.TextNote, true
	case Article:
		return kind.LongFormContent, true
	}
	return 0, false
}

// TypeForKind is the inverse of Type.Kind.
func TypeForKind(k kind.T) (t Type, ok bool) {
	switch k {
	case kind.TextNote:
		return Note, true
	case kind.LongFormContent:
		return Article, true
	}
	return "", false
}

// Status is the sync state of a record.
type Status string

const (
	StatusNone    Status = ""
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
)

// Source says where a record was first created.
type Source string

const (
	SourceLocal Source = "local"
	SourceNostr Source = "nostr"
)

// Record is a local note or article together with its sync metadata.
type Record struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`

	Title string `json:"title"`
	// Body is HTML.
	Body  string   `json:"body"`
	Slug  string   `json:"slug,omitempty"`
	URL   string   `json:"url,omitempty"`
	Image string   `json:"image,omitempty"`
	Tags  []string `json:"tags,omitempty"`

	PublishedAt time.Time `json:"published_at"`
	// ModifiedAt is the last local modification, compared against the
	// created_at of inbound events.
	ModifiedAt timestamp.T `json:"modified_at"`

	Source        Source    `json:"source,omitempty"`
	SyncEnabled   bool      `json:"sync_enabled"`
	RemoteEventID eventid.T `json:"remote_event_id,omitempty"`
	SyncedAt      time.Time `json:"synced_at,omitempty"`
	Status        Status    `json:"status,omitempty"`
	LastError     string    `json:"last_error,omitempty"`

	// OriginUntil is set when the record was last written by an inbound
	// sync. Until it passes, local saves do not queue the record for
	// publishing.
	OriginUntil time.Time `json:"origin_until,omitempty"`
}

// HasOrigin reports whether the inbound origin flag is set and unexpired at
// now.
func (r *Record) HasOrigin(now time.Time) bool {
	return !r.OriginUntil.IsZero() && now.Before(r.OriginUntil)
}

// Clone makes a copy that shares nothing with r.
func (r *Record) Clone() *Record {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	return &c
}

// Fields is the content mapped from an inbound event.
type Fields struct {
	Type        Type
	Title       string
	Body        string
	Slug        string
	Image       string
	Tags        []string
	PublishedAt time.Time
	// CreatedAt is the event's created_at.
	CreatedAt timestamp.T
	// TitleFromTag is true when an article carried an explicit title tag.
	TitleFromTag bool
}

// Apply copies the fields into r. An article without a title tag keeps the
// existing title.
func (f *Fields) Apply(r *Record) {
	r.Type = f.Type
	if f.TitleFromTag || r.Title == "" || f.Type == Note {
		r.Title = f.Title
	}
	r.Body = f.Body
	if f.Slug != "" {
		r.Slug = f.Slug
	}
	if f.Image != "" {
		r.Image = f.Image
	}
	r.Tags = append([]string(nil), f.Tags...)
	if !f.PublishedAt.IsZero() {
		r.PublishedAt = f.PublishedAt
	}
	r.ModifiedAt = f.CreatedAt
}

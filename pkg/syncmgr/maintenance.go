package syncmgr

import (
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"golang.org/x/exp/slices"
)

const (
	// DefaultFailedAge is how long a failed status is kept by ClearFailed.
	DefaultFailedAge = 30 * 24 * time.Hour
	DefaultLogLimit  = 50
)

// ClearExpiredOrigins removes origin flags whose grace window has passed and
// returns how many were cleared.
func (e *T) ClearExpiredOrigins(c context.T) (n int, err error) {
	now := e.Now()
	var expired []*content.Record
	if err = e.Store.Range(c, func(r *content.Record) bool {
		if !r.OriginUntil.IsZero() && !r.HasOrigin(now) {
			expired = append(expired, r)
		}
		return true
	}); chk.E(err) {
		return
	}
	for _, r := range expired {
		r.OriginUntil = time.Time{}
		if err = e.Store.Put(c, r); chk.E(err) {
			return
		}
		n++
	}
	if n > 0 {
		e.log.D.F("cleared %d expired origin flags", n)
	}
	return
}

// Pending returns the records waiting to be signed and published.
func (e *T) Pending(c context.T) (rs []*content.Record, err error) {
	err = e.Store.Range(c, func(r *content.Record) bool {
		if r.Status == content.StatusPending && r.SyncEnabled {
			rs = append(rs, r)
		}
		return true
	})
	return
}

// Stats summarizes the sync state of the store.
type Stats struct {
	Records      int         `json:"records"`
	Enabled      int         `json:"sync_enabled"`
	Synced       int         `json:"synced"`
	Pending      int         `json:"pending"`
	Failed       int         `json:"failed"`
	LastSyncedAt time.Time   `json:"last_synced_at,omitempty"`
	LastPoll     timestamp.T `json:"last_poll"`
	Checkpoint   timestamp.T `json:"checkpoint"`
}

func (e *T) Stats(c context.T) (s *Stats, err error) {
	s = &Stats{}
	if err = e.Store.Range(c, func(r *content.Record) bool {
		s.Records++
		if r.SyncEnabled {
			s.Enabled++
		}
		switch r.Status {
		case content.StatusSynced:
			s.Synced++
		case content.StatusPending:
			s.Pending++
		case content.StatusFailed, content.StatusError:
			s.Failed++
		}
		if r.SyncedAt.After(s.LastSyncedAt) {
			s.LastSyncedAt = r.SyncedAt
		}
		return true
	}); chk.E(err) {
		return nil, err
	}
	if s.LastPoll, err = e.Store.LastPoll(c); chk.E(err) {
		return nil, err
	}
	if s.Checkpoint, err = e.Store.Checkpoint(c); chk.E(err) {
		return nil, err
	}
	return
}

// ClearFailed resets the failed status of records not modified within age,
// so they no longer count as failed, and returns how many were reset.
func (e *T) ClearFailed(c context.T, age time.Duration) (n int, err error) {
	if age <= 0 {
		age = DefaultFailedAge
	}
	cutoff := timestamp.FromTime(e.Now().Add(-age))
	var stale []*content.Record
	if err = e.Store.Range(c, func(r *content.Record) bool {
		if r.Status == content.StatusFailed && r.ModifiedAt < cutoff {
			stale = append(stale, r)
		}
		return true
	}); chk.E(err) {
		return
	}
	for _, r := range stale {
		r.Status, r.LastError = content.StatusNone, ""
		if err = e.Store.Put(c, r); chk.E(err) {
			return
		}
		n++
	}
	e.log.I.F("cleared %d failed statuses older than %v", n, age)
	return
}

// LogEntry is one line of the sync log.
type LogEntry struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Type      content.Type   `json:"type"`
	Status    content.Status `json:"status"`
	SyncedAt  time.Time      `json:"synced_at,omitempty"`
	LastError string         `json:"last_error,omitempty"`
}

// SyncLog lists up to limit records that have a sync status or were ever
// synced, most recently synced first. Records never synced come last.
func (e *T) SyncLog(c context.T, limit int) (entries []LogEntry, err error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if err = e.Store.Range(c, func(r *content.Record) bool {
		if r.Status != content.StatusNone || !r.SyncedAt.IsZero() {
			entries = append(entries, LogEntry{ID: r.ID, Title: r.Title, Type: r.Type,
				Status: r.Status, SyncedAt: r.SyncedAt, LastError: r.LastError})
		}
		return true
	}); chk.E(err) {
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b LogEntry) int {
		return b.SyncedAt.Compare(a.SyncedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return
}

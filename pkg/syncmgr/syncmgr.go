// Package syncmgr reconciles local content records with events on nostr
// relays.
//
// Outbound, a local save marks a record pending. The engine then builds the
// unsigned event for an external signer and publishes what the signer hands
// back. Inbound, SyncFromNostr pulls the author's notes and articles since the
// checkpoint and materializes them, with the newer side winning and local
// winning ties.
//
// An inbound sync must not run concurrently with another against the same
// store, callers serialize it (see package scheduler).
package syncmgr

import (
	"os"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/filter"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/Hubmakerlabs/nostrbridge/pkg/store"
)

var log, chk = slog.New(os.Stderr)

const (
	DefaultOriginGrace = 60 * time.Second
	DefaultQueryLimit  = 500
)

// Relays is the part of the relay client the engine uses.
type Relays interface {
	QueryAll(c context.T, relays []string, f *filter.T) ([]*event.T, map[string]error)
	PublishAll(c context.T, relays []string, ev *event.T) map[string]*client.PublishResult
}

var _ Relays = (*client.T)(nil)

// Store is the part of the local store the engine uses.
type Store interface {
	store.Records
	store.Meta
}

type Options struct {
	// OriginGrace is how long a record written by an inbound sync is kept
	// from being queued for publishing.
	OriginGrace time.Duration
	// QueryLimit is the limit sent in the inbound filter.
	QueryLimit int
	// DisableByDefault leaves new local records with sync off.
	DisableByDefault bool
	Now              func() time.Time
	Log              *slog.Log
}

// T is the sync engine.
type T struct {
	Options
	Relays Relays
	Mapper content.Mapper
	Store  Store
	log    *slog.Log
}

// New creates an engine.
func New(r Relays, m content.Mapper, s Store, opts Options) (e *T) {
	if opts.OriginGrace <= 0 {
		opts.OriginGrace = DefaultOriginGrace
	}
	if opts.QueryLimit <= 0 {
		opts.QueryLimit = DefaultQueryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = log
	}
	return &T{Options: opts, Relays: r, Mapper: m, Store: s, log: opts.Log}
}

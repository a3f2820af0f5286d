// Package store defines the local persistence the sync engine works against:
// content records with their sync metadata, the sync checkpoint and the
// configured identity.
package store

import (
	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
)

// Records stores content records. Lookups of absent records return an error
// of kind errs.NotFound.
type Records interface {
	Get(c context.T, id string) (r *content.Record, err error)
	// GetByRemoteID finds the record mirroring the event with the given id.
	GetByRemoteID(c context.T, id eventid.T) (r *content.Record, err error)
	// Put inserts or replaces a record. A record without an ID gets a new
	// one assigned.
	Put(c context.T, r *content.Record) (err error)
	Delete(c context.T, id string) (err error)
	// Range calls fn for every record in id order until fn returns false.
	Range(c context.T, fn func(r *content.Record) bool) (err error)
}

// Meta stores the engine's bookkeeping values. Unset timestamps read as 0.
type Meta interface {
	Checkpoint(c context.T) (ts timestamp.T, err error)
	SetCheckpoint(c context.T, ts timestamp.T) (err error)
	LastPoll(c context.T) (ts timestamp.T, err error)
	SetLastPoll(c context.T, ts timestamp.T) (err error)
}

// Identity stores the single configured public key and relay list. An unset
// public key reads as "".
type Identity interface {
	PubKey(c context.T) (pk string, err error)
	SetPubKey(c context.T, pk string) (err error)
	DeletePubKey(c context.T) (err error)
	Relays(c context.T) (relays []string, err error)
	SetRelays(c context.T, relays []string) (err error)
}

// I is the complete local store.
type I interface {
	Records
	Meta
	Identity
	Close() (err error)
}

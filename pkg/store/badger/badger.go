// Package badger is the local store kept in a badger database.
package badger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/Hubmakerlabs/nostrbridge/pkg/store"
	"github.com/Hubmakerlabs/nostrbridge/pkg/units"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/oklog/ulid/v2"
)

var log, chk = slog.New(os.Stderr)

var _ store.I = (*Backend)(nil)

// key prefixes
var (
	recordPrefix = []byte("r:")
	remotePrefix = []byte("x:")
	checkpoint   = []byte("m:checkpoint")
	lastPoll     = []byte("m:lastpoll")
	pubKey       = []byte("m:pubkey")
	relays       = []byte("m:relays")
)

func recordKey(id string) []byte { return append(append([]byte{}, recordPrefix...), id...) }
func remoteKey(id eventid.T) []byte { return append(append([]byte{}, remotePrefix...), id...) }
func normalizeID(id eventid.T) eventid.T { return eventid.T(strings.ToLower(string(id))) }

type Backend struct {
	Path string
	// InMemory keeps everything in memory, Path is ignored.
	InMemory bool
	// BlockCacheSize is the badger block cache size in bytes.
	BlockCacheSize int
	// LogLevel limits the badger internal logging.
	LogLevel int
	*badger.DB
	// mx serializes read-modify-write of records and their remote index.
	mx sync.Mutex
}

// GetBackend returns a reasonably configured Backend at path. An empty path
// gives an in-memory store.
func GetBackend(path string) (b *Backend) {
	return &Backend{
		Path:           path,
		InMemory:       path == "",
		BlockCacheSize: 16 * units.Mb,
		LogLevel:       slog.Warn,
	}
}

// Open is GetBackend followed by Init.
func Open(path string) (b *Backend, err error) {
	b = GetBackend(path)
	if err = b.Init(); err != nil {
		return nil, err
	}
	return
}

func (b *Backend) Init() (err error) {
	opts := badger.DefaultOptions(b.Path)
	if b.InMemory {
		log.D.Ln("opening in-memory store")
		opts = badger.DefaultOptions("").WithInMemory(true).
			WithMemTableSize(8 * units.MiB)
	} else {
		log.I.Ln("opening badger store at", b.Path)
	}
	opts.BlockCacheSize = int64(b.BlockCacheSize)
	opts.BlockSize = 4 * units.KiB
	opts.Compression = options.ZSTD
	opts.Logger = logger{b.LogLevel, "badger"}
	if b.DB, err = badger.Open(opts); chk.E(err) {
		return errs.Wrap(errs.Configuration, err, "open store %q", b.Path)
	}
	return
}

func (b *Backend) Close() (err error) {
	if b.DB == nil {
		return
	}
	return b.DB.Close()
}

func (b *Backend) getJSON(txn *badger.Txn, key []byte, v any) (err error) {
	var item *badger.Item
	if item, err = txn.Get(key); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errs.New(errs.NotFound, "no value at %q", key)
		}
		return
	}
	return item.Value(func(val []byte) error { return json.Unmarshal(val, v) })
}

func (b *Backend) setJSON(txn *badger.Txn, key []byte, v any) (err error) {
	var val []byte
	if val, err = json.Marshal(v); chk.E(err) {
		return
	}
	return txn.Set(key, val)
}

func (b *Backend) Get(c context.T, id string) (r *content.Record, err error) {
	err = b.View(func(txn *badger.Txn) (err error) {
		r = &content.Record{}
		return b.getJSON(txn, recordKey(id), r)
	})
	if err != nil {
		r = nil
		if errs.KindOf(err) == errs.NotFound {
			err = errs.New(errs.NotFound, "record %s not found", id)
		}
	}
	return
}

func (b *Backend) GetByRemoteID(c context.T, id eventid.T) (r *content.Record, err error) {
	id = normalizeID(id)
	err = b.View(func(txn *badger.Txn) (err error) {
		var item *badger.Item
		if item, err = txn.Get(remoteKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return errs.New(errs.NotFound, "no record for event %s", id)
			}
			return
		}
		var local []byte
		if local, err = item.ValueCopy(nil); err != nil {
			return
		}
		r = &content.Record{}
		return b.getJSON(txn, recordKey(string(local)), r)
	})
	if err != nil {
		r = nil
	}
	return
}

func (b *Backend) Put(c context.T, r *content.Record) (err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	r.RemoteEventID = normalizeID(r.RemoteEventID)
	return b.Update(func(txn *badger.Txn) (err error) {
		old := &content.Record{}
		if err = b.getJSON(txn, recordKey(r.ID), old); err == nil {
			if old.RemoteEventID != "" && old.RemoteEventID != r.RemoteEventID {
				if err = txn.Delete(remoteKey(old.RemoteEventID)); err != nil {
					return
				}
			}
		} else if errs.KindOf(err) != errs.NotFound {
			return
		}
		if r.RemoteEventID != "" {
			if err = txn.Set(remoteKey(r.RemoteEventID), []byte(r.ID)); err != nil {
				return
			}
		}
		return b.setJSON(txn, recordKey(r.ID), r)
	})
}

func (b *Backend) Delete(c context.T, id string) (err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.Update(func(txn *badger.Txn) (err error) {
		old := &content.Record{}
		if err = b.getJSON(txn, recordKey(id), old); err != nil {
			return
		}
		if old.RemoteEventID != "" {
			if err = txn.Delete(remoteKey(old.RemoteEventID)); err != nil {
				return
			}
		}
		return txn.Delete(recordKey(id))
	})
}

func (b *Backend) Range(c context.T, fn func(r *content.Record) bool) (err error) {
	return b.View(func(txn *badger.Txn) (err error) {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: recordPrefix, PrefetchValues: true})
		defer it.Close()
		for it.Seek(recordPrefix); it.ValidForPrefix(recordPrefix); it.Next() {
			if c.Err() != nil {
				return c.Err()
			}
			r := &content.Record{}
			if err = it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, r)
			}); chk.E(err) {
				return
			}
			if !fn(r) {
				return
			}
		}
		return
	})
}

func (b *Backend) getTime(key []byte) (ts timestamp.T, err error) {
	err = b.View(func(txn *badger.Txn) (err error) {
		var item *badger.Item
		if item, err = txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				err = nil
			}
			return
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return errs.New(errs.Validation, "bad timestamp value at %q", key)
			}
			ts = timestamp.FromUnix(int64(binary.BigEndian.Uint64(val)))
			return nil
		})
	})
	return
}

func (b *Backend) setTime(key []byte, ts timestamp.T) (err error) {
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(ts.I64()))
	return b.Update(func(txn *badger.Txn) error { return txn.Set(key, val) })
}

func (b *Backend) Checkpoint(c context.T) (timestamp.T, error) { return b.getTime(checkpoint) }

func (b *Backend) SetCheckpoint(c context.T, ts timestamp.T) error {
	return b.setTime(checkpoint, ts)
}

func (b *Backend) LastPoll(c context.T) (timestamp.T, error) { return b.getTime(lastPoll) }

func (b *Backend) SetLastPoll(c context.T, ts timestamp.T) error { return b.setTime(lastPoll, ts) }

func (b *Backend) PubKey(c context.T) (pk string, err error) {
	err = b.View(func(txn *badger.Txn) (err error) {
		var item *badger.Item
		if item, err = txn.Get(pubKey); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				err = nil
			}
			return
		}
		var v []byte
		if v, err = item.ValueCopy(nil); err == nil {
			pk = string(v)
		}
		return
	})
	return
}

func (b *Backend) SetPubKey(c context.T, pk string) error {
	return b.Update(func(txn *badger.Txn) error { return txn.Set(pubKey, []byte(pk)) })
}

func (b *Backend) DeletePubKey(c context.T) error {
	return b.Update(func(txn *badger.Txn) error { return txn.Delete(pubKey) })
}

func (b *Backend) Relays(c context.T) (r []string, err error) {
	err = b.View(func(txn *badger.Txn) error { return b.getJSON(txn, relays, &r) })
	if errs.KindOf(err) == errs.NotFound {
		err = nil
	}
	return
}

func (b *Backend) SetRelays(c context.T, r []string) error {
	return b.Update(func(txn *badger.Txn) error { return b.setJSON(txn, relays, r) })
}

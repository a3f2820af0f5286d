// Package profile resolves nprofile references to display names by fetching
// the kind 0 metadata event of the key, with a cache in front.
package profile

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/filter"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/keys"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/puzpuzpuz/xsync/v2"
)

var log, chk = slog.New(os.Stderr)

const (
	FoundTTL   = 24 * time.Hour
	MissingTTL = time.Hour
)

// Querier is the part of the relay client the resolver needs.
type Querier interface {
	QueryAll(c context.T, relays []string, f *filter.T) ([]*event.T, map[string]error)
}

var _ Querier = (*client.T)(nil)

type entry struct {
	name    string
	found   bool
	expires time.Time
}

// Resolver looks up profile names. Relays returns the configured relays,
// which are queried along with any hints carried in the nprofile.
type Resolver struct {
	Q      Querier
	Relays func() []string
	Now    func() time.Time
	cache  *xsync.MapOf[string, entry]
}

// New creates a resolver.
func New(q Querier, relays func() []string) *Resolver {
	return &Resolver{
		Q:      q,
		Relays: relays,
		Now:    time.Now,
		cache:  xsync.NewMapOf[entry](),
	}
}

// Metadata is the subset of the kind 0 content used for names.
type Metadata struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// NameOf returns the name from kind 0 content, preferring name over
// display_name.
func NameOf(content string) (name string) {
	var md Metadata
	if err := json.Unmarshal([]byte(content), &md); err != nil {
		return
	}
	if name = strings.TrimSpace(md.Name); name == "" {
		name = strings.TrimSpace(md.DisplayName)
	}
	return
}

// Name resolves the display name for an nprofile or npub. Results are cached
// for FoundTTL, failures for MissingTTL.
func (r *Resolver) Name(c context.T, nprofile string) (name string, ok bool) {
	now := r.Now()
	if e, hit := r.cache.Load(nprofile); hit && now.Before(e.expires) {
		return e.name, e.found
	}
	name = r.lookup(c, nprofile)
	e := entry{name: name, found: name != "", expires: now.Add(MissingTTL)}
	if e.found {
		e.expires = now.Add(FoundTTL)
	}
	r.cache.Store(nprofile, e)
	return e.name, e.found
}

func (r *Resolver) lookup(c context.T, nprofile string) (name string) {
	pk, hints, err := keys.DecodeProfile(nprofile)
	if chk.D(err) {
		return
	}
	relays := append([]string(nil), hints...)
	if r.Relays != nil {
		relays = append(relays, r.Relays()...)
	}
	relays, _ = client.NormalizeRelays(relays)
	if len(relays) == 0 {
		return
	}
	evs, _ := r.Q.QueryAll(c, relays, &filter.T{
		Kinds:   []kind.T{kind.ProfileMetadata},
		Authors: []string{pk},
		Limit:   1,
	})
	var found []*event.T
	for _, ev := range evs {
		if ev.Kind == kind.ProfileMetadata && ev.PubKey == pk {
			found = append(found, ev)
		}
	}
	if len(found) == 0 {
		log.D.F("no profile found for %s", pk)
		return
	}
	sort.Stable(event.Descending(found))
	return NameOf(found[0].Content)
}

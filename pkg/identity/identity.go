// Package identity manages the single public key the bridge syncs for and the
// relays it talks to.
package identity

import (
	"os"
	"sync"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/keys"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/Hubmakerlabs/nostrbridge/pkg/store"
)

var log, chk = slog.New(os.Stderr)

// Checker checks a relay is reachable.
type Checker interface {
	TestRelay(c context.T, relay string) (err error)
}

var _ Checker = (*client.T)(nil)

// T reads and writes the identity held in a store. Fallback is used as the
// relay list when none has been saved.
type T struct {
	Store    store.Identity
	Checker  Checker
	Fallback []string
}

func New(s store.Identity, p Checker, fallback []string) *T {
	return &T{Store: s, Checker: p, Fallback: fallback}
}

// PubKey returns the configured hex public key, or "" when disconnected.
func (id *T) PubKey(c context.T) (pk string, err error) {
	return id.Store.PubKey(c)
}

// RequirePubKey is PubKey but an unset key is a configuration error.
func (id *T) RequirePubKey(c context.T) (pk string, err error) {
	if pk, err = id.Store.PubKey(c); err != nil {
		return
	}
	if pk == "" {
		err = errs.New(errs.Configuration, "no public key configured")
	}
	return
}

// SetPubKey validates and stores a public key given as hex, npub or nprofile.
func (id *T) SetPubKey(c context.T, s string) (pk string, err error) {
	if pk, err = keys.ParsePublicKey(s); err != nil {
		return
	}
	if err = id.Store.SetPubKey(c, pk); chk.E(err) {
		return
	}
	log.I.F("public key set to %s", pk)
	return
}

// Disconnect forgets the public key. Relays are kept.
func (id *T) Disconnect(c context.T) (err error) {
	if err = id.Store.DeletePubKey(c); chk.E(err) {
		return
	}
	log.I.Ln("public key removed")
	return
}

// Relays returns the saved relays, or the fallback list when none are saved.
func (id *T) Relays(c context.T) (relays []string, err error) {
	if relays, err = id.Store.Relays(c); err != nil {
		return
	}
	if len(relays) == 0 {
		relays = client.RelaysOrDefault(id.Fallback)
	}
	return
}

// SetRelays normalizes and saves a relay list. Entries that are not websocket
// URLs are dropped and returned. A list with nothing usable left is rejected.
func (id *T) SetRelays(c context.T, urls []string) (relays, dropped []string, err error) {
	relays, dropped = client.NormalizeRelays(urls)
	if len(relays) == 0 {
		err = errs.New(errs.Validation, "no valid relay URLs in %v", urls)
		return
	}
	if len(dropped) > 0 {
		log.W.F("dropped invalid relay URLs: %v", dropped)
	}
	err = id.Store.SetRelays(c, relays)
	return
}

// Status is a snapshot of the identity.
type Status struct {
	Connected bool     `json:"connected"`
	PubKey    string   `json:"pubkey,omitempty"`
	Npub      string   `json:"npub,omitempty"`
	Relays    []string `json:"relays"`
	// Reachable maps relays to "" when reachable or the dial error, and is
	// only filled when probing was requested.
	Reachable map[string]string `json:"reachable,omitempty"`
}

// Status reports the identity and, if check is set, whether each relay
// accepts connections.
func (id *T) Status(c context.T, check bool) (s *Status, err error) {
	s = &Status{}
	if s.PubKey, err = id.Store.PubKey(c); err != nil {
		return nil, err
	}
	if s.PubKey != "" {
		s.Connected = true
		s.Npub, _ = keys.EncodeNpub(s.PubKey)
	}
	if s.Relays, err = id.Relays(c); err != nil {
		return nil, err
	}
	if !check || id.Checker == nil {
		return
	}
	s.Reachable = make(map[string]string, len(s.Relays))
	var mx sync.Mutex
	var wg sync.WaitGroup
	for _, relay := range s.Relays {
		wg.Add(1)
		go func(relay string) {
			defer wg.Done()
			res := ""
			if err := id.Checker.TestRelay(c, relay); err != nil {
				res = err.Error()
			}
			mx.Lock()
			s.Reachable[relay] = res
			mx.Unlock()
		}(relay)
	}
	wg.Wait()
	return
}

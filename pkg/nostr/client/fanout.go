package client

import (
	"sync"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/filter"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/puzpuzpuz/xsync/v2"
)

// PublishAll publishes ev to every relay concurrently. Each relay gets a
// result, failures included, and one relay failing does not affect the
// others.
func (cl *T) PublishAll(c context.T, relays []string,
	ev *event.T) (results map[string]*PublishResult) {

	settled := xsync.NewMapOf[*PublishResult]()
	var wg sync.WaitGroup
	for _, relay := range relays {
		wg.Add(1)
		go func(relay string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					settled.Store(relay, &PublishResult{Relay: relay,
						Err: errs.New(errs.Transport, "publish panicked: %v", r)})
				}
			}()
			res, err := cl.Publish(c, relay, ev)
			if err != nil {
				cl.log.W.F("publish %s to %s failed: %v", ev.ID, relay, err)
			}
			settled.Store(relay, res)
		}(relay)
	}
	wg.Wait()
	results = make(map[string]*PublishResult, len(relays))
	settled.Range(func(relay string, res *PublishResult) bool {
		results[relay] = res
		return true
	})
	return
}

// AnyAccepted reports whether at least one relay accepted the event.
func AnyAccepted(results map[string]*PublishResult) bool {
	for _, r := range results {
		if r != nil && r.Accepted {
			return true
		}
	}
	return false
}

type queryOutcome struct {
	evs []*event.T
	err error
}

// QueryAll runs the query against every relay concurrently and concatenates
// the results in relay order, without deduplication. Relays that fail are
// left out of the events and reported in failed.
func (cl *T) QueryAll(c context.T, relays []string,
	f *filter.T) (evs []*event.T, failed map[string]error) {

	settled := xsync.NewMapOf[queryOutcome]()
	var wg sync.WaitGroup
	for _, relay := range relays {
		wg.Add(1)
		go func(relay string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					settled.Store(relay, queryOutcome{
						err: errs.New(errs.Transport, "query panicked: %v", r)})
				}
			}()
			got, err := cl.Query(c, relay, f.Clone())
			settled.Store(relay, queryOutcome{got, err})
		}(relay)
	}
	wg.Wait()
	evs = []*event.T{}
	for _, relay := range relays {
		out, ok := settled.Load(relay)
		if !ok {
			continue
		}
		if out.err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[relay] = out.err
			cl.log.W.F("query to %s failed: %v", relay, out.err)
			continue
		}
		evs = append(evs, out.evs...)
	}
	return
}

// EventsByKind queries every relay for events of kind k.
func (cl *T) EventsByKind(c context.T, relays []string, k kind.T) (evs []*event.T) {
	evs, _ = cl.QueryAll(c, relays, &filter.T{Kinds: []kind.T{k}})
	return
}

// EventsByAuthor queries every relay for events by the hex public key.
func (cl *T) EventsByAuthor(c context.T, relays []string, pubkey string) (evs []*event.T) {
	evs, _ = cl.QueryAll(c, relays, &filter.T{Authors: []string{pubkey}})
	return
}

// EventsByTag queries every relay for events carrying the tag name=value.
func (cl *T) EventsByTag(c context.T, relays []string, name, value string) (evs []*event.T) {
	evs, _ = cl.QueryAll(c, relays, &filter.T{Tags: filter.TagMap{name: {value}}})
	return
}

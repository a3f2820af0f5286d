package syncmgr

import (
	"strings"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ShouldSync reports whether a local change to r should be published: sync
// is enabled and no unexpired origin flag is set.
func ShouldSync(r *content.Record, now time.Time) bool {
	return r.SyncEnabled && !r.HasOrigin(now)
}

// MarkPending sets r pending if it should sync and reports whether it did.
func MarkPending(r *content.Record, now time.Time) bool {
	if !ShouldSync(r, now) {
		return false
	}
	r.Status = content.StatusPending
	r.LastError = ""
	return true
}

// SaveLocal stores a locally edited record, stamping its modification time
// and queueing it for publishing when it should sync. New records get an ID
// and have sync enabled unless DisableByDefault is set.
func (e *T) SaveLocal(c context.T, r *content.Record) (queued bool, err error) {
	if _, ok := r.Type.Kind(); !ok {
		return false, errs.New(errs.Validation, "unknown record type %q", r.Type)
	}
	now := e.Now()
	if r.ID == "" {
		r.SyncEnabled = !e.DisableByDefault
		if r.Source == "" {
			r.Source = content.SourceLocal
		}
	}
	r.ModifiedAt = timestamp.FromTime(now)
	queued = MarkPending(r, now)
	if err = e.Store.Put(c, r); chk.E(err) {
		return false, err
	}
	if queued {
		e.log.D.F("record %s queued for publishing", r.ID)
	} else {
		e.log.D.F("record %s saved, not queued (enabled %v, origin until %v)",
			r.ID, r.SyncEnabled, r.OriginUntil)
	}
	return
}

// SetSyncEnabled turns syncing on or off for a record. Turning it off drops
// the record from the publish queue.
func (e *T) SetSyncEnabled(c context.T, id string, on bool) (r *content.Record, err error) {
	if r, err = e.Store.Get(c, id); err != nil {
		return
	}
	r.SyncEnabled = on
	switch {
	case on:
		MarkPending(r, e.Now())
	case r.Status == content.StatusPending:
		r.Status = content.StatusNone
	}
	err = e.Store.Put(c, r)
	return
}

// BuildUnsignedEvent makes the event a signer should sign for the record.
// pubkey is set on the event when not empty.
func (e *T) BuildUnsignedEvent(c context.T, id, pubkey string) (ev *event.Unsigned, err error) {
	var r *content.Record
	if r, err = e.Store.Get(c, id); err != nil {
		return
	}
	if !r.SyncEnabled {
		return nil, errs.New(errs.Validation, "sync is disabled for record %s", id)
	}
	if ev, err = e.Mapper.BuildOutboundEvent(r); err != nil {
		e.log.W.F("building event for %s: %v", id, err)
		r.Status, r.LastError = content.StatusError, err.Error()
		chk.E(e.Store.Put(c, r))
		return
	}
	ev.PubKey = pubkey
	return
}

// PublishOutcome is the result of publishing a signed event for a record.
type PublishOutcome struct {
	// Success is true when at least one relay accepted the event.
	Success bool `json:"success"`
	// Retryable is set when every relay rejected the event for a reason that
	// may not recur, so sending the same event again can succeed.
	Retryable bool                             `json:"retryable,omitempty"`
	Results   map[string]*client.PublishResult `json:"results"`
	Record    *content.Record                  `json:"record"`
}

// Publish sends the signed event for record id to relays and records the
// outcome: synced when any relay accepted, failed otherwise. The event must
// carry every field and its id must match its content. If pubkey is set the
// event must be by that key.
func (e *T) Publish(c context.T, id string, relays []string, pubkey string,
	ev *event.T) (out *PublishOutcome, err error) {

	if err = ev.ValidateSigned(); err != nil {
		return
	}
	if err = ev.CheckID(); err != nil {
		return
	}
	if pubkey != "" && !strings.EqualFold(pubkey, ev.PubKey) {
		return nil, errs.New(errs.Validation,
			"event is signed by %s, configured key is %s", ev.PubKey, pubkey)
	}
	var r *content.Record
	if r, err = e.Store.Get(c, id); err != nil {
		return
	}
	out = &PublishOutcome{Results: map[string]*client.PublishResult{}}
	if len(relays) > 0 {
		out.Results = e.Relays.PublishAll(c, relays, ev)
	}
	out.Success = client.AnyAccepted(out.Results)
	now := e.Now()
	if out.Success {
		r.Status = content.StatusSynced
		r.RemoteEventID = ev.ID
		r.SyncedAt = now
		r.LastError = ""
		e.log.I.F("record %s published as %s", r.ID, ev.ID)
	} else {
		r.Status = content.StatusFailed
		r.LastError = rejections(out.Results)
		out.Retryable = allTransient(out.Results)
		e.log.W.F("record %s rejected by all relays: %s", r.ID, r.LastError)
	}
	if err = e.Store.Put(c, r); chk.E(err) {
		return
	}
	out.Record = r
	return
}

func allTransient(results map[string]*client.PublishResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, res := range results {
		if res == nil || !res.Transient {
			return false
		}
	}
	return true
}

func rejections(results map[string]*client.PublishResult) string {
	if len(results) == 0 {
		return "no relays configured"
	}
	relays := maps.Keys(results)
	slices.Sort(relays)
	parts := make([]string, 0, len(relays))
	for _, relay := range relays {
		res := results[relay]
		reason := "no result"
		switch {
		case res == nil:
		case res.Err != nil:
			reason = res.Err.Error()
		case res.Reason != "":
			reason = res.Reason
		default:
			reason = "rejected"
		}
		parts = append(parts, relay+": "+reason)
	}
	return strings.Join(parts, "; ")
}

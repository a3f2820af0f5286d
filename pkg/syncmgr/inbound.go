package syncmgr

import (
	"sort"
	"strings"

	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/filter"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/keys"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
)

// Request is an inbound sync request. The identity is passed in rather than
// read by the engine.
type Request struct {
	PubKey string
	Relays []string
	// Full ignores the checkpoint and fetches everything the relays keep.
	Full bool
}

// Result counts what an inbound sync did with each unique event.
type Result struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
	// Checkpoint is the checkpoint after the sync.
	Checkpoint timestamp.T `json:"checkpoint"`
	// FailedRelays maps relays that could not be queried to the reason.
	FailedRelays map[string]string `json:"failed_relays,omitempty"`
}

type outcome int

const (
	processed outcome = iota
	skipped
	failed
)

// Filter returns the inbound filter for pubkey. since is left out when zero.
func (e *T) Filter(pubkey string, since timestamp.T) (f *filter.T) {
	f = &filter.T{
		Kinds:   append([]kind.T(nil), kind.Synced...),
		Authors: []string{pubkey},
		Limit:   e.QueryLimit,
	}
	if since > 0 {
		f.Since = since.Ptr()
	}
	return
}

// Dedupe drops events whose id was already seen, keeping the first.
func Dedupe(evs []*event.T) (unique []*event.T) {
	seen := make(map[eventid.T]struct{}, len(evs))
	unique = make([]*event.T, 0, len(evs))
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		id := eventid.T(strings.ToLower(string(ev.ID)))
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, ev)
	}
	return
}

// SyncFromNostr pulls the author's notes and articles from the relays and
// reconciles them with the local records.
//
// The checkpoint moves to now after an incremental sync, and to one second
// before the oldest event after a full sync. It is left alone when no events
// came back. An empty relay list does nothing.
func (e *T) SyncFromNostr(c context.T, req Request) (res *Result, err error) {
	pk := strings.ToLower(strings.TrimSpace(req.PubKey))
	if pk == "" {
		return nil, errs.New(errs.Configuration, "no public key configured")
	}
	if !keys.IsValid32ByteHex(pk) {
		return nil, errs.New(errs.Configuration, "configured public key %q is not valid", req.PubKey)
	}
	var since timestamp.T
	if since, err = e.Store.Checkpoint(c); chk.E(err) {
		return nil, err
	}
	res = &Result{Checkpoint: since}
	if len(req.Relays) == 0 {
		e.log.W.Ln("no relays configured, nothing to sync")
		return
	}
	if req.Full {
		since = 0
	}
	f := e.Filter(pk, since)
	e.log.I.F("inbound sync from %d relays: %s", len(req.Relays), f)
	evs, failedRelays := e.Relays.QueryAll(c, req.Relays, f)
	for relay, ferr := range failedRelays {
		if res.FailedRelays == nil {
			res.FailedRelays = make(map[string]string)
		}
		res.FailedRelays[relay] = ferr.Error()
	}
	unique := Dedupe(evs)
	res.Total = len(unique)
	if res.Total == 0 {
		e.log.I.Ln("no events returned, checkpoint unchanged")
		return
	}
	// oldest first, so a later edit of the same record is applied last
	sort.Stable(event.Ascending(unique))
	oldest := unique[0].CreatedAt
	for _, ev := range unique {
		switch e.process(c, pk, ev) {
		case processed:
			res.Processed++
		case skipped:
			res.Skipped++
		default:
			res.Failed++
		}
	}
	now := timestamp.FromTime(e.Now())
	res.Checkpoint = now
	if req.Full {
		res.Checkpoint = oldest - 1
	}
	if err = e.Store.SetCheckpoint(c, res.Checkpoint); chk.E(err) {
		return nil, err
	}
	chk.E(e.Store.SetLastPoll(c, now))
	e.log.I.F("inbound sync: %d processed, %d skipped, %d failed of %d, checkpoint %d",
		res.Processed, res.Skipped, res.Failed, res.Total, res.Checkpoint)
	return
}

// process reconciles one event. A panic is contained to the event.
func (e *T) process(c context.T, pk string, ev *event.T) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.E.F("event %s: panic while processing: %v", ev.ID, r)
			o = failed
		}
	}()
	err := e.reconcile(c, pk, ev)
	switch {
	case err == nil:
		return processed
	case errs.KindOf(err) == errs.Validation || errs.KindOf(err) == errs.Mapping:
		e.log.D.F("event %s skipped: %v", ev.ID, err)
		return skipped
	default:
		e.log.E.F("event %s failed: %v", ev.ID, err)
		return failed
	}
}

// errNotNewer marks an event that lost to the local record.
var errNotNewer = errs.New(errs.Validation, "local record is as new or newer")

func (e *T) reconcile(c context.T, pk string, ev *event.T) (err error) {
	if !ev.Kind.IsSynced() {
		return errs.New(errs.Validation, "kind %d is not synced", ev.Kind)
	}
	if ev.HasReplyTag() {
		return errs.New(errs.Validation, "event is a reply")
	}
	if err = ev.ValidateSigned(); err != nil {
		return
	}
	if err = ev.CheckID(); err != nil {
		return
	}
	if !strings.EqualFold(ev.PubKey, pk) {
		return errs.New(errs.Validation, "event author %s is not %s", ev.PubKey, pk)
	}
	var r *content.Record
	if r, err = e.Store.GetByRemoteID(c, ev.ID); err != nil {
		if errs.KindOf(err) != errs.NotFound {
			return
		}
		r, err = nil, nil
	}
	if r != nil && ev.CreatedAt <= r.ModifiedAt {
		return errNotNewer
	}
	var f *content.Fields
	if f, err = e.Mapper.MapInboundEvent(c, ev); err != nil {
		return
	}
	now := e.Now()
	if r == nil {
		r = &content.Record{Source: content.SourceNostr, SyncEnabled: true}
	}
	f.Apply(r)
	r.RemoteEventID = ev.ID
	r.Status = content.StatusSynced
	r.SyncedAt = now
	r.LastError = ""
	r.OriginUntil = now.Add(e.OriginGrace)
	if err = e.Store.Put(c, r); err != nil {
		return
	}
	e.log.D.F("event %s materialized as record %s", ev.ID, r.ID)
	return
}

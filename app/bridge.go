package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/identity"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/keys"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/scheduler"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/Hubmakerlabs/nostrbridge/pkg/syncmgr"
	"github.com/rs/cors"
	"github.com/sebest/xff"
)

var log, chk = slog.New(os.Stderr)

// MaxBodySize limits request bodies.
const MaxBodySize = 1 << 20

// Bridge is the HTTP interface the external signer and local tooling drive:
// it hands out unsigned events, takes back signed ones for publishing, and
// exposes identity, relay and sync controls.
type Bridge struct {
	Engine    *syncmgr.T
	Identity  *identity.T
	Scheduler *scheduler.T
	Client    *client.T
	handler   http.Handler
	mux       *http.ServeMux
}

// NewBridge wires the routes. origins limits CORS, empty allows any origin.
func NewBridge(e *syncmgr.T, id *identity.T, s *scheduler.T, cl *client.T,
	origins []string) (b *Bridge) {

	b = &Bridge{Engine: e, Identity: id, Scheduler: s, Client: cl,
		mux: http.NewServeMux()}
	b.mux.HandleFunc("GET /api/status", b.handleStatus)
	b.mux.HandleFunc("GET /api/pubkey", b.handleGetPubKey)
	b.mux.HandleFunc("PUT /api/pubkey", b.handleSetPubKey)
	b.mux.HandleFunc("DELETE /api/pubkey", b.handleDisconnect)
	b.mux.HandleFunc("GET /api/relays", b.handleGetRelays)
	b.mux.HandleFunc("PUT /api/relays", b.handleSetRelays)
	b.mux.HandleFunc("POST /api/sync", b.handleSync)
	b.mux.HandleFunc("GET /api/schedule", b.handleSchedule)
	b.mux.HandleFunc("GET /api/logs", b.handleLogs)
	b.mux.HandleFunc("POST /api/cleanup", b.handleCleanup)
	b.mux.HandleFunc("GET /api/records", b.handleListRecords)
	b.mux.HandleFunc("POST /api/records", b.handleSaveRecord)
	b.mux.HandleFunc("GET /api/records/{id}", b.handleGetRecord)
	b.mux.HandleFunc("PUT /api/records/{id}", b.handleSaveRecord)
	b.mux.HandleFunc("GET /api/records/{id}/unsigned", b.handleUnsigned)
	b.mux.HandleFunc("POST /api/records/{id}/publish", b.handlePublish)
	b.mux.HandleFunc("GET /api/pending", b.handlePending)
	b.mux.HandleFunc("GET /api/events", b.handleEvents)
	co := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost,
			http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}
	if len(origins) > 0 {
		co.AllowedOrigins = origins
	} else {
		co.AllowedOrigins = []string{"*"}
	}
	b.handler = cors.New(co).Handler(b.mux)
	return
}

// ServeHTTP implements http.Handler.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	b.handler.ServeHTTP(rw, r)
	log.D.F("%s %s %s -> %d in %v", xff.GetRemoteAddr(r), r.Method,
		r.URL.Path, rw.status, time.Since(start))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	chk.D(json.NewEncoder(w).Encode(v))
}

// StatusFor maps an error to the HTTP status reported for it.
func StatusFor(err error) int {
	if errors.Is(err, scheduler.ErrBusy) {
		return http.StatusConflict
	}
	switch errs.KindOf(err) {
	case errs.Validation, errs.Mapping, errs.Protocol:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Configuration:
		return http.StatusPreconditionFailed
	case errs.Transport:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= 500 {
		log.E.Ln(err)
	} else {
		log.D.Ln(err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func readJSON(r *http.Request, v any) (err error) {
	var b []byte
	if b, err = io.ReadAll(io.LimitReader(r.Body, MaxBodySize)); err != nil {
		return errs.Wrap(errs.Validation, err, "read body")
	}
	if err = json.Unmarshal(b, v); err != nil {
		return errs.Wrap(errs.Validation, err, "decode body")
	}
	return
}

type statusResponse struct {
	*identity.Status
	Stats *syncmgr.Stats `json:"stats"`
}

func (b *Bridge) handleStatus(w http.ResponseWriter, r *http.Request) {
	check, _ := strconv.ParseBool(r.URL.Query().Get("check"))
	s, err := b.Identity.Status(r.Context(), check)
	if err != nil {
		writeError(w, err)
		return
	}
	var st *syncmgr.Stats
	if st, err = b.Engine.Stats(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{s, st})
}

type pubKeyBody struct {
	PubKey string `json:"pubkey"`
	Npub   string `json:"npub,omitempty"`
}

func (b *Bridge) handleGetPubKey(w http.ResponseWriter, r *http.Request) {
	pk, err := b.Identity.PubKey(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := pubKeyBody{PubKey: pk}
	if pk != "" {
		out.Npub, _ = keys.EncodeNpub(pk)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Bridge) handleSetPubKey(w http.ResponseWriter, r *http.Request) {
	var in pubKeyBody
	if err := readJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	pk, err := b.Identity.SetPubKey(r.Context(), in.PubKey)
	if err != nil {
		writeError(w, err)
		return
	}
	out := pubKeyBody{PubKey: pk}
	out.Npub, _ = keys.EncodeNpub(pk)
	writeJSON(w, http.StatusOK, out)
}

func (b *Bridge) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := b.Identity.Disconnect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type relaysBody struct {
	Relays  []string `json:"relays"`
	Dropped []string `json:"dropped,omitempty"`
}

func (b *Bridge) handleGetRelays(w http.ResponseWriter, r *http.Request) {
	relays, err := b.Identity.Relays(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, relaysBody{Relays: relays})
}

func (b *Bridge) handleSetRelays(w http.ResponseWriter, r *http.Request) {
	var in relaysBody
	if err := readJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	relays, dropped, err := b.Identity.SetRelays(r.Context(), in.Relays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, relaysBody{relays, dropped})
}

func (b *Bridge) handleSync(w http.ResponseWriter, r *http.Request) {
	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))
	res, err := b.Scheduler.SyncNow(r.Context(), full)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (b *Bridge) handleSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.Scheduler.Status())
}

// queryInt reads a non-negative integer query parameter, 0 when absent.
func queryInt(r *http.Request, name string) (n int, err error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return
	}
	if n, err = strconv.Atoi(v); err != nil || n < 0 {
		return 0, errs.New(errs.Validation, "%s must be a non-negative integer", name)
	}
	return
}

func (b *Bridge) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	var entries []syncmgr.LogEntry
	if entries, err = b.Engine.SyncLog(r.Context(), limit); err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []syncmgr.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (b *Bridge) handleCleanup(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, err)
		return
	}
	var n int
	if n, err = b.Engine.ClearFailed(r.Context(),
		time.Duration(days)*24*time.Hour); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (b *Bridge) handleListRecords(w http.ResponseWriter, r *http.Request) {
	status := content.Status(r.URL.Query().Get("status"))
	rs := []*content.Record{}
	err := b.Engine.Store.Range(r.Context(), func(rec *content.Record) bool {
		if status == "" || rec.Status == status {
			rs = append(rs, rec)
		}
		return true
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (b *Bridge) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := b.Engine.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RecordInput is the editable part of a record. Absent fields keep their
// current value on update.
type RecordInput struct {
	Type        content.Type `json:"type"`
	Title       *string      `json:"title"`
	Body        *string      `json:"body"`
	Slug        *string      `json:"slug"`
	URL         *string      `json:"url"`
	Image       *string      `json:"image"`
	Tags        []string     `json:"tags"`
	PublishedAt *time.Time   `json:"published_at"`
	SyncEnabled *bool        `json:"sync_enabled"`
}

// Apply copies the set fields of in onto rec.
func (in *RecordInput) Apply(rec *content.Record) {
	if in.Type != "" {
		rec.Type = in.Type
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&rec.Title, in.Title)
	set(&rec.Body, in.Body)
	set(&rec.Slug, in.Slug)
	set(&rec.URL, in.URL)
	set(&rec.Image, in.Image)
	if in.Tags != nil {
		rec.Tags = in.Tags
	}
	if in.PublishedAt != nil {
		rec.PublishedAt = *in.PublishedAt
	}
}

type saveResponse struct {
	Record *content.Record `json:"record"`
	Queued bool            `json:"queued"`
}

func (b *Bridge) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	var in RecordInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	c := r.Context()
	rec := &content.Record{}
	status := http.StatusCreated
	if id := r.PathValue("id"); id != "" {
		var err error
		if rec, err = b.Engine.Store.Get(c, id); err != nil {
			writeError(w, err)
			return
		}
		status = http.StatusOK
	} else if in.Type == "" {
		in.Type = content.Note
	}
	in.Apply(rec)
	if rec.ID == "" && rec.PublishedAt.IsZero() {
		rec.PublishedAt = time.Now().UTC()
	}
	queued, err := b.Engine.SaveLocal(c, rec)
	if err != nil {
		writeError(w, err)
		return
	}
	if in.SyncEnabled != nil && *in.SyncEnabled != rec.SyncEnabled {
		if rec, err = b.Engine.SetSyncEnabled(c, rec.ID, *in.SyncEnabled); err != nil {
			writeError(w, err)
			return
		}
		queued = rec.Status == content.StatusPending && rec.SyncEnabled
	}
	writeJSON(w, status, saveResponse{rec, queued})
}

func (b *Bridge) handleUnsigned(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	pk, err := b.Identity.RequirePubKey(c)
	if err != nil {
		writeError(w, err)
		return
	}
	var ev *event.Unsigned
	if ev, err = b.Engine.BuildUnsignedEvent(c, r.PathValue("id"), pk); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (b *Bridge) handlePublish(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	ev := &event.T{}
	if err := readJSON(r, ev); err != nil {
		writeError(w, err)
		return
	}
	pk, err := b.Identity.RequirePubKey(c)
	if err != nil {
		writeError(w, err)
		return
	}
	var relays []string
	if relays, err = b.Identity.Relays(c); err != nil {
		writeError(w, err)
		return
	}
	var out *syncmgr.PublishOutcome
	if out, err = b.Engine.Publish(c, r.PathValue("id"), relays, pk, ev); err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if !out.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, out)
}

func (b *Bridge) handlePending(w http.ResponseWriter, r *http.Request) {
	rs, err := b.Engine.Pending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rs == nil {
		rs = []*content.Record{}
	}
	writeJSON(w, http.StatusOK, rs)
}

// handleEvents queries the relays directly by kind, author or tag (name:value)
// and returns the events newest first.
func (b *Bridge) handleEvents(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	relays, err := b.Identity.Relays(c)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	var evs []*event.T
	switch {
	case q.Get("kind") != "":
		var k uint64
		if k, err = strconv.ParseUint(q.Get("kind"), 10, 16); err != nil {
			writeError(w, errs.Wrap(errs.Validation, err, "kind"))
			return
		}
		evs = b.Client.EventsByKind(c, relays, kind.T(k))
	case q.Get("author") != "":
		var pk string
		if pk, err = keys.ParsePublicKey(q.Get("author")); err != nil {
			writeError(w, err)
			return
		}
		evs = b.Client.EventsByAuthor(c, relays, pk)
	case q.Get("tag") != "":
		name, value, ok := strings.Cut(q.Get("tag"), ":")
		if !ok || name == "" {
			writeError(w, errs.New(errs.Validation, "tag must be name:value"))
			return
		}
		evs = b.Client.EventsByTag(c, relays, name, value)
	default:
		writeError(w, errs.New(errs.Validation, "one of kind, author or tag is required"))
		return
	}
	evs = syncmgr.Dedupe(evs)
	sort.Stable(event.Descending(evs))
	writeJSON(w, http.StatusOK, evs)
}

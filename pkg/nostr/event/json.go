package event

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tags"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
)

// MarshalJSON renders the event object with keys in the conventional order.
func (ev *T) MarshalJSON() (b []byte, err error) {
	b = make([]byte, 0, 300+len(ev.Content)+len(ev.Tags)*80)
	b = append(b, `{"id":`...)
	b = text.EscapeString(b, string(ev.ID))
	b = append(b, `,"pubkey":`...)
	b = text.EscapeString(b, ev.PubKey)
	b = append(b, `,"created_at":`...)
	b = strconv.AppendInt(b, int64(ev.CreatedAt), 10)
	b = append(b, `,"kind":`...)
	b = strconv.AppendUint(b, uint64(ev.Kind), 10)
	b = append(b, `,"tags":`...)
	b = appendTags(b, ev.Tags)
	b = append(b, `,"content":`...)
	b = text.EscapeString(b, ev.Content)
	b = append(b, `,"sig":`...)
	b = text.EscapeString(b, ev.Sig)
	return append(b, '}'), nil
}

// wireEvent uses pointers so a missing key can be told apart from a zero
// value.
type wireEvent struct {
	ID        *string    `json:"id"`
	PubKey    *string    `json:"pubkey"`
	CreatedAt *int64     `json:"created_at"`
	Kind      *uint16    `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   *string    `json:"content"`
	Sig       *string    `json:"sig"`
}

// UnmarshalJSON decodes an event object, recording which required keys were
// absent so ValidateSigned can report them.
func (ev *T) UnmarshalJSON(b []byte) (err error) {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return errs.New(errs.Protocol, "event is null")
	}
	var w wireEvent
	if err = json.Unmarshal(b, &w); err != nil {
		return
	}
	*ev = T{decoded: true}
	if w.ID != nil {
		ev.ID = eventid.T(*w.ID)
	} else {
		ev.absent = append(ev.absent, "id")
	}
	if w.PubKey != nil {
		ev.PubKey = *w.PubKey
	} else {
		ev.absent = append(ev.absent, "pubkey")
	}
	if w.CreatedAt != nil {
		ev.CreatedAt = timestamp.T(*w.CreatedAt)
	} else {
		ev.absent = append(ev.absent, "created_at")
	}
	if w.Kind != nil {
		ev.Kind = kind.T(*w.Kind)
	} else {
		ev.absent = append(ev.absent, "kind")
	}
	if w.Content != nil {
		ev.Content = *w.Content
	} else {
		ev.absent = append(ev.absent, "content")
	}
	if w.Sig != nil {
		ev.Sig = *w.Sig
	} else {
		ev.absent = append(ev.absent, "sig")
	}
	if w.Tags != nil {
		ev.Tags = make(tags.T, len(w.Tags))
		for i := range w.Tags {
			ev.Tags[i] = w.Tags[i]
		}
	}
	return
}

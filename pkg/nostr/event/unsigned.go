package event

import (
	"strconv"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tags"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
)

// Unsigned is an event as handed to the external signer. It has no id and no
// sig field, the signer computes and fills both.
type Unsigned struct {
	PubKey    string      `json:"pubkey,omitempty"`
	CreatedAt timestamp.T `json:"created_at"`
	Kind      kind.T      `json:"kind"`
	Tags      tags.T      `json:"tags"`
	Content   string      `json:"content"`
}

// MarshalJSON encodes the unsigned event with the same string escaping as
// signed events so the signer hashes exactly what was built.
func (u *Unsigned) MarshalJSON() (b []byte, err error) {
	b = make([]byte, 0, 100+len(u.Content)+len(u.Tags)*80)
	b = append(b, '{')
	if u.PubKey != "" {
		b = append(b, `"pubkey":`...)
		b = text.EscapeString(b, u.PubKey)
		b = append(b, ',')
	}
	b = append(b, `"created_at":`...)
	b = strconv.AppendInt(b, int64(u.CreatedAt), 10)
	b = append(b, `,"kind":`...)
	b = strconv.AppendUint(b, uint64(u.Kind), 10)
	b = append(b, `,"tags":`...)
	t := u.Tags
	if t == nil {
		t = tags.T{}
	}
	b = appendTags(b, t)
	b = append(b, `,"content":`...)
	b = text.EscapeString(b, u.Content)
	return append(b, '}'), nil
}

// ToEvent returns the signed form skeleton with the id computed, for callers
// that want to preview the id the signer will produce.
func (u *Unsigned) ToEvent() (ev *T) {
	ev = &T{
		PubKey:    u.PubKey,
		CreatedAt: u.CreatedAt,
		Kind:      u.Kind,
		Tags:      u.Tags.Clone(),
		Content:   u.Content,
	}
	if ev.Tags == nil {
		ev.Tags = tags.T{}
	}
	if ev.PubKey != "" {
		ev.ID = ev.GetID()
	}
	return
}

package event

import (
	"encoding/hex"
	"os"
	"strconv"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tags"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/minio/sha256-simd"
)

var log, chk = slog.New(os.Stderr)

func Hash(in []byte) (out []byte) {
	h := sha256.Sum256(in)
	return h[:]
}

// T is the primary datatype of nostr. This is the form of the structure
// that defines its JSON string based format.
type T struct {

	// ID is the SHA256 hash of the canonical encoding of the event
	ID eventid.T

	// PubKey is the public key of the event creator in *hexadecimal* format
	PubKey string

	// CreatedAt is the UNIX timestamp of the event according to the event
	// creator (never trust a timestamp!)
	CreatedAt timestamp.T

	// Kind is the nostr protocol code for the type of event. See kind.T
	Kind kind.T

	// Tags are a list of tags, which are a list of strings usually structured
	// as a 3 layer scheme indicating specific features of an event.
	Tags tags.T

	// Content is an arbitrary string that can contain anything, but usually
	// conforming to a NIP relating to the Kind and the Tags.
	Content string

	// Sig is the signature on the ID hash that validates as coming from the
	// Pubkey. It is produced by an external signer and only ever forwarded.
	Sig string

	// absent lists the required keys that were missing from the JSON this
	// event was decoded from.
	absent  []string
	decoded bool
}

// Ascending is a slice of events that sorts in ascending chronological order
type Ascending []*T

func (ev Ascending) Len() int           { return len(ev) }
func (ev Ascending) Less(i, j int) bool { return ev[i].CreatedAt < ev[j].CreatedAt }
func (ev Ascending) Swap(i, j int)      { ev[i], ev[j] = ev[j], ev[i] }

// Descending sorts a slice of events in reverse chronological order (newest
// first)
type Descending []*T

func (e Descending) Len() int           { return len(e) }
func (e Descending) Less(i, j int) bool { return e[i].CreatedAt > e[j].CreatedAt }
func (e Descending) Swap(i, j int)      { e[i], e[j] = e[j], e[i] }

// Serialize returns the canonical form used to generate the ID hash:
//
//	[0,<pubkey>,<created_at>,<kind>,<tags>,<content>]
//
// with no whitespace and strings escaped as per NIP-01.
func (ev *T) Serialize() (b []byte) {
	b = make([]byte, 0, 100+len(ev.Content)+len(ev.Tags)*80)
	b = append(b, "[0,"...)
	b = text.EscapeString(b, ev.PubKey)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(ev.CreatedAt), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(ev.Kind), 10)
	b = append(b, ',')
	b = appendTags(b, ev.Tags)
	b = append(b, ',')
	b = text.EscapeString(b, ev.Content)
	return append(b, ']')
}

func appendTags(b []byte, t tags.T) []byte {
	b = append(b, '[')
	for i := range t {
		if i > 0 {
			b = append(b, ',')
		}
		b = text.AppendStringArray(b, t[i])
	}
	return append(b, ']')
}

// GetIDBytes returns the raw SHA256 hash of the canonical form of an T.
func (ev *T) GetIDBytes() []byte { return Hash(ev.Serialize()) }

// GetID serializes and returns the event ID as a hexadecimal string.
func (ev *T) GetID() eventid.T {
	return eventid.T(hex.EncodeToString(ev.GetIDBytes()))
}

// Clone makes a deep copy of the event.
func (ev *T) Clone() *T {
	c := *ev
	c.Tags = ev.Tags.Clone()
	c.absent = append([]string(nil), ev.absent...)
	return &c
}

// HasReplyTag reports whether the event references another event with an `e`
// tag.
func (ev *T) HasReplyTag() bool { return ev.Tags.Has("e") }

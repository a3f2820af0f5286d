package okenvelope

import (
	"encoding/json"
	"strings"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
)

var _ enveloper.I = (*T)(nil)

// Reason is the machine readable prefix of an OK message.
type Reason string

// Prefixes a relay uses when the same event may be accepted later.
const (
	RateLimited Reason = "rate-limited"
	Error       Reason = "error"
)

// Transient reports whether a rejection with this prefix may succeed when
// the event is sent again.
func (r Reason) Transient() bool { return r == RateLimited || r == Error }

// T is a relay message sent in response to an EVENT to indicate acceptance (OK
// is true) or rejection, with a human readable Reason whose first word is a
// machine readable prefix such as "blocked" or "rate-limited", followed by
// ": " and a message.
//
//	["OK", <event id>, <true|false>, <message>]
type T struct {
	ID     eventid.T
	OK     bool
	Reason string
}

func New(id eventid.T, ok bool, reason string) *T {
	return &T{ID: id, OK: ok, Reason: reason}
}

func (env *T) Label() string { return labels.OK }

// Prefix returns the machine readable part of the reason, if any.
func (env *T) Prefix() Reason {
	if i := strings.Index(env.Reason, ":"); i > 0 {
		return Reason(env.Reason[:i])
	}
	return ""
}

func (env *T) MarshalJSON() (b []byte, err error) {
	b = append(b, `["OK",`...)
	b = text.EscapeString(b, string(env.ID))
	if env.OK {
		b = append(b, ",true,"...)
	} else {
		b = append(b, ",false,"...)
	}
	b = text.EscapeString(b, env.Reason)
	return append(b, ']'), nil
}

// Unmarshal accepts the message with or without the trailing reason, some
// relays omit it on success.
func (env *T) Unmarshal(parts []json.RawMessage) (err error) {
	if len(parts) < 3 {
		return errs.New(errs.Protocol, "OK has %d elements", len(parts))
	}
	var id string
	if err = json.Unmarshal(parts[1], &id); err != nil {
		return errs.Wrap(errs.Protocol, err, "OK event id")
	}
	env.ID = eventid.T(id)
	if err = json.Unmarshal(parts[2], &env.OK); err != nil {
		return errs.Wrap(errs.Protocol, err, "OK status")
	}
	if len(parts) > 3 {
		if err = json.Unmarshal(parts[3], &env.Reason); err != nil {
			return errs.Wrap(errs.Protocol, err, "OK reason")
		}
	}
	return
}

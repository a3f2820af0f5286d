package eventenvelope

import (
	"encoding/json"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/subscriptionid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
)

var _ enveloper.I = (*T)(nil)

// T is the wrapper for an event. A client publishing sends it without a
// subscription id:
//
//	["EVENT", <event>]
//
// and a relay answering a REQ sends it with one:
//
//	["EVENT", <subscription id>, <event>]
type T struct {
	SubscriptionID subscriptionid.T
	Event          *event.T
}

func New(sub subscriptionid.T, ev *event.T) *T {
	return &T{SubscriptionID: sub, Event: ev}
}

func (env *T) Label() string { return labels.EVENT }

func (env *T) MarshalJSON() (b []byte, err error) {
	b = append(b, `["EVENT",`...)
	if env.SubscriptionID != "" {
		b = text.EscapeString(b, string(env.SubscriptionID))
		b = append(b, ',')
	}
	var evb []byte
	if evb, err = env.Event.MarshalJSON(); err != nil {
		return
	}
	b = append(b, evb...)
	return append(b, ']'), nil
}

func (env *T) Unmarshal(parts []json.RawMessage) (err error) {
	var raw json.RawMessage
	switch len(parts) {
	case 2:
		raw = parts[1]
	case 3:
		var sub string
		if err = json.Unmarshal(parts[1], &sub); err != nil {
			return errs.Wrap(errs.Protocol, err, "EVENT subscription id")
		}
		env.SubscriptionID = subscriptionid.T(sub)
		raw = parts[2]
	default:
		return errs.New(errs.Protocol, "EVENT has %d elements", len(parts))
	}
	env.Event = new(event.T)
	if err = json.Unmarshal(raw, env.Event); err != nil {
		return errs.Wrap(errs.Protocol, err, "EVENT payload")
	}
	return
}

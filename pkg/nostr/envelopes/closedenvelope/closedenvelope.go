package closedenvelope

import (
	"encoding/json"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/subscriptionid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
)

var _ enveloper.I = (*T)(nil)

// T is sent by a relay that refuses or ends a subscription on its side:
//
//	["CLOSED", <subscription id>, <message>]
type T struct {
	SubscriptionID subscriptionid.T
	Reason         string
}

func New(sub subscriptionid.T, reason string) *T {
	return &T{SubscriptionID: sub, Reason: reason}
}

func (env *T) Label() string { return labels.CLOSED }

func (env *T) MarshalJSON() (b []byte, err error) {
	b = append(b, `["CLOSED",`...)
	b = text.EscapeString(b, string(env.SubscriptionID))
	b = append(b, ',')
	b = text.EscapeString(b, env.Reason)
	return append(b, ']'), nil
}

func (env *T) Unmarshal(parts []json.RawMessage) (err error) {
	if len(parts) < 2 {
		return errs.New(errs.Protocol, "CLOSED has %d elements", len(parts))
	}
	var sub string
	if err = json.Unmarshal(parts[1], &sub); err != nil {
		return errs.Wrap(errs.Protocol, err, "CLOSED subscription id")
	}
	env.SubscriptionID = subscriptionid.T(sub)
	if len(parts) > 2 {
		if err = json.Unmarshal(parts[2], &env.Reason); err != nil {
			return errs.Wrap(errs.Protocol, err, "CLOSED reason")
		}
	}
	return
}

package eoseenvelope

import (
	"encoding/json"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/subscriptionid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
)

var _ enveloper.I = (*T)(nil)

// T is the End Of Stored Events marker: ["EOSE", <subscription id>]
type T struct {
	SubscriptionID subscriptionid.T
}

func New(sub subscriptionid.T) *T { return &T{SubscriptionID: sub} }

func (env *T) Label() string { return labels.EOSE }

func (env *T) MarshalJSON() (b []byte, err error) {
	b = append(b, `["EOSE",`...)
	b = text.EscapeString(b, string(env.SubscriptionID))
	return append(b, ']'), nil
}

func (env *T) Unmarshal(parts []json.RawMessage) (err error) {
	if len(parts) < 2 {
		return errs.New(errs.Protocol, "EOSE has %d elements", len(parts))
	}
	var sub string
	if err = json.Unmarshal(parts[1], &sub); err != nil {
		return errs.Wrap(errs.Protocol, err, "EOSE subscription id")
	}
	env.SubscriptionID = subscriptionid.T(sub)
	return
}

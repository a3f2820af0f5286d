package reqenvelope

import (
	"encoding/json"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/filter"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/subscriptionid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
)

var _ enveloper.I = (*T)(nil)

// T opens a subscription:
//
//	["REQ", <subscription id>, <filter>, <filter>...]
type T struct {
	SubscriptionID subscriptionid.T
	Filters        []*filter.T
}

func New(sub subscriptionid.T, filters ...*filter.T) *T {
	return &T{SubscriptionID: sub, Filters: filters}
}

func (env *T) Label() string { return labels.REQ }

func (env *T) MarshalJSON() (b []byte, err error) {
	b = append(b, `["REQ",`...)
	b = text.EscapeString(b, string(env.SubscriptionID))
	for _, f := range env.Filters {
		var fb []byte
		if fb, err = f.MarshalJSON(); err != nil {
			return
		}
		b = append(b, ',')
		b = append(b, fb...)
	}
	return append(b, ']'), nil
}

func (env *T) Unmarshal(parts []json.RawMessage) (err error) {
	if len(parts) < 3 {
		return errs.New(errs.Protocol, "REQ has %d elements", len(parts))
	}
	var sub string
	if err = json.Unmarshal(parts[1], &sub); err != nil {
		return errs.Wrap(errs.Protocol, err, "REQ subscription id")
	}
	env.SubscriptionID = subscriptionid.T(sub)
	for _, p := range parts[2:] {
		f := new(filter.T)
		if err = json.Unmarshal(p, f); err != nil {
			return errs.Wrap(errs.Protocol, err, "REQ filter")
		}
		env.Filters = append(env.Filters, f)
	}
	return
}

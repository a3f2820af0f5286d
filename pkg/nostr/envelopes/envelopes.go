// Package envelopes identifies and decodes nostr wire messages.
package envelopes

import (
	"encoding/json"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/closedenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/closeenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/eoseenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/okenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/reqenvelope"
)

// Parse decodes a message into its envelope type. Anything that is not a JSON
// array headed by a known label is a Protocol error.
func Parse(msg []byte) (env enveloper.I, err error) {
	var parts []json.RawMessage
	if err = json.Unmarshal(msg, &parts); err != nil {
		return nil, errs.Wrap(errs.Protocol, err, "message is not a JSON array")
	}
	if len(parts) == 0 {
		return nil, errs.New(errs.Protocol, "empty message")
	}
	var label string
	if err = json.Unmarshal(parts[0], &label); err != nil {
		return nil, errs.Wrap(errs.Protocol, err, "message label")
	}
	switch label {
	case labels.EVENT:
		env = new(eventenvelope.T)
	case labels.REQ:
		env = new(reqenvelope.T)
	case labels.CLOSE:
		env = new(closeenvelope.T)
	case labels.OK:
		env = new(okenvelope.T)
	case labels.EOSE:
		env = new(eoseenvelope.T)
	case labels.NOTICE:
		env = new(noticeenvelope.T)
	case labels.CLOSED:
		env = new(closedenvelope.T)
	default:
		return nil, errs.New(errs.Protocol, "unknown message label %q", label)
	}
	if err = env.Unmarshal(parts); err != nil {
		return nil, err
	}
	return
}

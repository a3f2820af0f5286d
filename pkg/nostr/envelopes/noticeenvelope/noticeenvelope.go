package noticeenvelope

import (
	"encoding/json"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
)

var _ enveloper.I = (*T)(nil)

// T is a human readable message from a relay: ["NOTICE", <message>]
type T struct {
	Text string
}

func New(s string) *T { return &T{Text: s} }

func (env *T) Label() string { return labels.NOTICE }

func (env *T) MarshalJSON() (b []byte, err error) {
	b = append(b, `["NOTICE",`...)
	b = text.EscapeString(b, env.Text)
	return append(b, ']'), nil
}

func (env *T) Unmarshal(parts []json.RawMessage) (err error) {
	if len(parts) < 2 {
		return errs.New(errs.Protocol, "NOTICE has %d elements", len(parts))
	}
	if err = json.Unmarshal(parts[1], &env.Text); err != nil {
		return errs.Wrap(errs.Protocol, err, "NOTICE text")
	}
	return
}

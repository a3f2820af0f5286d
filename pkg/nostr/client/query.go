package client

import (
	"errors"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/closedenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/closeenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/eoseenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/reqenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/filter"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/subscriptionid"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/websocket"
)

// Query opens a subscription with f on relay and collects the events sent for
// it until EOSE, a CLOSED for it, or QueryTimeout. Messages for other
// subscriptions, malformed messages and events f does not match are ignored. ["CLOSE", sub] is sent
// before the connection is closed however the loop ended.
func (cl *T) Query(c context.T, relay string, f *filter.T) (evs []*event.T, err error) {
	var conn *websocket.Conn
	if conn, err = websocket.Dial(c, relay, cl.Transport); err != nil {
		return
	}
	defer conn.Close()
	sub := subscriptionid.New("sub_")
	var msg []byte
	if msg, err = reqenvelope.New(sub, f).MarshalJSON(); err != nil {
		return nil, errs.Wrap(errs.Protocol, err, "encode REQ")
	}
	if err = conn.Send(c, msg); err != nil {
		return
	}
	cl.log.D.F("%s: REQ %s %s", relay, sub, f)
	defer func() {
		// best effort, the subscription dies with the connection anyway
		if b, e := closeenvelope.New(sub).MarshalJSON(); e == nil {
			if e = conn.Send(context.Bg(), b); e != nil {
				cl.log.T.F("%s: CLOSE %s: %v", relay, sub, e)
			}
		}
	}()
	deadline := time.Now().Add(cl.QueryTimeout)
	for time.Now().Before(deadline) {
		var in []byte
		if in, err = conn.Receive(c, cl.PollInterval); err != nil {
			if errors.Is(err, errs.Protocol) {
				cl.log.D.F("%s: %v", relay, err)
				err = nil
				continue
			}
			return nil, err
		}
		if in == nil {
			continue
		}
		env, perr := envelopes.Parse(in)
		if perr != nil {
			cl.log.T.F("ignoring message from %s: %v", relay, perr)
			continue
		}
		switch e := env.(type) {
		case *eventenvelope.T:
			if e.SubscriptionID != sub {
				cl.log.T.F("%s: event for other subscription %q", relay,
					e.SubscriptionID)
				continue
			}
			if !f.Matches(e.Event) {
				cl.log.D.F("%s: dropping event %s outside the filter", relay,
					e.Event.ID)
				continue
			}
			evs = append(evs, e.Event)
		case *eoseenvelope.T:
			if e.SubscriptionID != sub {
				continue
			}
			cl.log.D.F("%s: EOSE after %d events", relay, len(evs))
			return
		case *closedenvelope.T:
			if e.SubscriptionID != sub {
				continue
			}
			cl.log.I.F("%s: subscription closed by relay: %s", relay, e.Reason)
			return
		case *noticeenvelope.T:
			cl.log.I.F("%s: NOTICE %q", relay, e.Text)
		}
	}
	cl.log.D.F("%s: query timed out after %d events", relay, len(evs))
	return
}

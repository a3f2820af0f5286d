package client

import (
	"errors"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/okenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/websocket"
)

// ReasonTimeout is the PublishResult reason when no answer arrived in time.
const ReasonTimeout = "timeout waiting for relay response"

// PublishResult is the outcome of publishing one event to one relay.
type PublishResult struct {
	Relay    string `json:"relay"`
	Accepted bool   `json:"accepted"`
	// Reason is the OK message, the NOTICE text or ReasonTimeout.
	Reason string `json:"reason,omitempty"`
	// Transient is set on a rejection that may not recur: a timeout, a
	// connection failure or an OK prefixed rate-limited or error.
	Transient bool `json:"transient,omitempty"`
	// Err is set when the relay could not be reached or the connection
	// failed.
	Err error `json:"-"`
}

// Publish sends ["EVENT", ev] to relay and waits for an OK carrying the
// event id, or a NOTICE, for at most PublishTimeout. An OK decides Accepted. A
// NOTICE or timeout is a rejection. err is only set when the relay could not be
// reached or the connection failed. The connection is always closed before
// returning.
func (cl *T) Publish(c context.T, relay string, ev *event.T) (res *PublishResult, err error) {
	res = &PublishResult{Relay: relay}
	defer func() {
		if res.Err != nil && !errors.Is(res.Err, errs.Validation) {
			res.Transient = true
		}
	}()
	var msg []byte
	if msg, err = eventenvelope.New("", ev).MarshalJSON(); err != nil {
		err = errs.Wrap(errs.Validation, err, "encode event %s", ev.ID)
		res.Err = err
		return
	}
	var conn *websocket.Conn
	if conn, err = websocket.Dial(c, relay, cl.Transport); err != nil {
		res.Err = err
		return
	}
	defer conn.Close()
	if err = conn.Send(c, msg); err != nil {
		res.Err = err
		return
	}
	cl.log.D.F("published %s to %s, awaiting OK", ev.ID, relay)
	deadline := time.Now().Add(cl.PublishTimeout)
	for time.Now().Before(deadline) {
		var in []byte
		if in, err = conn.Receive(c, cl.PollInterval); err != nil {
			if errors.Is(err, errs.Protocol) {
				cl.log.D.F("%s: %v", relay, err)
				err = nil
				continue
			}
			res.Err = err
			return
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
		case *okenvelope.T:
			if e.ID != ev.ID {
				cl.log.T.F("%s: OK for other event %s", relay, e.ID)
				continue
			}
			res.Accepted, res.Reason = e.OK, e.Reason
			res.Transient = !e.OK && e.Prefix().Transient()
			cl.log.D.F("%s: OK %v %q for %s", relay, e.OK, e.Reason, ev.ID)
			return
		case *noticeenvelope.T:
			res.Reason = e.Text
			cl.log.I.F("%s: NOTICE %q while publishing %s", relay, e.Text, ev.ID)
			return
		default:
			cl.log.T.F("%s: ignoring %s while publishing", relay, env.Label())
		}
	}
	res.Reason, res.Transient = ReasonTimeout, true
	cl.log.W.F("%s: no answer to %s within %v", relay, ev.ID, cl.PublishTimeout)
	return
}

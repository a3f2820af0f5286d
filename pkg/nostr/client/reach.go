package client

import (
	"net"
	"net/url"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
)

// TestRelay checks that the relay host accepts TCP connections. It does not
// perform the websocket handshake.
func (cl *T) TestRelay(c context.T, relay string) (err error) {
	var u *url.URL
	if u, err = url.Parse(relay); err != nil || !IsRelayURL(relay) {
		return errs.New(errs.Configuration, "invalid relay URL %q", relay)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "ws" {
			port = "80"
		}
	}
	d := net.Dialer{Timeout: cl.CheckTimeout}
	var conn net.Conn
	if conn, err = d.DialContext(c, "tcp", net.JoinHostPort(u.Hostname(), port)); err != nil {
		return errs.Wrap(errs.Transport, err, "reach %s", relay)
	}
	chk.T(conn.Close())
	return
}

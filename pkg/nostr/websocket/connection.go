// Package websocket is a minimal client side websocket transport for talking
// to nostr relays.
//
// The opening handshake is done by gobwas/ws. After that frames are written
// and read directly: every outgoing message is one masked text frame, and
// incoming frames are read one header at a time under a deadline so that a
// quiet connection reads as "no message" rather than an error.
package websocket

import (
	"bufio"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/Hubmakerlabs/nostrbridge/pkg/units"
	"github.com/gobwas/ws"
	"lukechampine.com/frand"
)

const (
	DefaultDialTimeout    = 10 * time.Second
	DefaultFrameTimeout   = 10 * time.Second
	DefaultMaxMessageSize = 16 * units.MiB
)

// Options configure a connection. The zero value is usable.
type Options struct {
	// InsecureTLS skips certificate verification on wss:// connections.
	InsecureTLS bool
	// DialTimeout bounds the TCP connect, the TLS handshake and the upgrade.
	DialTimeout time.Duration
	// FrameTimeout bounds reading the rest of a frame once its header has
	// started to arrive.
	FrameTimeout time.Duration
	// MaxMessageSize caps a single message, reassembled fragments included.
	MaxMessageSize int64
	// Header is sent with the upgrade request.
	Header http.Header
	Log    *slog.Log
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.FrameTimeout <= 0 {
		o.FrameTimeout = DefaultFrameTimeout
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.Log == nil {
		o.Log = slog.GetStd()
	}
	return o
}

// Conn is a client websocket connection to one relay.
type Conn struct {
	URL  string
	opts Options
	log  *slog.Log
	conn net.Conn
	br   *bufio.Reader
	wmx  sync.Mutex
	// fragment holds a partially received message and fragOp its opcode.
	fragment []byte
	fragOp   ws.OpCode
	closed   atomic.Bool
}

// Dial connects to a ws:// or wss:// URL and performs the opening handshake.
// Anything other than a 101 response is a Transport error.
func Dial(c context.T, url string, opts Options) (conn *Conn, err error) {
	opts = opts.withDefaults()
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return nil, errs.New(errs.Transport, "unsupported relay URL %q", url)
	}
	// no extensions are requested, the dialer fails the handshake if the
	// relay selects one anyway
	dialer := ws.Dialer{Timeout: opts.DialTimeout}
	if strings.HasPrefix(url, "wss://") {
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: opts.InsecureTLS}
	}
	if opts.Header != nil {
		dialer.Header = ws.HandshakeHeaderHTTP(opts.Header)
	}
	var nc net.Conn
	var br *bufio.Reader
	if nc, br, _, err = dialer.Dial(c, url); err != nil {
		var status ws.StatusError
		if errors.As(err, &status) {
			return nil, errs.Wrap(errs.Transport, err,
				"%s answered upgrade with status %d", url, int(status))
		}
		return nil, errs.Wrap(errs.Transport, err, "dial %s", url)
	}
	if br == nil {
		br = bufio.NewReader(nc)
	}
	conn = &Conn{URL: url, opts: opts, log: opts.Log, conn: nc, br: br}
	conn.log.T.F("connected to %s", url)
	return
}

// Send writes msg as a single masked text frame.
func (c *Conn) Send(ctx context.T, msg []byte) (err error) {
	return c.writeFrame(ctx, ws.NewTextFrame(msg))
}

func (c *Conn) writeFrame(ctx context.T, f ws.Frame) (err error) {
	if c.closed.Load() {
		return errs.New(errs.Transport, "send on closed connection to %s", c.URL)
	}
	var mask [4]byte
	frand.Read(mask[:])
	f = ws.MaskFrameWith(f, mask)
	c.wmx.Lock()
	defer c.wmx.Unlock()
	deadline := time.Now().Add(c.opts.FrameTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err = c.conn.SetWriteDeadline(deadline); err != nil {
		return errs.Wrap(errs.Transport, err, "set write deadline")
	}
	if err = ws.WriteFrame(c.conn, f); err != nil {
		return errs.Wrap(errs.Transport, err, "write to %s", c.URL)
	}
	c.log.T.F("sent frame opcode %d of %d bytes to %s", f.Header.OpCode,
		f.Header.Length, c.URL)
	return
}

// Receive waits up to timeout for the next complete message.
//
// If nothing arrives, or fewer than two header bytes arrive, before the
// deadline Receive returns nil and no error, and no bytes are consumed. Ping
// frames are answered and fragmented messages are reassembled, possibly over
// several calls. A close frame or a dropped connection is a Transport error,
// a frame that breaks the framing rules is a Protocol error.
func (c *Conn) Receive(ctx context.T, timeout time.Duration) (msg []byte, err error) {
	if c.closed.Load() {
		return nil, errs.New(errs.Transport, "receive on closed connection to %s", c.URL)
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	for {
		if err = ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.Transport, err, "receive from %s", c.URL)
		}
		if err = c.conn.SetReadDeadline(deadline); err != nil {
			return nil, errs.Wrap(errs.Transport, err, "set read deadline")
		}
		if _, err = c.br.Peek(2); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, nil
			}
			return nil, errs.Wrap(errs.Transport, err, "read from %s", c.URL)
		}
		// the header has started, give the rest of the frame its own bound
		if err = c.conn.SetReadDeadline(time.Now().Add(c.opts.FrameTimeout)); err != nil {
			return nil, errs.Wrap(errs.Transport, err, "set read deadline")
		}
		var done bool
		if msg, done, err = c.readFrame(ctx); err != nil || done {
			return
		}
	}
}

// readFrame reads one frame. done is true when msg holds a complete message.
func (c *Conn) readFrame(ctx context.T) (msg []byte, done bool, err error) {
	var h ws.Header
	if h, err = ws.ReadHeader(c.br); err != nil {
		return nil, false, errs.Wrap(errs.Transport, err, "read header from %s", c.URL)
	}
	if h.Length > c.opts.MaxMessageSize ||
		int64(len(c.fragment))+h.Length > c.opts.MaxMessageSize {
		return nil, false, errs.New(errs.Transport,
			"frame of %d bytes from %s exceeds limit %d", h.Length, c.URL,
			c.opts.MaxMessageSize)
	}
	payload := make([]byte, h.Length)
	if _, err = io.ReadFull(c.br, payload); err != nil {
		return nil, false, errs.Wrap(errs.Transport, err, "read payload from %s", c.URL)
	}
	if h.Masked {
		ws.Cipher(payload, h.Mask, 0)
	}
	if h.Rsv != 0 {
		return nil, false, errs.New(errs.Protocol, "frame from %s has reserved bits %03b set",
			c.URL, h.Rsv)
	}
	switch h.OpCode {
	case ws.OpPing:
		c.log.T.F("ping from %s", c.URL)
		if err = c.writeFrame(ctx, ws.NewPongFrame(payload)); err != nil {
			return
		}
		return nil, false, nil
	case ws.OpPong:
		return nil, false, nil
	case ws.OpClose:
		code, reason := ws.ParseCloseFrameData(payload)
		return nil, false, errs.New(errs.Transport, "%s closed the connection: %d %s",
			c.URL, code, reason)
	case ws.OpText, ws.OpBinary:
		if c.fragment != nil {
			c.fragment = nil
			return nil, false, errs.New(errs.Protocol,
				"new message from %s before previous fragments finished", c.URL)
		}
		if h.Fin {
			return payload, true, nil
		}
		c.fragment, c.fragOp = payload, h.OpCode
		return nil, false, nil
	case ws.OpContinuation:
		if c.fragment == nil {
			return nil, false, errs.New(errs.Protocol,
				"continuation frame from %s without a message start", c.URL)
		}
		c.fragment = append(c.fragment, payload...)
		if !h.Fin {
			return nil, false, nil
		}
		msg, c.fragment = c.fragment, nil
		c.log.T.F("reassembled %d byte message (opcode %d) from %s", len(msg),
			c.fragOp, c.URL)
		return msg, true, nil
	default:
		return nil, false, errs.New(errs.Protocol, "unknown opcode %d from %s",
			h.OpCode, c.URL)
	}
}

// Close releases the socket without a closing handshake. Calling it again is
// a no-op.
func (c *Conn) Close() (err error) {
	if c.closed.Swap(true) {
		return
	}
	c.log.T.F("closing connection to %s", c.URL)
	return c.conn.Close()
}

package websocket

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServer runs handler on the server side of every upgraded connection.
func newServer(t *testing.T, handler func(conn net.Conn)) (url string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *Conn {
	t.Helper()
	c, err := Dial(context.Bg(), url, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSendReceiveLengths(t *testing.T) {
	url := newServer(t, func(conn net.Conn) {
		for {
			// the server side reader rejects unmasked client frames
			msg, err := wsutil.ReadClientText(conn)
			if err != nil {
				return
			}
			if err = wsutil.WriteServerText(conn, msg); err != nil {
				return
			}
		}
	})
	c := dial(t, url)
	// 7 bit, 16 bit and 64 bit length encodings
	for _, n := range []int{0, 10, 125, 126, 300, 65535, 70000} {
		payload := bytes.Repeat([]byte{'a' + byte(n%26)}, n)
		require.NoError(t, c.Send(context.Bg(), payload))
		var got []byte
		deadline := time.Now().Add(5 * time.Second)
		for got == nil && time.Now().Before(deadline) {
			var err error
			got, err = c.Receive(context.Bg(), 100*time.Millisecond)
			require.NoError(t, err)
		}
		require.NotNil(t, got, "no echo for %d bytes", n)
		assert.Equal(t, payload, got, "length %d", n)
	}
}

func TestDialRejectsUnrequestedExtension(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req, err := http.ReadRequest(bufio.NewReader(conn))
		if err != nil {
			return
		}
		h := sha1.Sum([]byte(req.Header.Get("Sec-WebSocket-Key") +
			"258EAFA5-E914-47DA-95CA-C5AB0DC85B11"))
		conn.Write([]byte("HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\nConnection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: " + base64.StdEncoding.EncodeToString(h[:]) + "\r\n" +
			"Sec-WebSocket-Extensions: permessage-deflate\r\n\r\n"))
		time.Sleep(time.Second)
	}()
	c, err := Dial(context.Bg(), "ws://"+ln.Addr().String(), Options{})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, errs.Transport), "got %v", err)
	assert.Contains(t, err.Error(), "extensions")
}

func TestReceiveTimeoutIsNoMessage(t *testing.T) {
	hold := make(chan struct{})
	url := newServer(t, func(conn net.Conn) { <-hold })
	defer close(hold)
	c := dial(t, url)
	start := time.Now()
	msg, err := c.Receive(context.Bg(), 50*time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, msg)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPartialHeaderIsNotConsumed(t *testing.T) {
	release := make(chan struct{})
	url := newServer(t, func(conn net.Conn) {
		var buf bytes.Buffer
		_ = ws.WriteFrame(&buf, ws.NewTextFrame([]byte("split")))
		b := buf.Bytes()
		_, _ = conn.Write(b[:1])
		<-release
		_, _ = conn.Write(b[1:])
		time.Sleep(time.Second)
	})
	c := dial(t, url)
	msg, err := c.Receive(context.Bg(), 100*time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, msg)
	close(release)
	msg, err = c.Receive(context.Bg(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "split", string(msg))
}

func TestFragmentedMessage(t *testing.T) {
	url := newServer(t, func(conn net.Conn) {
		_ = ws.WriteFrame(conn, ws.NewFrame(ws.OpText, false, []byte(`["EVENT",`)))
		_ = ws.WriteFrame(conn, ws.NewPingFrame([]byte("p")))
		_ = ws.WriteFrame(conn, ws.NewFrame(ws.OpContinuation, false, []byte(`"sub",`)))
		_ = ws.WriteFrame(conn, ws.NewFrame(ws.OpContinuation, true, []byte(`{}]`)))
		// the pong for the ping above
		h, err := ws.ReadHeader(conn)
		if err == nil && h.OpCode != ws.OpPong {
			t.Errorf("expected pong, got opcode %d", h.OpCode)
		}
		if err == nil && !h.Masked {
			t.Error("pong was not masked")
		}
		time.Sleep(time.Second)
	})
	c := dial(t, url)
	var msg []byte
	for i := 0; i < 20 && msg == nil; i++ {
		var err error
		msg, err = c.Receive(context.Bg(), 100*time.Millisecond)
		require.NoError(t, err)
	}
	assert.Equal(t, `["EVENT","sub",{}]`, string(msg))
}

func TestMaskedServerFrame(t *testing.T) {
	url := newServer(t, func(conn net.Conn) {
		f := ws.MaskFrameWith(ws.NewTextFrame([]byte("masked")), [4]byte{1, 2, 3, 4})
		_ = ws.WriteFrame(conn, f)
		time.Sleep(time.Second)
	})
	c := dial(t, url)
	msg, err := c.Receive(context.Bg(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "masked", string(msg))
}

func TestProtocolViolations(t *testing.T) {
	url := newServer(t, func(conn net.Conn) {
		_ = ws.WriteFrame(conn, ws.NewFrame(ws.OpContinuation, true, []byte("x")))
		f := ws.NewTextFrame([]byte("rsv"))
		f.Header.Rsv = ws.Rsv(true, false, false)
		_ = ws.WriteFrame(conn, f)
		_ = ws.WriteFrame(conn, ws.NewTextFrame([]byte("fine")))
		time.Sleep(time.Second)
	})
	c := dial(t, url)
	_, err := c.Receive(context.Bg(), 2*time.Second)
	assert.ErrorIs(t, err, errs.Protocol)
	_, err = c.Receive(context.Bg(), 2*time.Second)
	assert.ErrorIs(t, err, errs.Protocol)
	msg, err := c.Receive(context.Bg(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "fine", string(msg))
}

func TestServerClose(t *testing.T) {
	url := newServer(t, func(conn net.Conn) {
		body := ws.NewCloseFrameBody(ws.StatusGoingAway, "bye")
		_ = ws.WriteFrame(conn, ws.NewCloseFrame(body))
		time.Sleep(time.Second)
	})
	c := dial(t, url)
	_, err := c.Receive(context.Bg(), 2*time.Second)
	assert.ErrorIs(t, err, errs.Transport)
	assert.Contains(t, err.Error(), "bye")
}

func TestHandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer srv.Close()
	_, err := Dial(context.Bg(), "ws"+strings.TrimPrefix(srv.URL, "http"), Options{})
	assert.ErrorIs(t, err, errs.Transport)
	_, err = Dial(context.Bg(), "http://example.com", Options{})
	assert.ErrorIs(t, err, errs.Transport)
}

func TestCloseIdempotent(t *testing.T) {
	url := newServer(t, func(conn net.Conn) { time.Sleep(time.Second) })
	c, err := Dial(context.Bg(), url, Options{})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(context.Bg(), []byte("x")), errs.Transport)
	_, err = c.Receive(context.Bg(), time.Millisecond)
	assert.ErrorIs(t, err, errs.Transport)
}

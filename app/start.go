package app

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
)

// Server runs a Bridge on a listener.
type Server struct {
	Bridge *Bridge
	// Addr is the bound address once started.
	Addr       string
	httpServer *http.Server
}

// Start listens on addr and serves until Shutdown. started channels are
// closed once the listener is bound.
func (s *Server) Start(addr string, started ...chan bool) (err error) {
	var ln net.Listener
	if ln, err = net.Listen("tcp", addr); chk.E(err) {
		return
	}
	s.Addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:      s.Bridge,
		Addr:         s.Addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  30 * time.Second,
	}
	log.I.Ln("signer bridge listening on", s.Addr)
	// notify caller that we're starting
	for _, ch := range started {
		close(ch)
	}
	if err = s.httpServer.Serve(ln); errors.Is(err, http.ErrServerClosed) {
		return nil
	} else if chk.E(err) {
		return
	}
	return
}

// Shutdown stops accepting requests and waits for running ones until c is
// done.
func (s *Server) Shutdown(c context.T) {
	if s.httpServer == nil {
		return
	}
	chk.E(s.httpServer.Shutdown(c))
}

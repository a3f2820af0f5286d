// Package client speaks the nostr relay protocol over short lived websocket
// connections. Every publish or query opens its own connection and closes it
// before returning.
package client

import (
	"os"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/websocket"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

const (
	DefaultPublishTimeout = 10 * time.Second
	DefaultQueryTimeout   = 30 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultCheckTimeout   = 2 * time.Second
)

// Options configure a client. Zero fields take the defaults above.
type Options struct {
	PublishTimeout time.Duration
	QueryTimeout   time.Duration
	// PollInterval is how long each receive attempt waits for a message.
	PollInterval time.Duration
	CheckTimeout time.Duration
	Transport    websocket.Options
	Log          *slog.Log
}

// T is a relay protocol client. It holds no connections and is safe for
// concurrent use.
type T struct {
	Options
	log *slog.Log
}

// New creates a client.
func New(opts Options) (cl *T) {
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = DefaultCheckTimeout
	}
	if opts.Log == nil {
		opts.Log = log
	}
	if opts.Transport.Log == nil {
		opts.Transport.Log = opts.Log
	}
	return &T{Options: opts, log: opts.Log}
}

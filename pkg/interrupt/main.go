// Package interrupt runs registered shutdown handlers once, in reverse order
// of registration, on SIGINT, SIGTERM or a programmatic Request.
package interrupt

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
)

var log = slog.GetStd()

type HandlerWithSource struct {
	Source string
	Fn     func()
}

var (
	requested atomic.Bool

	// ch receives the shutdown signals.
	ch chan os.Signal
	// signals is the list of signals that cause the interrupt
	signals = []os.Signal{os.Interrupt, syscall.SIGTERM}

	// shutdownRequested is closed by Request.
	shutdownRequested = make(chan struct{})
	requestOnce       sync.Once
	startOnce         sync.Once

	addHandlerChan = make(chan HandlerWithSource)

	// HandlersDone is closed after all handlers have run.
	HandlersDone = make(chan struct{})

	callbacks       []func()
	callbackSources []string
)

func listener() {
	invokeCallbacks := func() {
		log.D.Ln("running interrupt callbacks", len(callbacks), callbackSources)
		// run handlers in LIFO order.
		for i := range callbacks {
			idx := len(callbacks) - 1 - i
			log.D.Ln("running callback", idx, callbackSources[idx])
			callbacks[idx]()
		}
		log.D.Ln("interrupt handlers finished")
		close(HandlersDone)
	}
	for {
		select {
		case sig := <-ch:
			log.I.Ln("received signal", sig, "shutting down")
			requested.Store(true)
			invokeCallbacks()
			return
		case <-shutdownRequested:
			log.W.Ln("received shutdown request - shutting down...")
			invokeCallbacks()
			return
		case handler := <-addHandlerChan:
			callbacks = append(callbacks, handler.Fn)
			callbackSources = append(callbackSources, handler.Source)
		}
	}
}

func start() {
	startOnce.Do(func() {
		ch = make(chan os.Signal, 1)
		signal.Notify(ch, signals...)
		go listener()
	})
}

// AddHandler adds a handler to call on shutdown.
func AddHandler(handler func()) {
	_, loc, line, _ := runtime.Caller(1)
	msg := fmt.Sprintf("%s:%d", loc, line)
	log.D.Ln("handler added by:", msg)
	start()
	addHandlerChan <- HandlerWithSource{msg, handler}
}

// Request programmatically requests a shutdown. Calls after the first do
// nothing.
func Request() {
	_, f, l, _ := runtime.Caller(1)
	log.D.Ln("interrupt requested", f, l, requested.Load())
	start()
	requested.Store(true)
	requestOnce.Do(func() { close(shutdownRequested) })
}

// Requested returns true if an interrupt has been requested
func Requested() bool { return requested.Load() }

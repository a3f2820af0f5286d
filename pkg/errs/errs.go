// Package errs defines the error kinds shared by the relay client, the content
// mapper and the sync engine.
//
// Every error produced by those packages matches exactly one kind with
// errors.Is, so callers can decide between skipping an item and aborting a
// whole operation without inspecting messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a sentinel that classifies an error.
type Kind struct{ name string }

func (k *Kind) Error() string { return k.name }

var (
	// Transport is a connect, handshake, send or receive failure. Recoverable
	// per relay.
	Transport = &Kind{"transport error"}
	// Protocol is a malformed frame or unexpected message shape. Treated as no
	// usable message.
	Protocol = &Kind{"protocol error"}
	// Validation is an event with missing fields, a mismatched id, a wrong
	// kind or a reply tag. The event is skipped.
	Validation = &Kind{"validation error"}
	// Configuration is a missing public key or unusable settings. Fatal for
	// the whole sync attempt.
	Configuration = &Kind{"configuration error"}
	// Mapping is an empty title or content after conversion. The event is
	// skipped.
	Mapping = &Kind{"mapping error"}
	// NotFound is a missing local record or setting.
	NotFound = &Kind{"not found"}
)

// E is an error of a given kind with an optional cause.
type E struct {
	Kind  *Kind
	Msg   string
	Cause error
}

func (e *E) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.name, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind.name, e.Msg)
}

// Is matches the kind sentinel.
func (e *E) Is(target error) bool { return target == e.Kind }

func (e *E) Unwrap() error { return e.Cause }

// New creates an error of kind k.
func New(k *Kind, format string, a ...any) error {
	return &E{Kind: k, Msg: fmt.Sprintf(format, a...)}
}

// Wrap creates an error of kind k caused by err. A nil err returns nil.
func Wrap(k *Kind, err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return &E{Kind: k, Msg: fmt.Sprintf(format, a...), Cause: err}
}

// KindOf returns the kind of err, or nil when err is not classified.
func KindOf(err error) *Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

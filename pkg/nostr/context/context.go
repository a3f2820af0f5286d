// Package context shortens the standard context names used throughout the
// relay client and sync engine.
package context

import (
	"context"
)

type (
	T = context.Context
	F = context.CancelFunc
)

var (
	Bg       = context.Background
	Cancel   = context.WithCancel
	Timeout  = context.WithTimeout
	Deadline = context.WithDeadline
	Canceled = context.Canceled
)

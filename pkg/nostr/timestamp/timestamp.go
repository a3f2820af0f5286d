package timestamp

import (
	"time"
)

// T is a convenience type for UNIX 64 bit timestamps of 1 second
// precision.
type T int64

// Now returns the current UNIX timestamp of the current second.
func Now() T { return T(time.Now().Unix()) }

// I64 returns the timestamp as int64.
func (t T) I64() int64 { return int64(t) }

// Time converts a timestamp.Time value into a canonical UNIX 64 bit 1 second
// precision timestamp.
func (t T) Time() time.Time { return time.Unix(int64(t), 0) }

// Ptr returns the pointer so values can register as nil and omitted.
func (t T) Ptr() *T { return &t }

// FromTime returns a T from a time.Time
func FromTime(t time.Time) T { return T(t.Unix()) }

// FromUnix converts from a standard int64 unix timestamp.
func FromUnix(t int64) T { return T(t) }

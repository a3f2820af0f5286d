package eventid

import (
	"encoding/hex"
	"fmt"
)

// T is the SHA256 hash in hexadecimal of the canonical form of an event
// as produced by event.T.Serialize.
type T string

func (ei T) String() string { return string(ei) }

// New inspects a string and ensures it is a valid, 64 character long
// hexadecimal string, returns the string coerced to the type.
func New(s string) (ei T, err error) {
	ei = T(s)
	if err = ei.Validate(); err != nil {
		// clear the result since it failed.
		ei = ""
	}
	return
}

// Validate checks the T string is valid hex and 64 characters long.
func (ei T) Validate() (err error) {
	if len(ei) != 64 {
		return fmt.Errorf("event ID invalid length: got %d expect 64", len(ei))
	}
	if _, err = hex.DecodeString(string(ei)); err != nil {
		return
	}
	return
}

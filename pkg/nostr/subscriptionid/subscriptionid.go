package subscriptionid

import (
	"encoding/hex"
	"errors"

	"lukechampine.com/frand"
)

// T is an arbitrary string of 1-64 characters in length generated
// as a request or session identifier.
type T string

// New generates a random subscription id with the given prefix.
func New(prefix string) T {
	return T(prefix + hex.EncodeToString(frand.Bytes(8)))
}

// NewSubscriptionID inspects a string and converts to T if it is
// valid.
func NewSubscriptionID(s string) (T, error) {
	si := T(s)
	if si.IsValid() {
		return si, nil
	}
	return "", errors.New("invalid subscription ID - either empty or > 64 char length")
}

// IsValid returns true if the subscription id is between 1 and 64 characters.
func (si T) IsValid() bool { return len(si) <= 64 && len(si) > 0 }

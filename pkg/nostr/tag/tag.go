package tag

import (
	"strings"
)

// The tag position meanings so they are clear when reading.
const (
	Key = iota
	Value
	Relay
)

// T marks a referenced event, pubkey, hashtag or other property of an event.
// The first element is the tag type discriminator.
type T []string

// New creates a tag from its elements.
func New(elems ...string) T { return T(elems) }

// StartsWith checks a tag has the same initial set of elements.
//
// The last element is treated specially in that it is considered to match if
// the candidate has the same initial substring as its corresponding element.
func (t T) StartsWith(prefix []string) bool {
	prefixLen := len(prefix)
	if prefixLen == 0 || prefixLen > len(t) {
		return false
	}
	// check initial elements for equality
	for i := 0; i < prefixLen-1; i++ {
		if prefix[i] != t[i] {
			return false
		}
	}
	// check last element just for a prefix
	return strings.HasPrefix(t[prefixLen-1], prefix[prefixLen-1])
}

// Key returns the first element of the tags.
func (t T) Key() string {
	if len(t) > Key {
		return t[Key]
	}
	return ""
}

// Value returns the second element of the tag.
func (t T) Value() string {
	if len(t) > Value {
		return t[Value]
	}
	return ""
}

// Clone makes a deep copy of the tag.
func (t T) Clone() T {
	if t == nil {
		return nil
	}
	c := make(T, len(t))
	copy(c, t)
	return c
}

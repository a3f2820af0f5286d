package tags

import (
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tag"
)

// T is a list of T - which are lists of string elements with ordering and
// no uniqueness constraint (not a set).
type T []tag.T

// GetFirst gets the first tag in tags that matches the prefix, see
// [T.StartsWith]
func (t T) GetFirst(tagPrefix []string) *tag.T {
	for _, v := range t {
		if v.StartsWith(tagPrefix) {
			return &v
		}
	}
	return nil
}

// GetAll gets all the tags that match the prefix, see [T.StartsWith]
func (t T) GetAll(tagPrefix []string) T {
	result := make(T, 0, len(t))
	for _, v := range t {
		if v.StartsWith(tagPrefix) {
			result = append(result, v)
		}
	}
	return result
}

// FilterOut removes all tags that match the prefix, see [T.StartsWith]
func (t T) FilterOut(tagPrefix []string) T {
	filtered := make(T, 0, len(t))
	for _, v := range t {
		if !v.StartsWith(tagPrefix) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// Has reports whether any tag carries the given key.
func (t T) Has(key string) bool {
	for _, v := range t {
		if v.Key() == key {
			return true
		}
	}
	return false
}

// Values returns the second element of every tag with the given key, in order.
func (t T) Values(key string) (vals []string) {
	for _, v := range t {
		if v.Key() == key && len(v) > 1 {
			vals = append(vals, v.Value())
		}
	}
	return
}

// AppendUnique appends a tag if it doesn't exist yet, otherwise does nothing.
// the uniqueness comparison is done based only on the first 2 elements of the
// tag.
func (t T) AppendUnique(tag tag.T) T {
	n := len(tag)
	if n > 2 {
		n = 2
	}
	if n == 0 {
		return t
	}
	for _, v := range t {
		if len(v) >= n && v[0] == tag[0] && (n == 1 || v[1] == tag[1]) {
			return t
		}
	}
	return append(t, tag)
}

// Clone makes a deep copy of the tags.
func (t T) Clone() T {
	if t == nil {
		return nil
	}
	c := make(T, len(t))
	for i := range t {
		c[i] = t[i].Clone()
	}
	return c
}

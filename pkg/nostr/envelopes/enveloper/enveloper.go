package enveloper

import (
	"encoding/json"
)

// I is a nostr wire message, a JSON array whose first element is its label.
type I interface {
	Label() string
	json.Marshaler
	// Unmarshal decodes the elements of the array, label included.
	Unmarshal(parts []json.RawMessage) error
}

package event

import (
	"strings"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
)

// ValidateSigned checks that a signed event carries all six required fields:
// id, pubkey, created_at, kind, content and sig. It does not verify the
// signature, that is left to relays and the external signer.
//
// For events decoded from JSON, a key is present when it appeared in the
// object, so an explicit "created_at":0 passes. For events built in code, id,
// pubkey and sig must be non-empty and created_at must be set.
func (ev *T) ValidateSigned() (err error) {
	missing := append([]string(nil), ev.absent...)
	if ev.decoded {
		return missingFields(missing)
	}
	has := func(name string) bool {
		for _, m := range missing {
			if m == name {
				return true
			}
		}
		return false
	}
	add := func(name string, empty bool) {
		if empty && !has(name) {
			missing = append(missing, name)
		}
	}
	add("id", ev.ID == "")
	add("pubkey", ev.PubKey == "")
	add("created_at", ev.CreatedAt == 0)
	add("sig", ev.Sig == "")
	return missingFields(missing)
}

func missingFields(missing []string) (err error) {
	if len(missing) > 0 {
		return errs.New(errs.Validation, "event missing required fields: %s",
			strings.Join(missing, ","))
	}
	return
}

// Valid is ValidateSigned as a boolean.
func (ev *T) Valid() bool { return ev.ValidateSigned() == nil }

// CheckID recomputes the event id and compares it with the one carried by the
// event.
func (ev *T) CheckID() (err error) {
	if err = ev.ID.Validate(); err != nil {
		return errs.Wrap(errs.Validation, err, "event id %q", ev.ID)
	}
	if computed := ev.GetID(); !strings.EqualFold(string(computed), string(ev.ID)) {
		log.D.F("id mismatch: event claims %s, content hashes to %s", ev.ID, computed)
		return errs.New(errs.Validation, "event id %s does not match content hash %s",
			ev.ID, computed)
	}
	return
}

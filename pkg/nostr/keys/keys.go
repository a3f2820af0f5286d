// Package keys validates and converts the public key forms a user may paste:
// 64 character hex, npub and nprofile.
package keys

import (
	"encoding/hex"
	"strings"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// IsValid32ByteHex reports whether pk is a lowercase hex encoding of 32 bytes.
func IsValid32ByteHex(pk string) bool {
	if len(pk) != 64 || strings.ToLower(pk) != pk {
		return false
	}
	_, err := hex.DecodeString(pk)
	return err == nil
}

// ParsePublicKey accepts a hex public key in either case, an npub or an
// nprofile and returns the lowercase hex form.
func ParsePublicKey(s string) (pk string, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "npub1") || strings.HasPrefix(s, "nprofile1") {
		pk, _, err = DecodeProfile(s)
		return
	}
	pk = strings.ToLower(s)
	if !IsValid32ByteHex(pk) {
		return "", errs.New(errs.Validation,
			"public key must be 64 hex characters or an npub, got %q", s)
	}
	return
}

// DecodeProfile decodes an npub or nprofile into a hex public key and the
// relay hints it carries, if any.
func DecodeProfile(s string) (pk string, relays []string, err error) {
	var prefix string
	var value any
	if prefix, value, err = nip19.Decode(s); err != nil {
		return "", nil, errs.Wrap(errs.Validation, err, "decode %q", s)
	}
	switch v := value.(type) {
	case string:
		if prefix != "npub" {
			return "", nil, errs.New(errs.Validation, "%s is not a public key", prefix)
		}
		pk = v
	case nostr.ProfilePointer:
		pk, relays = v.PublicKey, v.Relays
	case *nostr.ProfilePointer:
		pk, relays = v.PublicKey, v.Relays
	default:
		return "", nil, errs.New(errs.Validation, "%s is not a profile reference", prefix)
	}
	if !IsValid32ByteHex(pk) {
		return "", nil, errs.New(errs.Validation, "decoded key %q is not valid", pk)
	}
	return
}

// EncodeNpub renders a hex public key as an npub.
func EncodeNpub(pk string) (npub string, err error) {
	if npub, err = nip19.EncodePublicKey(pk); err != nil {
		err = errs.Wrap(errs.Validation, err, "encode %q", pk)
	}
	return
}

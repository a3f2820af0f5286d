// Package text holds the string encoding used for canonical nostr JSON.
package text

const hexDigits = "0123456789abcdef"

// EscapeString appends s to dst as a quoted JSON string according to RFC8259.
//
// Only the quotation mark, the reverse solidus and control characters are
// escaped. HTML sensitive characters and non-ASCII runes are written as is,
// which is what NIP-01 requires of the serialization that gets hashed into an
// event id. encoding/json escapes <, > and & and so cannot be used for this.
func EscapeString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c >= 0x20:
			dst = append(dst, c)
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
	}
	return append(dst, '"')
}

// AppendStringArray appends a JSON array of escaped strings.
func AppendStringArray(dst []byte, ss []string) []byte {
	dst = append(dst, '[')
	for i, s := range ss {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = EscapeString(dst, s)
	}
	return append(dst, ']')
}

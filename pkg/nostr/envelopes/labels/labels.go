// Package labels holds the first element of every nostr wire message.
package labels

const (
	EVENT  = "EVENT"
	REQ    = "REQ"
	CLOSE  = "CLOSE"
	OK     = "OK"
	EOSE   = "EOSE"
	NOTICE = "NOTICE"
	CLOSED = "CLOSED"
)

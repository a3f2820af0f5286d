package client

import (
	"strings"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/normalize"
)

// DefaultRelays are used when no relays are configured.
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://relay.snort.social",
	"wss://nos.lol",
}

// IsRelayURL reports whether u is a ws:// or wss:// URL with a host.
func IsRelayURL(u string) bool {
	for _, scheme := range []string{"ws://", "wss://"} {
		if rest, ok := strings.CutPrefix(u, scheme); ok {
			return len(rest) > 0 && !strings.HasPrefix(rest, "/")
		}
	}
	return false
}

// NormalizeRelays trims, normalizes and deduplicates a relay list, keeping
// the first occurrence order. Entries that are not websocket URLs after
// normalization are returned in dropped.
func NormalizeRelays(urls []string) (relays, dropped []string) {
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		// bare host names are taken as wss, anything else must already be a
		// websocket or http URL.
		if strings.Contains(u, "://") && !IsRelayURL(u) &&
			!strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			dropped = append(dropped, u)
			continue
		}
		n := normalize.URL(u)
		if !IsRelayURL(n) {
			dropped = append(dropped, u)
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		relays = append(relays, n)
	}
	return
}

// RelaysOrDefault returns the normalized relays, or DefaultRelays if none are
// usable.
func RelaysOrDefault(urls []string) []string {
	if relays, _ := NormalizeRelays(urls); len(relays) > 0 {
		return relays
	}
	return append([]string(nil), DefaultRelays...)
}

package main

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/keys"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/syncmgr"
	"github.com/urfave/cli/v2"
)

const CategoryFilterAttributes = "FILTER ATTRIBUTES"

var events = &cli.Command{
	Name:  "events",
	Usage: "queries relays for events by kind, author or tag",
	Description: `asks the bridge to query its relays. with --relay the relays are queried
directly and the bridge is not needed.

example:
		nostrbridge events --kind 30023
		nostrbridge events --tag t=nostr --relay wss://nos.lol`,
	Flags: []cli.Flag{
		&cli.UintFlag{
			Name:     "kind",
			Aliases:  []string{"k"},
			Usage:    "events of this kind",
			Category: CategoryFilterAttributes,
		},
		&cli.StringFlag{
			Name:     "author",
			Aliases:  []string{"a"},
			Usage:    "events by this author (hex, npub or nprofile)",
			Category: CategoryFilterAttributes,
		},
		&cli.StringFlag{
			Name:     "tag",
			Aliases:  []string{"t"},
			Usage:    "takes a tag like -t t=nostr",
			Category: CategoryFilterAttributes,
		},
		&cli.StringSliceFlag{
			Name:    "relay",
			Aliases: []string{"r"},
			Usage:   "query this relay directly (repeatable)",
		},
	},
	Action: func(c *cli.Context) (err error) {
		var evs []*event.T
		if rs := c.StringSlice("relay"); len(rs) > 0 {
			evs, err = queryDirect(c, rs)
		} else {
			err = call(c, "GET", "/api/events?"+eventsQuery(c).Encode(), nil, &evs)
		}
		if err != nil {
			return
		}
		for _, ev := range evs {
			var b []byte
			if b, err = ev.MarshalJSON(); chk.E(err) {
				continue
			}
			fmt.Println(string(b))
		}
		return nil
	},
}

func eventsQuery(c *cli.Context) url.Values {
	q := url.Values{}
	switch {
	case c.IsSet("kind"):
		q.Set("kind", strconv.FormatUint(uint64(c.Uint("kind")), 10))
	case c.String("author") != "":
		q.Set("author", c.String("author"))
	case c.String("tag") != "":
		q.Set("tag", strings.Replace(c.String("tag"), "=", ":", 1))
	}
	return q
}

func queryDirect(c *cli.Context, urls []string) (evs []*event.T, err error) {
	relays, dropped := client.NormalizeRelays(urls)
	for _, d := range dropped {
		log.W.Ln("not a relay url:", d)
	}
	if len(relays) == 0 {
		return nil, fmt.Errorf("no usable relays")
	}
	cl := client.New(client.Options{})
	switch {
	case c.IsSet("kind"):
		evs = cl.EventsByKind(c.Context, relays, kind.T(c.Uint("kind")))
	case c.String("author") != "":
		var pk string
		if pk, err = keys.ParsePublicKey(c.String("author")); err != nil {
			return
		}
		evs = cl.EventsByAuthor(c.Context, relays, pk)
	case c.String("tag") != "":
		name, value, ok := strings.Cut(c.String("tag"), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("tag must be name=value")
		}
		evs = cl.EventsByTag(c.Context, relays, name, value)
	default:
		return nil, fmt.Errorf("one of --kind, --author or --tag is required")
	}
	evs = syncmgr.Dedupe(evs)
	sort.Stable(event.Descending(evs))
	return evs, nil
}

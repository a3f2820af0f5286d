package main

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/urfave/cli/v2"
)

var status = &cli.Command{
	Name:  "status",
	Usage: "shows the configured key, relays and sync counters",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "check",
			Usage: "also check which relays are reachable",
		},
	},
	Action: func(c *cli.Context) error {
		var out map[string]any
		path := "/api/status"
		if c.Bool("check") {
			path += "?check=true"
		}
		if err := call(c, "GET", path, nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var syncCmd = &cli.Command{
	Name:  "sync",
	Usage: "runs an inbound sync now",
	Description: `fetches the configured author's notes and articles from the relays and
merges them into the local records. without --full only events newer than the
last checkpoint are requested.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "full",
			Usage: "ignore the checkpoint",
		},
	},
	Action: func(c *cli.Context) error {
		var out map[string]any
		path := "/api/sync"
		if c.Bool("full") {
			path += "?full=true"
		}
		if err := call(c, "POST", path, nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var pubkey = &cli.Command{
	Name:  "pubkey",
	Usage: "shows or changes the public key records are synced for",
	Subcommands: []*cli.Command{
		{
			Name:  "show",
			Usage: "prints the configured key",
			Action: func(c *cli.Context) error {
				var out map[string]string
				if err := call(c, "GET", "/api/pubkey", nil, &out); err != nil {
					return err
				}
				printJSON(out)
				return nil
			},
		},
		{
			Name:      "set",
			Usage:     "sets the key (hex, npub or nprofile)",
			ArgsUsage: "<key>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() != 1 {
					return fmt.Errorf("expected one key")
				}
				var out map[string]string
				err := call(c, "PUT", "/api/pubkey",
					map[string]string{"pubkey": c.Args().First()}, &out)
				if err != nil {
					return err
				}
				printJSON(out)
				return nil
			},
		},
		{
			Name:  "disconnect",
			Usage: "forgets the key, inbound sync stops until a new one is set",
			Action: func(c *cli.Context) error {
				return call(c, "DELETE", "/api/pubkey", nil, nil)
			},
		},
	},
}

var relays = &cli.Command{
	Name:  "relays",
	Usage: "lists, replaces or tests the relays",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "prints the relays in use",
			Action: func(c *cli.Context) error {
				var out map[string][]string
				if err := call(c, "GET", "/api/relays", nil, &out); err != nil {
					return err
				}
				for _, r := range out["relays"] {
					fmt.Println(r)
				}
				return nil
			},
		},
		{
			Name:      "set",
			Usage:     "replaces the relay list, invalid urls are dropped",
			ArgsUsage: "<relay> [relay...]",
			Action: func(c *cli.Context) error {
				var out map[string][]string
				err := call(c, "PUT", "/api/relays",
					map[string][]string{"relays": c.Args().Slice()}, &out)
				if err != nil {
					return err
				}
				for _, d := range out["dropped"] {
					log.W.Ln("dropped", d)
				}
				for _, r := range out["relays"] {
					fmt.Println(r)
				}
				return nil
			},
		},
		{
			Name:  "test",
			Usage: "checks each relay can be connected to",
			Action: func(c *cli.Context) error {
				var out struct {
					Reachable map[string]string `json:"reachable"`
				}
				if err := call(c, "GET", "/api/status?check=true", nil, &out); err != nil {
					return err
				}
				for r, e := range out.Reachable {
					if e == "" {
						e = "ok"
					}
					fmt.Printf("%s\t%s\n", r, e)
				}
				return nil
			},
		},
	},
}

var pending = &cli.Command{
	Name:  "pending",
	Usage: "lists records waiting to be signed and published",
	Action: func(c *cli.Context) error {
		var out []map[string]any
		if err := call(c, "GET", "/api/pending", nil, &out); err != nil {
			return err
		}
		for _, r := range out {
			fmt.Printf("%v\t%v\t%v\n", r["id"], r["type"], r["title"])
		}
		return nil
	},
}

var unsigned = &cli.Command{
	Name:      "unsigned",
	Usage:     "prints the unsigned event for a record, for an external signer",
	ArgsUsage: "<record id>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("expected one record id")
		}
		var out map[string]any
		path := "/api/records/" + url.PathEscape(c.Args().First()) + "/unsigned"
		if err := call(c, "GET", path, nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var publish = &cli.Command{
	Name:  "publish",
	Usage: "publishes a signed event for a record",
	Description: `reads the signed event from a file, or from stdin when the file is "-".

example:
		nostrbridge unsigned 01HF... | signer | nostrbridge publish 01HF... -`,
	ArgsUsage: "<record id> <file|->",
	Action: func(c *cli.Context) (err error) {
		if c.Args().Len() != 2 {
			return fmt.Errorf("expected a record id and a file")
		}
		var b []byte
		if name := c.Args().Get(1); name == "-" {
			b, err = io.ReadAll(os.Stdin)
		} else {
			b, err = os.ReadFile(name)
		}
		if err != nil {
			return
		}
		ev := &event.T{}
		if err = ev.UnmarshalJSON(b); err != nil {
			return
		}
		var out map[string]any
		path := "/api/records/" + url.PathEscape(c.Args().First()) + "/publish"
		err = call(c, "POST", path, ev, &out)
		if out != nil {
			printJSON(out)
		}
		return
	},
}

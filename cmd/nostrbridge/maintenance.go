package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var schedule = &cli.Command{
	Name:  "schedule",
	Usage: "shows whether the periodic sync is running, its interval and next run",
	Action: func(c *cli.Context) error {
		var out map[string]any
		if err := call(c, "GET", "/api/schedule", nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var logs = &cli.Command{
	Name:  "logs",
	Usage: "lists records with a sync status, most recently synced first",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Value: 50,
		},
	},
	Action: func(c *cli.Context) error {
		var out []map[string]any
		if err := call(c, "GET", fmt.Sprintf("/api/logs?limit=%d", c.Int("limit")),
			nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var cleanup = &cli.Command{
	Name:  "cleanup",
	Usage: "clears failed statuses on records not modified for some days",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "days",
			Value: 30,
		},
	},
	Action: func(c *cli.Context) error {
		var out struct {
			Cleared int `json:"cleared"`
		}
		if err := call(c, "POST", fmt.Sprintf("/api/cleanup?days=%d", c.Int("days")),
			nil, &out); err != nil {
			return err
		}
		fmt.Printf("cleared %d failed statuses\n", out.Cleared)
		return nil
	},
}

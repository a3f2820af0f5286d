package main

import (
	"fmt"
	"os"

	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/urfave/cli/v2"
)

var log, chk = slog.New(os.Stderr)

var app = &cli.App{
	Name:  "nostrbridge",
	Usage: "operate a running nostrbridged signer bridge",
	Commands: []*cli.Command{
		status,
		syncCmd,
		pubkey,
		relays,
		pending,
		unsigned,
		publish,
		events,
		schedule,
		logs,
		cleanup,
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Usage:   "address of the signer bridge",
			Value:   "http://127.0.0.1:3335",
			EnvVars: []string{"NOSTRBRIDGE_SERVER"},
		},
		&cli.BoolFlag{
			Name:    "silent",
			Usage:   "do not print logs and info messages to stderr",
			Aliases: []string{"s"},
			Action: func(ctx *cli.Context, b bool) error {
				if b {
					slog.SetLogLevel(slog.Off)
				}
				return nil
			},
		},
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

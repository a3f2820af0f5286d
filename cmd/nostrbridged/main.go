package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/app"
	"github.com/Hubmakerlabs/nostrbridge/pkg/interrupt"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/alexflint/go-arg"
)

var (
	AppName = "nostrbridged"
	Version = "v0.0.1"
)

var args, conf app.Config

func main() {
	var log, chk = slog.New(os.Stderr)
	args = *app.Defaults()
	arg.MustParse(&args)
	log.I.Ln(AppName, Version)
	args.ApplyLogLevel()
	log.T.S(args)
	profileDir, err := args.ProfileDir()
	if chk.E(err) {
		os.Exit(1)
	}
	log.D.F("using profile directory: %s", profileDir)
	configPath := filepath.Join(profileDir, "config.json")
	if args.InitCfgCmd != nil {
		if err = args.Save(configPath); chk.E(err) {
			log.E.F("failed to write configuration: '%s'", err)
			os.Exit(1)
		}
		log.I.Ln("configuration written to", configPath)
		return
	}
	if err = conf.Load(configPath); err != nil {
		log.D.F("no configuration loaded from %s: %s", configPath, err)
	} else {
		// flags left at their defaults take the file's values
		args.Merge(&conf)
		args.ApplyLogLevel()
	}
	c, cancel := context.Cancel(context.Bg())
	var svc *app.Services
	if svc, err = app.NewServices(c, &args); chk.E(err) {
		log.E.F("unable to start: '%s'", err)
		cancel()
		os.Exit(1)
	}
	if args.SyncCmd != nil {
		res, err := svc.Scheduler.SyncNow(c, args.SyncCmd.Full)
		cancel()
		chk.E(svc.Close())
		if chk.E(err) {
			os.Exit(1)
		}
		log.I.F("%d processed, %d skipped, %d failed of %d",
			res.Processed, res.Skipped, res.Failed, res.Total)
		return
	}
	srv := &app.Server{Bridge: svc.Bridge}
	interrupt.AddHandler(func() {
		cancel()
		sc, done := context.Timeout(context.Bg(), 5*time.Second)
		defer done()
		srv.Shutdown(sc)
		chk.E(svc.Close())
	})
	go svc.Scheduler.Run(c)
	if err = srv.Start(args.Listen); chk.E(err) {
		interrupt.Request()
		<-interrupt.HandlersDone
		os.Exit(1)
	}
	<-interrupt.HandlersDone
}

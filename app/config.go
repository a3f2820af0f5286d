package app

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/websocket"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/Hubmakerlabs/nostrbridge/pkg/syncmgr"
)

type InitCfg struct{}

type SyncCmd struct {
	Full bool `arg:"--full" help:"ignore the checkpoint and fetch everything the relays keep"`
}

type Config struct {
	InitCfgCmd *InitCfg `arg:"subcommand:initcfg" json:"-" help:"write the configuration file from the given flags"`
	SyncCmd    *SyncCmd `arg:"subcommand:sync" json:"-" help:"run one inbound sync and exit"`
	Listen     string   `arg:"-l,--listen" default:"127.0.0.1:3335" json:"listen" help:"network address the signer bridge listens on"`
	Profile    string   `arg:"-p,--profile" json:"-" default:"nostrbridge" help:"profile name to use for storage"`
	DataDir    string   `arg:"--datadir" json:"data_dir" help:"directory for the local store (default: profile directory)"`
	Memory     bool     `arg:"--memory" json:"-" help:"keep the store in memory, nothing persists"`
	PubKey     string   `arg:"--pubkey" json:"pubkey" help:"public key to sync for (hex, npub or nprofile), saved to the store"`
	Relays     []string `arg:"-r,--relay,separate" json:"relays" help:"relay to use when none are saved (repeatable)"`
	// SyncInterval is the seconds between scheduled inbound syncs.
	SyncInterval int `arg:"--interval" json:"sync_interval" default:"300" help:"seconds between inbound syncs"`
	// OriginGrace is the seconds a record written by an inbound sync is kept
	// from being queued for publishing.
	OriginGrace      int      `arg:"--grace" json:"origin_grace" default:"60" help:"seconds inbound records are kept from bouncing back out"`
	PublishTimeout   int      `arg:"--publishtimeout" json:"publish_timeout" default:"10" help:"seconds to wait for a relay to answer a publish"`
	QueryTimeout     int      `arg:"--querytimeout" json:"query_timeout" default:"30" help:"seconds to wait for a relay to finish a query"`
	PollInterval     int      `arg:"--poll" json:"poll_interval" default:"100" help:"milliseconds each receive attempt waits"`
	QueryLimit       int      `arg:"--limit" json:"query_limit" default:"500" help:"event limit sent with inbound queries"`
	InsecureTLS      bool     `arg:"--insecure" json:"insecure_tls" default:"false" help:"skip TLS certificate verification for wss relays"`
	DisableByDefault bool     `arg:"--nodefaultsync" json:"disable_by_default" default:"false" help:"leave sync off for new records"`
	AllowedOrigins   []string `arg:"--origin,separate" json:"allowed_origins" help:"browser origins allowed to call the signer bridge (default any)"`
	LogLevel         string   `arg:"--loglevel" default:"info" json:"log_level" help:"set log level [off,fatal,error,warn,info,debug,trace] (can also use GODEBUG environment variable)"`
}

// Defaults returns a Config holding the default values.
func Defaults() *Config {
	return &Config{
		Listen:         "127.0.0.1:3335",
		Profile:        "nostrbridge",
		SyncInterval:   300,
		OriginGrace:    60,
		PublishTimeout: 10,
		QueryTimeout:   30,
		PollInterval:   100,
		QueryLimit:     500,
		LogLevel:       "info",
	}
}

func (c *Config) Save(filename string) (err error) {
	if c == nil {
		err = errors.New("cannot save nil config")
		log.E.Ln(err)
		return
	}
	var b []byte
	if b, err = json.MarshalIndent(c, "", "    "); chk.E(err) {
		return
	}
	if err = os.MkdirAll(filepath.Dir(filename), 0700); chk.E(err) {
		return
	}
	if err = os.WriteFile(filename, b, 0600); chk.E(err) {
		return
	}
	return
}

func (c *Config) Load(filename string) (err error) {
	if c == nil {
		err = errors.New("cannot load into nil config")
		chk.E(err)
		return
	}
	var b []byte
	if b, err = os.ReadFile(filename); err != nil {
		return
	}
	if err = json.Unmarshal(b, c); chk.E(err) {
		return
	}
	return
}

// Merge fills fields of c that still hold their zero or default value from
// file. Relays and origins given on the command line replace the file's.
func (c *Config) Merge(file *Config) {
	def := Defaults()
	if c.Listen == def.Listen && file.Listen != "" {
		c.Listen = file.Listen
	}
	if c.DataDir == "" {
		c.DataDir = file.DataDir
	}
	if c.PubKey == "" {
		c.PubKey = file.PubKey
	}
	if len(c.Relays) == 0 {
		c.Relays = append(c.Relays, file.Relays...)
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = append(c.AllowedOrigins, file.AllowedOrigins...)
	}
	mergeInt := func(dst *int, d, f int) {
		if *dst == d && f > 0 {
			*dst = f
		}
	}
	mergeInt(&c.SyncInterval, def.SyncInterval, file.SyncInterval)
	mergeInt(&c.OriginGrace, def.OriginGrace, file.OriginGrace)
	mergeInt(&c.PublishTimeout, def.PublishTimeout, file.PublishTimeout)
	mergeInt(&c.QueryTimeout, def.QueryTimeout, file.QueryTimeout)
	mergeInt(&c.PollInterval, def.PollInterval, file.PollInterval)
	mergeInt(&c.QueryLimit, def.QueryLimit, file.QueryLimit)
	c.InsecureTLS = c.InsecureTLS || file.InsecureTLS
	c.DisableByDefault = c.DisableByDefault || file.DisableByDefault
	if c.LogLevel == def.LogLevel && file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
}

// ProfileDir is the directory holding the config file and, unless DataDir is
// set, the store.
func (c *Config) ProfileDir() (dir string, err error) {
	var home string
	if home, err = os.UserHomeDir(); chk.E(err) {
		return
	}
	return filepath.Join(home, "."+c.Profile), nil
}

// StorePath is where the badger store lives, "" for an in-memory store.
func (c *Config) StorePath() (dir string, err error) {
	if c.Memory {
		return "", nil
	}
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	if dir, err = c.ProfileDir(); err != nil {
		return
	}
	return filepath.Join(dir, "db"), nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// ClientOptions are the relay client settings.
func (c *Config) ClientOptions() client.Options {
	return client.Options{
		PublishTimeout: seconds(c.PublishTimeout),
		QueryTimeout:   seconds(c.QueryTimeout),
		PollInterval:   time.Duration(c.PollInterval) * time.Millisecond,
		Transport:      websocket.Options{InsecureTLS: c.InsecureTLS},
	}
}

// EngineOptions are the sync engine settings.
func (c *Config) EngineOptions() syncmgr.Options {
	return syncmgr.Options{
		OriginGrace:      seconds(c.OriginGrace),
		QueryLimit:       c.QueryLimit,
		DisableByDefault: c.DisableByDefault,
	}
}

// ApplyLogLevel sets the process log level from LogLevel.
func (c *Config) ApplyLogLevel() {
	if lvl, ok := slog.LevelFromString(c.LogLevel); ok {
		slog.SetLogLevel(lvl)
	}
}

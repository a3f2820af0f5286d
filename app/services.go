package app

import (
	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/identity"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/profile"
	"github.com/Hubmakerlabs/nostrbridge/pkg/scheduler"
	"github.com/Hubmakerlabs/nostrbridge/pkg/store/badger"
	"github.com/Hubmakerlabs/nostrbridge/pkg/syncmgr"
)

// Services holds one instance of every component, wired together.
type Services struct {
	Config    *Config
	Store     *badger.Backend
	Client    *client.T
	Profiles  *profile.Resolver
	Mapper    *content.T
	Engine    *syncmgr.T
	Identity  *identity.T
	Scheduler *scheduler.T
	Bridge    *Bridge
}

// NewServices opens the store and builds the components from cfg. A public
// key in cfg is saved to the store.
func NewServices(c context.T, cfg *Config) (s *Services, err error) {
	s = &Services{Config: cfg}
	var path string
	if path, err = cfg.StorePath(); err != nil {
		return
	}
	if s.Store, err = badger.Open(path); err != nil {
		return nil, err
	}
	s.Client = client.New(cfg.ClientOptions())
	s.Identity = identity.New(s.Store, s.Client, cfg.Relays)
	s.Profiles = profile.New(s.Client, func() []string {
		relays, err := s.Identity.Relays(context.Bg())
		chk.E(err)
		return relays
	})
	s.Mapper = content.New(s.Profiles)
	s.Engine = syncmgr.New(s.Client, s.Mapper, s.Store, cfg.EngineOptions())
	s.Scheduler = scheduler.New(s.Engine, s.Identity, seconds(cfg.SyncInterval))
	s.Scheduler.SweepInterval = seconds(cfg.OriginGrace) / 2
	s.Bridge = NewBridge(s.Engine, s.Identity, s.Scheduler, s.Client, cfg.AllowedOrigins)
	if cfg.PubKey != "" {
		if _, err = s.Identity.SetPubKey(c, cfg.PubKey); err != nil {
			chk.E(s.Store.Close())
			return nil, err
		}
	}
	return
}

func (s *Services) Close() (err error) {
	if s.Store != nil {
		err = s.Store.Close()
	}
	return
}

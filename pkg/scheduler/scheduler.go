// Package scheduler runs the inbound sync on a timer and sweeps expired
// origin flags, making sure only one inbound sync runs at a time.
package scheduler

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/Hubmakerlabs/nostrbridge/pkg/syncmgr"
)

var log, chk = slog.New(os.Stderr)

const (
	DefaultInterval      = 300 * time.Second
	DefaultSweepInterval = 30 * time.Second
	// MinInterval is the shortest interval New accepts between scheduled
	// syncs.
	MinInterval = 60 * time.Second
)

// ErrBusy is returned when an inbound sync is already running.
var ErrBusy = errors.New("an inbound sync is already running")

// Engine is the part of the sync engine the scheduler drives.
type Engine interface {
	SyncFromNostr(c context.T, req syncmgr.Request) (res *syncmgr.Result, err error)
	ClearExpiredOrigins(c context.T) (n int, err error)
}

var _ Engine = (*syncmgr.T)(nil)

// Identity supplies the public key and relays for each run.
type Identity interface {
	PubKey(c context.T) (pk string, err error)
	Relays(c context.T) (relays []string, err error)
}

type T struct {
	Engine   Engine
	Identity Identity
	// Interval between inbound syncs.
	Interval time.Duration
	// SweepInterval between origin flag sweeps.
	SweepInterval time.Duration
	// OnResult is called after every scheduled sync, if set.
	OnResult func(res *syncmgr.Result, err error)
	Now      func() time.Time

	// syncing is held for the duration of an inbound sync.
	syncing sync.Mutex
	mx      sync.Mutex
	status  Status
}

// Status describes the schedule.
type Status struct {
	// Scheduled is true while Run is active.
	Scheduled bool          `json:"scheduled"`
	Running   bool          `json:"running"`
	Interval  time.Duration `json:"interval"`
	NextRun   time.Time     `json:"next_run,omitempty"`
	// LastRun is when the last scheduled sync finished, LastError its error.
	LastRun   time.Time       `json:"last_run,omitempty"`
	LastError string          `json:"last_error,omitempty"`
	Last      *syncmgr.Result `json:"last_result,omitempty"`
}

// New creates a scheduler. An interval of zero or less takes
// DefaultInterval, one below MinInterval is raised to it.
func New(e Engine, id Identity, interval time.Duration) *T {
	switch {
	case interval <= 0:
		interval = DefaultInterval
	case interval < MinInterval:
		log.W.F("sync interval %v is below %v, using %v", interval,
			MinInterval, MinInterval)
		interval = MinInterval
	}
	return &T{Engine: e, Identity: id, Interval: interval,
		SweepInterval: DefaultSweepInterval, Now: time.Now}
}

// SyncNow runs one inbound sync unless another is in progress on this
// scheduler, in which case it returns ErrBusy at once.
func (s *T) SyncNow(c context.T, full bool) (res *syncmgr.Result, err error) {
	if !s.syncing.TryLock() {
		return nil, ErrBusy
	}
	defer s.syncing.Unlock()
	s.setRunning(true)
	defer s.setRunning(false)
	req := syncmgr.Request{Full: full}
	if req.PubKey, err = s.Identity.PubKey(c); chk.E(err) {
		return
	}
	if req.Relays, err = s.Identity.Relays(c); chk.E(err) {
		return
	}
	return s.Engine.SyncFromNostr(c, req)
}

// Status returns a snapshot of the schedule.
func (s *T) Status() Status {
	s.mx.Lock()
	defer s.mx.Unlock()
	st := s.status
	st.Interval = s.Interval
	return st
}

func (s *T) setRunning(on bool) {
	s.mx.Lock()
	s.status.Running = on
	s.mx.Unlock()
}

func (s *T) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run syncs once at start and then on every Interval, and sweeps origin
// flags on every SweepInterval, until c is done.
func (s *T) Run(c context.T) {
	sweepEvery := s.SweepInterval
	if sweepEvery <= 0 {
		sweepEvery = DefaultSweepInterval
	}
	syncTick := time.NewTicker(s.Interval)
	defer syncTick.Stop()
	sweepTick := time.NewTicker(sweepEvery)
	defer sweepTick.Stop()
	s.mx.Lock()
	s.status.Scheduled = true
	s.mx.Unlock()
	defer func() {
		s.mx.Lock()
		s.status.Scheduled, s.status.NextRun = false, time.Time{}
		s.mx.Unlock()
	}()
	log.I.F("scheduler started, syncing every %v", s.Interval)
	s.tick(c)
	for {
		select {
		case <-c.Done():
			log.I.Ln("scheduler stopped")
			return
		case <-syncTick.C:
			s.tick(c)
		case <-sweepTick.C:
			if n, err := s.Engine.ClearExpiredOrigins(c); !chk.E(err) && n > 0 {
				log.D.F("swept %d origin flags", n)
			}
		}
	}
}

func (s *T) tick(c context.T) {
	res, err := s.SyncNow(c, false)
	switch {
	case errors.Is(err, ErrBusy):
		log.D.Ln("skipping scheduled sync, one is already running")
	case err != nil:
		log.W.F("scheduled sync failed: %v", err)
	}
	now := s.now()
	s.mx.Lock()
	s.status.NextRun = now.Add(s.Interval)
	if !errors.Is(err, ErrBusy) {
		s.status.LastRun, s.status.Last, s.status.LastError = now, res, ""
		if err != nil {
			s.status.LastError = err.Error()
		}
	}
	s.mx.Unlock()
	if s.OnResult != nil {
		s.OnResult(res, err)
	}
}

package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/syncmgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	block   chan struct{}
	started chan struct{}
	syncs   atomic.Int32
	sweeps  atomic.Int32
	lastReq syncmgr.Request
}

func (f *fakeEngine) SyncFromNostr(c context.T, req syncmgr.Request) (*syncmgr.Result, error) {
	f.syncs.Add(1)
	f.lastReq = req
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return &syncmgr.Result{Processed: 1}, nil
}

func (f *fakeEngine) ClearExpiredOrigins(c context.T) (int, error) {
	f.sweeps.Add(1)
	return 0, nil
}

type fakeIdentity struct{}

func (fakeIdentity) PubKey(context.T) (string, error)   { return "pk", nil }
func (fakeIdentity) Relays(context.T) ([]string, error) { return []string{"wss://r"}, nil }

func TestSyncNowSingleFlight(t *testing.T) {
	e := &fakeEngine{block: make(chan struct{}), started: make(chan struct{})}
	s := New(e, fakeIdentity{}, time.Hour)
	done := make(chan error)
	go func() {
		_, err := s.SyncNow(context.Bg(), true)
		done <- err
	}()
	<-e.started
	_, err := s.SyncNow(context.Bg(), false)
	assert.True(t, errors.Is(err, ErrBusy))
	close(e.block)
	require.NoError(t, <-done)
	assert.Equal(t, syncmgr.Request{PubKey: "pk", Relays: []string{"wss://r"}, Full: true}, e.lastReq)

	// released after the first finished
	e.started = nil
	res, err := s.SyncNow(context.Bg(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestRun(t *testing.T) {
	e := &fakeEngine{}
	s := New(e, fakeIdentity{}, time.Hour)
	s.Interval = 20 * time.Millisecond
	s.SweepInterval = 10 * time.Millisecond
	var results atomic.Int32
	s.OnResult = func(*syncmgr.Result, error) { results.Add(1) }
	c, cancel := context.Cancel(context.Bg())
	stopped := make(chan struct{})
	go func() {
		s.Run(c)
		close(stopped)
	}()
	assert.Eventually(t, func() bool {
		return e.syncs.Load() >= 2 && e.sweeps.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, results.Load(), int32(2))
	st := s.Status()
	assert.False(t, st.Scheduled)
	assert.False(t, st.LastRun.IsZero())
	assert.Equal(t, 1, st.Last.Processed)
}

func TestSchedulersDoNotShareTheGuard(t *testing.T) {
	a := &fakeEngine{block: make(chan struct{}), started: make(chan struct{})}
	b := &fakeEngine{}
	sa := New(a, fakeIdentity{}, time.Hour)
	sb := New(b, fakeIdentity{}, time.Hour)
	done := make(chan error)
	go func() {
		_, err := sa.SyncNow(context.Bg(), false)
		done <- err
	}()
	<-a.started
	assert.True(t, sa.Status().Running)
	_, err := sb.SyncNow(context.Bg(), false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.syncs.Load())
	close(a.block)
	require.NoError(t, <-done)
	assert.False(t, sa.Status().Running)
}

func TestIntervalIsClamped(t *testing.T) {
	assert.Equal(t, MinInterval, New(&fakeEngine{}, fakeIdentity{}, time.Second).Interval)
	assert.Equal(t, DefaultInterval, New(&fakeEngine{}, fakeIdentity{}, 0).Interval)
	assert.Equal(t, 2*time.Minute, New(&fakeEngine{}, fakeIdentity{}, 2*time.Minute).Interval)
}

func TestStatusNextRun(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := New(&fakeEngine{}, fakeIdentity{}, 2*time.Minute)
	s.Now = func() time.Time { return now }
	c, cancel := context.Cancel(context.Bg())
	stopped := make(chan struct{})
	go func() {
		s.Run(c)
		close(stopped)
	}()
	assert.Eventually(t, func() bool { return !s.Status().LastRun.IsZero() },
		2*time.Second, 5*time.Millisecond)
	st := s.Status()
	assert.True(t, st.Scheduled)
	assert.Equal(t, 2*time.Minute, st.Interval)
	assert.Equal(t, now.Add(2*time.Minute), st.NextRun)
	assert.Equal(t, now, st.LastRun)
	cancel()
	<-stopped
	assert.True(t, s.Status().NextRun.IsZero())
}

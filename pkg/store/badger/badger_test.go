package badger

import (
	"errors"
	"testing"

	"github.com/Hubmakerlabs/nostrbridge/pkg/content"
	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/eventid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	remoteA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	remoteB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func open(t *testing.T) *Backend {
	t.Helper()
	b, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRecords(t *testing.T) {
	b := open(t)
	c := context.Bg()
	r := &content.Record{Type: content.Note, Title: "t", Body: "b",
		RemoteEventID: eventid.T("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")}
	require.NoError(t, b.Put(c, r))
	require.NotEmpty(t, r.ID)

	got, err := b.Get(c, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
	assert.EqualValues(t, remoteA, got.RemoteEventID)

	got, err = b.GetByRemoteID(c, remoteA)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	// moving the remote id drops the old index entry
	r.RemoteEventID = remoteB
	require.NoError(t, b.Put(c, r))
	_, err = b.GetByRemoteID(c, remoteA)
	assert.True(t, errors.Is(err, errs.NotFound))
	got, err = b.GetByRemoteID(c, remoteB)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	require.NoError(t, b.Delete(c, r.ID))
	_, err = b.Get(c, r.ID)
	assert.True(t, errors.Is(err, errs.NotFound))
	_, err = b.GetByRemoteID(c, remoteB)
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestRange(t *testing.T) {
	b := open(t)
	c := context.Bg()
	for _, title := range []string{"one", "two", "three"} {
		require.NoError(t, b.Put(c, &content.Record{Type: content.Note, Title: title}))
	}
	var n int
	require.NoError(t, b.Range(c, func(r *content.Record) bool {
		n++
		return true
	}))
	assert.Equal(t, 3, n)
	n = 0
	require.NoError(t, b.Range(c, func(r *content.Record) bool {
		n++
		return false
	}))
	assert.Equal(t, 1, n)
}

func TestMeta(t *testing.T) {
	b := open(t)
	c := context.Bg()
	ts, err := b.Checkpoint(c)
	require.NoError(t, err)
	assert.Zero(t, ts)
	require.NoError(t, b.SetCheckpoint(c, 1700000000))
	ts, err = b.Checkpoint(c)
	require.NoError(t, err)
	assert.EqualValues(t, 1700000000, ts)

	require.NoError(t, b.SetLastPoll(c, 42))
	ts, err = b.LastPoll(c)
	require.NoError(t, err)
	assert.EqualValues(t, 42, ts)
}

func TestIdentity(t *testing.T) {
	b := open(t)
	c := context.Bg()
	pk, err := b.PubKey(c)
	require.NoError(t, err)
	assert.Empty(t, pk)
	require.NoError(t, b.SetPubKey(c, remoteA))
	pk, err = b.PubKey(c)
	require.NoError(t, err)
	assert.Equal(t, remoteA, pk)
	require.NoError(t, b.DeletePubKey(c))
	pk, err = b.PubKey(c)
	require.NoError(t, err)
	assert.Empty(t, pk)

	rl, err := b.Relays(c)
	require.NoError(t, err)
	assert.Empty(t, rl)
	require.NoError(t, b.SetRelays(c, []string{"wss://a", "wss://b"}))
	rl, err = b.Relays(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://a", "wss://b"}, rl)
}

package identity

import (
	"errors"
	"testing"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/client"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/store/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pubHex  = "4fdb07df4a683e3ee9b2a9d117e01bfe2548d7e8c0d4cb56d77e9c23091c3fc3"
	pubNpub = "npub1flds0h62dqlra6dj48g30cqmlcj534lgcr2vk4kh06wzxzgu8lpss5kaa2"
)

type reach map[string]error

func (p reach) TestRelay(_ context.T, relay string) error { return p[relay] }

func newT(t *testing.T) *T {
	t.Helper()
	b, err := badger.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return New(b, reach{"wss://down.example": errs.New(errs.Transport, "refused")}, nil)
}

func TestPubKey(t *testing.T) {
	id := newT(t)
	c := context.Bg()
	_, err := id.RequirePubKey(c)
	assert.True(t, errors.Is(err, errs.Configuration))

	pk, err := id.SetPubKey(c, pubNpub)
	require.NoError(t, err)
	assert.Equal(t, pubHex, pk)
	pk, err = id.RequirePubKey(c)
	require.NoError(t, err)
	assert.Equal(t, pubHex, pk)

	_, err = id.SetPubKey(c, "not a key")
	assert.True(t, errors.Is(err, errs.Validation))

	require.NoError(t, id.Disconnect(c))
	pk, err = id.PubKey(c)
	require.NoError(t, err)
	assert.Empty(t, pk)
}

func TestRelays(t *testing.T) {
	id := newT(t)
	c := context.Bg()
	relays, err := id.Relays(c)
	require.NoError(t, err)
	assert.Equal(t, client.DefaultRelays, relays)

	relays, dropped, err := id.SetRelays(c, []string{"wss://up.example/", "ftp://x", "wss://up.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://up.example"}, relays)
	assert.Equal(t, []string{"ftp://x"}, dropped)

	_, _, err = id.SetRelays(c, []string{"ftp://x"})
	assert.True(t, errors.Is(err, errs.Validation))
	relays, err = id.Relays(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://up.example"}, relays)
}

func TestStatus(t *testing.T) {
	id := newT(t)
	c := context.Bg()
	s, err := id.Status(c, false)
	require.NoError(t, err)
	assert.False(t, s.Connected)
	assert.Nil(t, s.Reachable)

	_, err = id.SetPubKey(c, pubHex)
	require.NoError(t, err)
	_, _, err = id.SetRelays(c, []string{"wss://up.example", "wss://down.example"})
	require.NoError(t, err)
	s, err = id.Status(c, true)
	require.NoError(t, err)
	assert.True(t, s.Connected)
	assert.Equal(t, pubNpub, s.Npub)
	assert.Equal(t, "", s.Reachable["wss://up.example"])
	assert.Contains(t, s.Reachable["wss://down.example"], "refused")
}

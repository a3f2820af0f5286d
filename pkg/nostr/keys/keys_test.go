package keys

import (
	"strings"
	"testing"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	TestPubBech32 = "npub1flds0h62dqlra6dj48g30cqmlcj534lgcr2vk4kh06wzxzgu8lpss5kaa2"
	TestPubHex    = "4fdb07df4a683e3ee9b2a9d117e01bfe2548d7e8c0d4cb56d77e9c23091c3fc3"
)

func TestParsePublicKey(t *testing.T) {
	pk, err := ParsePublicKey(TestPubHex)
	require.NoError(t, err)
	assert.Equal(t, TestPubHex, pk)

	pk, err = ParsePublicKey(" " + strings.ToUpper(TestPubHex) + "\n")
	require.NoError(t, err)
	assert.Equal(t, TestPubHex, pk)

	pk, err = ParsePublicKey(TestPubBech32)
	require.NoError(t, err)
	assert.Equal(t, TestPubHex, pk)

	nprofile, err := nip19.EncodeProfile(TestPubHex, []string{"wss://nos.lol"})
	require.NoError(t, err)
	pk, relays, err := DecodeProfile(nprofile)
	require.NoError(t, err)
	assert.Equal(t, TestPubHex, pk)
	assert.Equal(t, []string{"wss://nos.lol"}, relays)

	for _, bad := range []string{"", "abc", strings.Repeat("z", 64), "npub1garbage"} {
		_, err = ParsePublicKey(bad)
		assert.ErrorIs(t, err, errs.Validation, "input %q", bad)
	}
}

func TestEncodeNpub(t *testing.T) {
	npub, err := EncodeNpub(TestPubHex)
	require.NoError(t, err)
	assert.Equal(t, TestPubBech32, npub)
	assert.True(t, IsValid32ByteHex(TestPubHex))
	assert.False(t, IsValid32ByteHex(strings.ToUpper(TestPubHex)))
}

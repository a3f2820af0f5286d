package envelopes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/closedenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/closeenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/eoseenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/okenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/envelopes/reqenvelope"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/filter"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundFrames(t *testing.T) {
	ev := &event.T{ID: "aa", PubKey: "bb", CreatedAt: 1, Kind: kind.TextNote,
		Content: "x", Sig: "cc"}
	cases := []struct {
		env  json.Marshaler
		want string
	}{
		{eventenvelope.New("", ev),
			`["EVENT",{"id":"aa","pubkey":"bb","created_at":1,"kind":1,"tags":[],"content":"x","sig":"cc"}]`},
		{reqenvelope.New("sub_1", &filter.T{Kinds: []kind.T{1}, Limit: 5}),
			`["REQ","sub_1",{"kinds":[1],"limit":5}]`},
		{closeenvelope.New("sub_1"), `["CLOSE","sub_1"]`},
	}
	for _, c := range cases {
		b, err := c.env.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, c.want, string(b))
	}
}

func TestParseInbound(t *testing.T) {
	env, err := Parse([]byte(`["OK","abc",false,"blocked: spam"]`))
	require.NoError(t, err)
	ok := env.(*okenvelope.T)
	assert.False(t, ok.OK)
	assert.Equal(t, "blocked: spam", ok.Reason)
	assert.Equal(t, okenvelope.Reason("blocked"), ok.Prefix())
	assert.False(t, ok.Prefix().Transient())

	env, err = Parse([]byte(`["OK","abc",false,"rate-limited: slow down"]`))
	require.NoError(t, err)
	assert.Equal(t, okenvelope.RateLimited, env.(*okenvelope.T).Prefix())
	assert.True(t, env.(*okenvelope.T).Prefix().Transient())

	env, err = Parse([]byte(`["OK","abc",true]`))
	require.NoError(t, err)
	assert.True(t, env.(*okenvelope.T).OK)

	env, err = Parse([]byte(`["EVENT","s1",{"id":"aa","pubkey":"bb","created_at":3,"kind":30023,"tags":[["d","x"]],"content":"c","sig":"dd"}]`))
	require.NoError(t, err)
	ee := env.(*eventenvelope.T)
	assert.Equal(t, "s1", string(ee.SubscriptionID))
	assert.Equal(t, kind.LongFormContent, ee.Event.Kind)
	assert.Equal(t, "x", ee.Event.Tags[0].Value())

	env, err = Parse([]byte(`["EOSE","s1"]`))
	require.NoError(t, err)
	assert.Equal(t, "s1", string(env.(*eoseenvelope.T).SubscriptionID))

	env, err = Parse([]byte(`["NOTICE","rate limited"]`))
	require.NoError(t, err)
	assert.Equal(t, "rate limited", env.(*noticeenvelope.T).Text)

	env, err = Parse([]byte(`["CLOSED","s1","auth-required: no"]`))
	require.NoError(t, err)
	assert.Equal(t, "auth-required: no", env.(*closedenvelope.T).Reason)

	env, err = Parse([]byte(`["REQ","s2",{"#t":["go"]},{"kinds":[1]}]`))
	require.NoError(t, err)
	req := env.(*reqenvelope.T)
	require.Len(t, req.Filters, 2)
	assert.Equal(t, []string{"go"}, req.Filters[0].Tags["t"])
}

func TestParseMalformed(t *testing.T) {
	for _, msg := range []string{
		``,
		`{}`,
		`[]`,
		`[1,2]`,
		`["WHAT","x"]`,
		`["OK","abc"]`,
		`["OK","abc","yes"]`,
		`["EVENT","s1",null]`,
		`["EVENT","s1",{"kind":"one"}]`,
		`["EOSE"]`,
		`["EVENT"`,
	} {
		_, err := Parse([]byte(msg))
		assert.ErrorIs(t, err, errs.Protocol, "message %q", msg)
	}
}

func TestEscapedNotice(t *testing.T) {
	b, _ := noticeenvelope.New("a \"quoted\" <tag>").MarshalJSON()
	assert.True(t, strings.Contains(string(b), `<tag>`))
	env, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, "a \"quoted\" <tag>", env.(*noticeenvelope.T).Text)
}

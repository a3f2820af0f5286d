package filter

import (
	"encoding/json"
	"testing"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tags"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"github.com/google/go-cmp/cmp"
)

func TestMarshalFilter(t *testing.T) {
	f := &T{
		Kinds:   []kind.T{kind.TextNote, kind.LongFormContent},
		Authors: []string{"abc"},
		Tags:    TagMap{"t": {"go", "nostr"}, "d": {"slug"}},
		Since:   timestamp.T(1700000000).Ptr(),
		Limit:   500,
	}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kinds":[1,30023],"authors":["abc"],"#d":["slug"],"#t":["go","nostr"],"since":1700000000,"limit":500}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
	var back T
	if err = json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, &back); diff != "" {
		t.Fatalf("decoded filter differs (-want +got):\n%s", diff)
	}
	empty, _ := json.Marshal(&T{})
	if string(empty) != "{}" {
		t.Fatalf("empty filter rendered as %s", empty)
	}
}

func TestMatches(t *testing.T) {
	ev := &event.T{
		PubKey:    "abc",
		CreatedAt: 100,
		Kind:      kind.TextNote,
		Tags:      tags.T{{"t", "go"}},
	}
	cases := []struct {
		name string
		f    T
		want bool
	}{
		{"empty", T{}, true},
		{"kind", T{Kinds: []kind.T{kind.TextNote}}, true},
		{"wrong kind", T{Kinds: []kind.T{kind.LongFormContent}}, false},
		{"author", T{Authors: []string{"abc"}}, true},
		{"wrong author", T{Authors: []string{"def"}}, false},
		{"tag", T{Tags: TagMap{"t": {"rust", "go"}}}, true},
		{"wrong tag", T{Tags: TagMap{"t": {"rust"}}}, false},
		{"since", T{Since: timestamp.T(100).Ptr()}, true},
		{"after since", T{Since: timestamp.T(101).Ptr()}, false},
		{"until", T{Until: timestamp.T(99).Ptr()}, false},
	}
	for _, c := range cases {
		if got := c.f.Matches(ev); got != c.want {
			t.Errorf("%s: Matches = %v, want %v", c.name, got, c.want)
		}
	}
}

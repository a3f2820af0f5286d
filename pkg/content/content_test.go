package content

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tag"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tags"
	"github.com/google/go-cmp/cmp"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPub = "7e7e9c42a91bfef19fa929e5fda1b72e0ebc1a4c1141673e2794234d86addf4e"

func TestExtractTitle(t *testing.T) {
	long := strings.Repeat("a", 60)
	wide := strings.Repeat("é", 60)
	fifty := strings.Repeat("b", 50)
	for _, tc := range []struct{ in, want string }{
		{"", "Note"},
		{"   \n  ", "Note"},
		{"Hello\nworld", "Hello"},
		{"  # Heading one  \nbody", "Heading one"},
		{fifty, fifty},
		{long, strings.Repeat("a", 47) + "..."},
		{wide, strings.Repeat("é", 47) + "..."},
	} {
		if got := ExtractTitle(tc.in); got != tc.want {
			t.Errorf("ExtractTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripTags(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"<p>Hello <b>world</b></p><p>second</p>", "Hello world\n\nsecond"},
		{"line1<br>line2", "line1\nline2"},
		{"a<script>x()</script>b", "ab"},
		{"fish &amp; chips", "fish & chips"},
		{"plain", "plain"},
		{"", ""},
	} {
		if got := StripTags(tc.in); got != tc.want {
			t.Errorf("StripTags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{`<h2>Title</h2><p>Some <strong>bold</strong> and <a href="https://x.y">link</a>.</p>`,
			"## Title\n\nSome **bold** and [link](https://x.y)."},
		{"<ul><li>a</li><li>b</li></ul>", "- a\n- b"},
		{"<ol><li>a</li><li>b</li></ol>", "1. a\n2. b"},
		{`<p><img src="https://x.y/i.png" alt="pic"></p>`, "![pic](https://x.y/i.png)"},
		{"<p>use <code>go</code></p>", "use `go`"},
	} {
		if got := HTMLToMarkdown(tc.in); got != tc.want {
			t.Errorf("HTMLToMarkdown(%q) =\n%q\nwant\n%q", tc.in, got, tc.want)
		}
	}
}

func TestMarkdownToHTML(t *testing.T) {
	out, err := MarkdownToHTML("# Hi\n\nline1\nline2\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Hi</h1>")
	assert.Contains(t, out, "line1<br")
	assert.NotContains(t, out, "<script>")
}

type names map[string]string

func (n names) Name(_ context.T, np string) (name string, ok bool) {
	name, ok = n[np]
	return
}

func TestLinkProfiles(t *testing.T) {
	np, err := nip19.EncodeProfile(testPub, nil)
	require.NoError(t, err)
	text := "hello nostr:" + np + " and " + np + "."
	got := LinkProfiles(context.Bg(), text, names{})
	link := "[" + np[:20] + "...](" + ProfileLinkBase + np + ")"
	assert.Equal(t, "hello "+link+" and "+link+".", got)

	got = LinkProfiles(context.Bg(), "hi "+np, names{np: "alice"})
	assert.Equal(t, "hi [@alice]("+ProfileLinkBase+np+")", got)

	assert.Equal(t, "no refs", LinkProfiles(context.Bg(), "no refs", nil))
}

func TestBuildOutboundNote(t *testing.T) {
	m := New(nil)
	r := &Record{
		ID:         "r1",
		Type:       Note,
		Body:       "<p>Hello <em>there</em></p>",
		Tags:       []string{"a", "b", "a", " "},
		ModifiedAt: 1700000000,
	}
	ev, err := m.BuildOutboundEvent(r)
	require.NoError(t, err)
	assert.Equal(t, kind.TextNote, ev.Kind)
	assert.Equal(t, "Hello there", ev.Content)
	assert.EqualValues(t, 1700000000, ev.CreatedAt)
	if diff := cmp.Diff(tags.T{tag.New("t", "a"), tag.New("t", "b")}, ev.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOutboundArticle(t *testing.T) {
	m := New(nil)
	pub := time.Unix(1699990000, 0)
	r := &Record{
		ID:          "r2",
		Type:        Article,
		Title:       "My Post",
		Body:        "<h1>My Post</h1><p>text</p>",
		Slug:        "my-post",
		URL:         "https://blog.example/my-post",
		Image:       "https://blog.example/cover.png",
		Tags:        []string{"go", "nostr"},
		PublishedAt: pub,
		ModifiedAt:  1700000000,
	}
	ev, err := m.BuildOutboundEvent(r)
	require.NoError(t, err)
	assert.Equal(t, kind.LongFormContent, ev.Kind)
	assert.Equal(t, "# My Post\n\ntext", ev.Content)
	want := tags.T{
		tag.New("d", "my-post"),
		tag.New("title", "My Post"),
		tag.New("published_at", "1699990000"),
		tag.New("url", "https://blog.example/my-post"),
		tag.New("t", "go"),
		tag.New("t", "nostr"),
		tag.New("image", "https://blog.example/cover.png"),
	}
	if diff := cmp.Diff(want, ev.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	r.Slug, r.Title = "", ""
	ev, err = m.BuildOutboundEvent(r)
	require.NoError(t, err)
	assert.Equal(t, tag.New("d", "r2"), ev.Tags[0])
	assert.Equal(t, tag.New("title", "My Post"), ev.Tags[1])
}

func TestBuildOutboundErrors(t *testing.T) {
	now := time.Unix(1710000000, 0)
	m := &T{Now: func() time.Time { return now }}
	_, err := m.BuildOutboundEvent(&Record{ID: "x", Type: Note, Body: "<p> </p>"})
	assert.True(t, errors.Is(err, errs.Mapping))
	_, err = m.BuildOutboundEvent(&Record{ID: "x", Type: "page", Body: "hi"})
	assert.True(t, errors.Is(err, errs.Mapping))

	ev, err := m.BuildOutboundEvent(&Record{ID: "x", Type: Note, Body: "hi"})
	require.NoError(t, err)
	assert.EqualValues(t, now.Unix(), ev.CreatedAt)
}

func TestMapInboundNote(t *testing.T) {
	m := New(nil)
	ev := &event.T{Kind: kind.TextNote, CreatedAt: 1700000000,
		Content: "First line\nsecond line",
		Tags:    tags.T{tag.New("t", "x"), tag.New("e", "abc", "", "reply")}}
	f, err := m.MapInboundEvent(context.Bg(), ev)
	require.NoError(t, err)
	assert.Equal(t, Note, f.Type)
	assert.Equal(t, "First line", f.Title)
	assert.Equal(t, "First line\nsecond line", f.Body)
	assert.Equal(t, []string{"x"}, f.Tags)
	assert.EqualValues(t, 1700000000, f.CreatedAt)

	_, err = m.MapInboundEvent(context.Bg(), &event.T{Kind: kind.TextNote, Content: "  "})
	assert.True(t, errors.Is(err, errs.Mapping))
	_, err = m.MapInboundEvent(context.Bg(), &event.T{Kind: kind.Deletion, Content: "x"})
	assert.True(t, errors.Is(err, errs.Mapping))
}

func TestMapInboundArticle(t *testing.T) {
	m := New(nil)
	ev := &event.T{Kind: kind.LongFormContent, CreatedAt: 1700000000,
		Content: "# Heading\n\nBody text",
		Tags: tags.T{
			tag.New("d", "slug-1"),
			tag.New("title", "Tagged Title"),
			tag.New("image", "https://img/x.png"),
			tag.New("published_at", "1699990000"),
			tag.New("t", "go"),
		}}
	f, err := m.MapInboundEvent(context.Bg(), ev)
	require.NoError(t, err)
	assert.Equal(t, Article, f.Type)
	assert.Equal(t, "Tagged Title", f.Title)
	assert.True(t, f.TitleFromTag)
	assert.Equal(t, "slug-1", f.Slug)
	assert.Equal(t, "https://img/x.png", f.Image)
	assert.Equal(t, int64(1699990000), f.PublishedAt.Unix())
	assert.Equal(t, []string{"go"}, f.Tags)
	assert.Contains(t, f.Body, "<h1>Heading</h1>")
	assert.Contains(t, f.Body, "<p>Body text</p>")

	ev.Tags = tags.T{tag.New("published_at", "2023-11-14")}
	f, err = m.MapInboundEvent(context.Bg(), ev)
	require.NoError(t, err)
	assert.False(t, f.TitleFromTag)
	assert.Equal(t, "Heading", f.Title)
	assert.Equal(t, 2023, f.PublishedAt.Year())
}

func TestApplyKeepsArticleTitle(t *testing.T) {
	r := &Record{Type: Article, Title: "Local Title", Slug: "s"}
	f := &Fields{Type: Article, Title: "Heading", Body: "<p>b</p>", CreatedAt: 5}
	f.Apply(r)
	assert.Equal(t, "Local Title", r.Title)
	assert.Equal(t, "<p>b</p>", r.Body)
	assert.Equal(t, "s", r.Slug)
	assert.EqualValues(t, 5, r.ModifiedAt)

	f.TitleFromTag, f.Title = true, "Remote"
	f.Apply(r)
	assert.Equal(t, "Remote", r.Title)

	n := &Record{Type: Note, Title: "old"}
	(&Fields{Type: Note, Title: "new", Body: "new"}).Apply(n)
	assert.Equal(t, "new", n.Title)
}

func TestRecordOrigin(t *testing.T) {
	now := time.Now()
	r := &Record{}
	assert.False(t, r.HasOrigin(now))
	r.OriginUntil = now.Add(time.Minute)
	assert.True(t, r.HasOrigin(now))
	assert.False(t, r.HasOrigin(now.Add(2*time.Minute)))
	orig := &Record{Tags: []string{"a"}}
	c := orig.Clone()
	c.Tags[0] = "b"
	assert.Equal(t, "a", orig.Tags[0])
}

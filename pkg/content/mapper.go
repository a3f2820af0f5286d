package content

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Hubmakerlabs/nostrbridge/pkg/errs"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tag"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/tags"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
	"github.com/araddon/dateparse"
)

var log, chk = slog.New(os.Stderr)

// Mapper converts between local records and nostr events.
type Mapper interface {
	// BuildOutboundEvent makes the unsigned event for a record.
	BuildOutboundEvent(r *Record) (ev *event.Unsigned, err error)
	// MapInboundEvent makes record fields from an event of a synced kind.
	MapInboundEvent(c context.T, ev *event.T) (f *Fields, err error)
}

// T is the default Mapper. Profiles may be nil, in which case nprofile
// references are linked without a name.
type T struct {
	Profiles ProfileResolver
	// Now is the clock used for records without a modification time.
	Now func() time.Time
}

var _ Mapper = (*T)(nil)

// New creates a mapper.
func New(profiles ProfileResolver) *T {
	return &T{Profiles: profiles, Now: time.Now}
}

func (m *T) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *T) BuildOutboundEvent(r *Record) (ev *event.Unsigned, err error) {
	k, ok := r.Type.Kind()
	if !ok {
		err = errs.New(errs.Mapping, "record %s has unknown type %q", r.ID, r.Type)
		return
	}
	ev = &event.Unsigned{
		CreatedAt: r.ModifiedAt,
		Kind:      k,
		Tags:      tags.T{},
	}
	if ev.CreatedAt == 0 {
		ev.CreatedAt = timestamp.FromTime(m.now())
	}
	switch k {
	case kind.TextNote:
		ev.Content = StripTags(r.Body)
	case kind.LongFormContent:
		ev.Content = HTMLToMarkdown(r.Body)
		d := r.Slug
		if d == "" {
			d = r.ID
		}
		ev.Tags = append(ev.Tags, tag.New("d", d))
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = ExtractTitle(ev.Content)
		}
		ev.Tags = append(ev.Tags, tag.New("title", title))
		if !r.PublishedAt.IsZero() {
			ev.Tags = append(ev.Tags, tag.New("published_at",
				strconv.FormatInt(timestamp.FromTime(r.PublishedAt).I64(), 10)))
		}
		if r.URL != "" {
			ev.Tags = append(ev.Tags, tag.New("url", r.URL))
		}
	}
	for _, t := range r.Tags {
		if t = strings.TrimSpace(t); t != "" {
			ev.Tags = ev.Tags.AppendUnique(tag.New("t", t))
		}
	}
	if k == kind.LongFormContent && r.Image != "" {
		ev.Tags = append(ev.Tags, tag.New("image", r.Image))
	}
	if ev.Content == "" {
		err = errs.New(errs.Mapping, "record %s has no content after conversion", r.ID)
		ev = nil
	}
	return
}

func (m *T) MapInboundEvent(c context.T, ev *event.T) (f *Fields, err error) {
	t, ok := TypeForKind(ev.Kind)
	if !ok {
		err = errs.New(errs.Mapping, "event %s has unsupported kind %d", ev.ID, ev.Kind)
		return
	}
	f = &Fields{Type: t, CreatedAt: ev.CreatedAt}
	switch t {
	case Note:
		text := StripTags(ev.Content)
		f.Title = ExtractTitle(text)
		f.Body = text
	case Article:
		if title := ev.Tags.GetFirst([]string{"title", ""}); title != nil &&
			strings.TrimSpace(title.Value()) != "" {
			f.Title, f.TitleFromTag = strings.TrimSpace(title.Value()), true
		} else {
			f.Title = ExtractTitle(StripTags(ev.Content))
		}
		if f.Body, err = MarkdownToHTML(LinkProfiles(c, ev.Content, m.Profiles)); err != nil {
			err = errs.Wrap(errs.Mapping, err, "event %s", ev.ID)
			f = nil
			return
		}
		if d := ev.Tags.GetFirst([]string{"d", ""}); d != nil {
			f.Slug = d.Value()
		}
		if img := ev.Tags.GetFirst([]string{"image", ""}); img != nil {
			f.Image = img.Value()
		}
		if pa := ev.Tags.GetFirst([]string{"published_at", ""}); pa != nil {
			f.PublishedAt = parseDate(pa.Value())
		}
	}
	f.Tags = ev.Tags.Values("t")
	if strings.TrimSpace(f.Body) == "" || f.Title == "" {
		err = errs.New(errs.Mapping, "event %s has no content after conversion", ev.ID)
		f = nil
	}
	return
}

// parseDate accepts unix seconds or any common date format. Unparseable
// values give the zero time.
func parseDate(s string) (t time.Time) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return timestamp.FromUnix(n).Time().UTC()
	}
	var err error
	if t, err = dateparse.ParseAny(s); err != nil {
		log.D.F("unparseable published_at %q: %v", s, err)
		return time.Time{}
	}
	return
}

package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/event"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/kind"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/wire/text"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// T is a query where one or all elements can be filled in.
//
// The Tags are a special case because the Go encode/json will not do what the
// protocol requires, which is to unwrap the tag map as fields:
//
//	Tags: {t: [a, b], d: [c]}
//
// must be rendered as
//
//	"#d": ["c"], "#t": ["a","b"]
//
// so the filter has its own encoder and decoder.
type T struct {
	IDs     []string
	Kinds   []kind.T
	Authors []string
	// Tags is keyed by the tag name without the leading '#'.
	Tags  TagMap
	Since *timestamp.T
	Until *timestamp.T
	Limit int
}

type TagMap map[string][]string

func (t TagMap) Clone() (t1 TagMap) {
	if t == nil {
		return
	}
	t1 = make(TagMap, len(t))
	for k, v := range t {
		t1[k] = slices.Clone(v)
	}
	return
}

// MarshalJSON writes the filter with a deterministic key order. Tag keys are
// sorted.
func (f *T) MarshalJSON() (b []byte, err error) {
	b = append(b, '{')
	first := true
	key := func(k string) {
		if !first {
			b = append(b, ',')
		}
		first = false
		b = text.EscapeString(b, k)
		b = append(b, ':')
	}
	if f.IDs != nil {
		key("ids")
		b = text.AppendStringArray(b, f.IDs)
	}
	if f.Kinds != nil {
		key("kinds")
		b = append(b, '[')
		for i, k := range f.Kinds {
			if i > 0 {
				b = append(b, ',')
			}
			b = strconv.AppendUint(b, uint64(k), 10)
		}
		b = append(b, ']')
	}
	if f.Authors != nil {
		key("authors")
		b = text.AppendStringArray(b, f.Authors)
	}
	names := maps.Keys(f.Tags)
	slices.Sort(names)
	for _, name := range names {
		key("#" + name)
		b = text.AppendStringArray(b, f.Tags[name])
	}
	if f.Since != nil {
		key("since")
		b = strconv.AppendInt(b, int64(*f.Since), 10)
	}
	if f.Until != nil {
		key("until")
		b = strconv.AppendInt(b, int64(*f.Until), 10)
	}
	if f.Limit > 0 {
		key("limit")
		b = strconv.AppendInt(b, int64(f.Limit), 10)
	}
	return append(b, '}'), nil
}

// UnmarshalJSON unpacks a JSON encoded filter, rolling the `#x` keys up into
// Tags.
func (f *T) UnmarshalJSON(b []byte) (err error) {
	if f == nil {
		return fmt.Errorf("cannot unmarshal into nil T")
	}
	var raw map[string]json.RawMessage
	if err = json.Unmarshal(b, &raw); err != nil {
		return
	}
	*f = T{}
	for k, v := range raw {
		switch {
		case k == "ids":
			err = json.Unmarshal(v, &f.IDs)
		case k == "kinds":
			err = json.Unmarshal(v, &f.Kinds)
		case k == "authors":
			err = json.Unmarshal(v, &f.Authors)
		case k == "since":
			var ts timestamp.T
			err = json.Unmarshal(v, &ts)
			f.Since = &ts
		case k == "until":
			var ts timestamp.T
			err = json.Unmarshal(v, &ts)
			f.Until = &ts
		case k == "limit":
			err = json.Unmarshal(v, &f.Limit)
		case strings.HasPrefix(k, "#") && len(k) > 1:
			var vals []string
			if err = json.Unmarshal(v, &vals); err == nil {
				if f.Tags == nil {
					f.Tags = make(TagMap)
				}
				f.Tags[k[1:]] = vals
			}
		}
		if err != nil {
			return fmt.Errorf("filter key %q: %w", k, err)
		}
	}
	return
}

func (f *T) String() string {
	j, _ := json.Marshal(f)
	return string(j)
}

// Matches reports whether the event satisfies every populated field of the
// filter. Limit is not considered.
func (f *T) Matches(ev *event.T) bool {
	if ev == nil {
		return false
	}
	if f.IDs != nil && !slices.Contains(f.IDs, ev.ID.String()) {
		return false
	}
	if f.Kinds != nil && !slices.Contains(f.Kinds, ev.Kind) {
		return false
	}
	if f.Authors != nil && !slices.Contains(f.Authors, ev.PubKey) {
		return false
	}
	for name, vals := range f.Tags {
		if vals == nil {
			continue
		}
		found := false
		for _, v := range ev.Tags.Values(name) {
			if slices.Contains(vals, v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && ev.CreatedAt > *f.Until {
		return false
	}
	return true
}

func (f *T) Clone() (clone *T) {
	clone = &T{
		IDs:     slices.Clone(f.IDs),
		Kinds:   slices.Clone(f.Kinds),
		Authors: slices.Clone(f.Authors),
		Tags:    f.Tags.Clone(),
		Limit:   f.Limit,
	}
	if f.Since != nil {
		clone.Since = f.Since.Ptr()
	}
	if f.Until != nil {
		clone.Until = f.Until.Ptr()
	}
	return
}

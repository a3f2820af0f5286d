package content

import (
	"bytes"
	"regexp"

	"github.com/Hubmakerlabs/nostrbridge/pkg/nostr/context"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ProfileLinkBase is prepended to an nprofile to make a profile link.
const ProfileLinkBase = "https://njump.me/"

var nprofileRef = regexp.MustCompile(
	`(?i)\b(?:nostr:)?(nprofile1[qpzry9x8gf2tvdw0s3jn54khce6mua7l]{58,})\b`)

// ProfileResolver looks up a display name for a NIP-19 nprofile.
type ProfileResolver interface {
	Name(c context.T, nprofile string) (name string, ok bool)
}

// LinkProfiles replaces nprofile references in markdown text with links to
// the profile. The link text is @name when r resolves it, otherwise the first
// 20 characters of the nprofile followed by "...".
func LinkProfiles(c context.T, text string, r ProfileResolver) string {
	return nprofileRef.ReplaceAllStringFunc(text, func(m string) string {
		np := nprofileRef.FindStringSubmatch(m)[1]
		label := np[:20] + "..."
		if r != nil {
			if name, ok := r.Name(c, np); ok && name != "" {
				label = "@" + name
			}
		}
		return "[" + label + "](" + ProfileLinkBase + np + ")"
	})
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// MarkdownToHTML renders GitHub flavoured markdown. Raw HTML in the input is
// not passed through.
func MarkdownToHTML(text string) (s string, err error) {
	var buf bytes.Buffer
	if err = md.Convert([]byte(text), &buf); chk.E(err) {
		return
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

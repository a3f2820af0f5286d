package content

import (
	"strings"
	"unicode/utf8"
)

const (
	// TitlePlaceholder is used when no title can be extracted.
	TitlePlaceholder = "Note"
	titleMaxRunes    = 50
	titleClipRunes   = 47
)

// ExtractTitle takes the first line of text, trimmed, without leading
// markdown heading markers. Lines longer than 50 runes are cut to 47 runes
// followed by "...". An empty line gives TitlePlaceholder.
func ExtractTitle(text string) (title string) {
	text = strings.ToValidUTF8(text, "")
	title, _, _ = strings.Cut(text, "\n")
	title = strings.TrimSpace(title)
	title = strings.TrimSpace(strings.TrimLeft(title, "#"))
	title = strings.Join(strings.Fields(title), " ")
	if utf8.RuneCountInString(title) > titleMaxRunes {
		title = string([]rune(title)[:titleClipRunes]) + "..."
	}
	if title == "" {
		title = TitlePlaceholder
	}
	return
}

package content

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var blankLines = regexp.MustCompile(`\n[ \t]*\n(\s*\n)*`)

func tidy(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "blockquote", "pre", "ul", "ol",
		"table", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "hr", "figure":
		return true
	}
	return false
}

// StripTags removes all markup and returns the text, with paragraph breaks
// kept as blank lines and <br> as a newline. Script and style contents are
// dropped.
func StripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidy(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case tag == "script" || tag == "style":
				skip++
			case tag == "br":
				b.WriteByte('\n')
			case tag == "li":
				b.WriteByte('\n')
			case isBlock(tag):
				b.WriteString("\n\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case (tag == "script" || tag == "style") && skip > 0:
				skip--
			case isBlock(tag):
				b.WriteString("\n\n")
			}
		}
	}
}

// HTMLToMarkdown converts the common subset of HTML produced by rich text
// editors to markdown: headings, emphasis, links, images, lists, quotes, code
// and line breaks. Other tags are dropped and their text kept.
func HTMLToMarkdown(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	var (
		hrefs  []string
		lists  []string
		counts []int
		skip   int
		inPre  bool
	)
	attr := func(key string) (val string) {
		for {
			k, v, more := z.TagAttr()
			if string(k) == key {
				val = string(v)
			}
			if !more {
				return
			}
		}
	}
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidy(b.String())
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := string(z.Text())
			if !inPre {
				text = strings.Join(strings.FieldsFunc(text, func(r rune) bool {
					return r == '\n' || r == '\r' || r == '\t'
				}), " ")
			}
			b.WriteString(text)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			switch tag {
			case "script", "style":
				skip++
			case "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n\n" + strings.Repeat("#", int(tag[1]-'0')) + " ")
			case "p", "div":
				b.WriteString("\n\n")
			case "br":
				b.WriteString("\n")
			case "hr":
				b.WriteString("\n\n---\n\n")
			case "strong", "b":
				b.WriteString("**")
			case "em", "i":
				b.WriteString("*")
			case "code":
				if !inPre {
					b.WriteString("`")
				}
			case "pre":
				inPre = true
				b.WriteString("\n\n```\n")
			case "blockquote":
				b.WriteString("\n\n> ")
			case "a":
				href := ""
				if hasAttr {
					href = attr("href")
				}
				hrefs = append(hrefs, href)
				b.WriteString("[")
			case "img":
				src, alt := "", ""
				for hasAttr {
					k, v, more := z.TagAttr()
					switch string(k) {
					case "src":
						src = string(v)
					case "alt":
						alt = string(v)
					}
					hasAttr = more
				}
				if alt == "" {
					alt = "image"
				}
				if src != "" {
					b.WriteString("![" + alt + "](" + src + ")")
				}
			case "ul", "ol":
				lists = append(lists, tag)
				counts = append(counts, 0)
				b.WriteString("\n")
			case "li":
				b.WriteString("\n" + strings.Repeat("  ", max(len(lists)-1, 0)))
				if n := len(lists); n > 0 && lists[n-1] == "ol" {
					counts[n-1]++
					b.WriteString(strconv.Itoa(counts[n-1]) + ". ")
				} else {
					b.WriteString("- ")
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); tag {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "h1", "h2", "h3", "h4", "h5", "h6", "p", "div", "blockquote":
				b.WriteString("\n\n")
			case "strong", "b":
				b.WriteString("**")
			case "em", "i":
				b.WriteString("*")
			case "code":
				if !inPre {
					b.WriteString("`")
				}
			case "pre":
				inPre = false
				b.WriteString("\n```\n\n")
			case "a":
				href := ""
				if n := len(hrefs); n > 0 {
					href, hrefs = hrefs[n-1], hrefs[:n-1]
				}
				if href != "" {
					b.WriteString("](" + href + ")")
				} else {
					b.WriteString("]")
				}
			case "ul", "ol":
				if n := len(lists); n > 0 {
					lists, counts = lists[:n-1], counts[:n-1]
				}
				b.WriteString("\n\n")
			}
		}
	}
}

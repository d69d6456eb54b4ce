// Package render turns a block document into self-contained, escaped HTML for
// printing and export.
//
// Every piece of document text passes through html.EscapeString before it is
// written; nothing from the document reaches the output unescaped.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/starford/sheaf/internal/document"
)

const (
	minHeading = 1
	maxHeading = 3
)

// Body renders doc as a sequence of HTML block elements. It is total: any
// Doc, including an empty one, produces output.
func Body(doc document.Doc) string {
	var sb strings.Builder
	for _, b := range doc {
		writeBlock(&sb, b)
	}
	return sb.String()
}

func writeBlock(sb *strings.Builder, b document.Block) {
	// Nested structure is flattened to a plain-text paragraph in print output.
	if len(b.Children) > 0 {
		writeFlattened(sb, b)
		return
	}

	switch b.Kind() {
	case document.KindHeading:
		level := headingLevel(b)
		fmt.Fprintf(sb, "<h%d>%s</h%d>\n", level, Inline(b.Content), level)
	case document.KindQuote:
		fmt.Fprintf(sb, "<blockquote>%s</blockquote>\n", Inline(b.Content))
	case document.KindImage:
		writeFigure(sb, b)
	case document.KindList:
		writeFlattened(sb, b)
	case document.KindCode:
		writeCode(sb, b)
	case document.KindParagraph, document.KindUnknown:
		fmt.Fprintf(sb, "<p>%s</p>\n", Inline(b.Content))
	}
}

// headingLevel clamps the declared level into [1,3].
func headingLevel(b document.Block) int {
	level, ok := b.IntProp("level")
	if !ok {
		return minHeading
	}
	return min(max(level, minHeading), maxHeading)
}

func writeFigure(sb *strings.Builder, b document.Block) {
	caption := b.StringProp("caption")
	if caption == "" {
		caption = b.StringProp("title")
	}
	src := html.EscapeString(safeURL(b.StringProp("url")))
	alt := html.EscapeString(caption)

	fmt.Fprintf(sb, `<figure><img src="%s" alt="%s">`, src, alt)
	if strings.TrimSpace(caption) != "" {
		fmt.Fprintf(sb, "<figcaption>%s</figcaption>", alt)
	}
	sb.WriteString("</figure>\n")
}

func writeFlattened(sb *strings.Builder, b document.Block) {
	text := strings.Join(strings.Fields(document.TreeText(b)), " ")
	fmt.Fprintf(sb, "<p>%s</p>\n", html.EscapeString(text))
}

func writeCode(sb *strings.Builder, b document.Block) {
	code := document.PlainText(b.Content)
	if code == "" {
		code = b.StringProp("text")
	}
	if lang := b.StringProp("language"); lang != "" {
		if highlighted, ok := highlight(code, lang); ok {
			fmt.Fprintf(sb, "<pre class=\"code\"><code>%s</code></pre>\n", highlighted)
			return
		}
	}
	fmt.Fprintf(sb, "<pre class=\"code\"><code>%s</code></pre>\n", html.EscapeString(code))
}

// Inline renders inline nodes. Text is escaped first and then wrapped in style
// tags innermost-first: code, strong, em, u, s.
func Inline(content []document.Inline) string {
	var sb strings.Builder
	for _, in := range content {
		switch v := in.(type) {
		case document.Text:
			sb.WriteString(styled(v))
		case document.Link:
			inner := Inline(v.Content)
			href := html.EscapeString(safeURL(v.Href))
			if strings.TrimSpace(inner) == "" {
				inner = html.EscapeString(v.Href)
			}
			fmt.Fprintf(&sb, `<a href="%s">%s</a>`, href, inner)
		}
	}
	return sb.String()
}

func styled(t document.Text) string {
	s := html.EscapeString(t.Text)
	if t.Styles.Code {
		s = "<code>" + s + "</code>"
	}
	if t.Styles.Bold {
		s = "<strong>" + s + "</strong>"
	}
	if t.Styles.Italic {
		s = "<em>" + s + "</em>"
	}
	if t.Styles.Underline {
		s = "<u>" + s + "</u>"
	}
	if t.Styles.Strike {
		s = "<s>" + s + "</s>"
	}
	return s
}

// safeURL replaces script-bearing URL schemes with "#".
func safeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, u)
	for _, scheme := range []string{"javascript:", "vbscript:", "data:text/html"} {
		if strings.HasPrefix(u, scheme) {
			return "#"
		}
	}
	return raw
}

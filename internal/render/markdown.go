package render

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
)

// goldmark's default renderer omits raw HTML and dangerous link targets.
var markdown = goldmark.New()

// Markdown renders a legacy string document (stored before block documents
// existed) as HTML.
func Markdown(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>\n"
	}
	return buf.String()
}

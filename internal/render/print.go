package render

import (
	"encoding/json"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/starford/sheaf/internal/document"
)

const (
	untitled    = "Untitled"
	attribution = "Exported from Sheaf"
	stampLayout = "2006-01-02 15:04 MST"
)

var printTemplate = template.Must(template.New("print").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: A4; margin: 18mm; }
body { font-family: Georgia, "Times New Roman", serif; color: #111; line-height: 1.5; margin: 0; }
header { border-bottom: 1px solid #ccc; margin-bottom: 16px; padding-bottom: 8px; }
header h1 { font-size: 22pt; margin: 0; }
header .exported { color: #666; font-size: 9pt; }
figure { margin: 12px 0; }
figure img { max-width: 100%; }
figcaption { color: #555; font-size: 9pt; }
pre.code { background: #f6f8fa; padding: 8px; white-space: pre-wrap; font-size: 9pt; }
blockquote { border-left: 3px solid #ccc; margin: 0; padding-left: 12px; color: #444; }
footer { border-top: 1px solid #ccc; margin-top: 24px; padding-top: 8px; color: #888; font-size: 8pt; }
</style>
</head>
<body>
<header><h1>{{.Title}}</h1><div class="exported">Exported {{.ExportedAt}}</div></header>
<main>
{{.Body}}</main>
<footer>{{.Footer}}</footer>
<script>window.addEventListener("load", function () { window.print(); });</script>
</body>
</html>
`))

type page struct {
	Title      string
	ExportedAt string
	Body       template.HTML
	Footer     string
}

// Document wraps the rendered body of doc in a standalone print page with the
// escaped title, the export timestamp and a print-on-load script.
func Document(doc document.Doc, title string, exportedAt time.Time) string {
	return wrap(Body(doc), title, exportedAt)
}

// Print renders any stored document value: block documents through Body,
// legacy strings through Markdown. Values that are neither render an empty page.
func Print(doc any, title string, exportedAt time.Time) string {
	switch v := doc.(type) {
	case string:
		return wrap(Markdown(v), title, exportedAt)
	case json.RawMessage:
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return wrap(Markdown(s), title, exportedAt)
		}
	}
	blocks, _ := document.FromValue(doc)
	return Document(blocks, title, exportedAt)
}

func wrap(body, title string, exportedAt time.Time) string {
	if strings.TrimSpace(title) == "" {
		title = untitled
	}
	var sb strings.Builder
	err := printTemplate.Execute(&sb, page{
		Title:      title,
		ExportedAt: exportedAt.Format(stampLayout),
		Body:       template.HTML(body), //nolint:gosec // body is built from escaped fragments
		Footer:     attribution,
	})
	if err != nil {
		return "<!doctype html><title>" + html.EscapeString(title) + "</title>" + body
	}
	return sb.String()
}

// Package parser reads note files into their title, document, tags and pin
// state. JSON notes carry a block document; legacy Markdown notes carry YAML
// frontmatter and a Markdown body that becomes a string document.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/sheaf/internal/apperr"
	"github.com/starford/sheaf/internal/document"
	"github.com/starford/sheaf/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

var emptyDoc = json.RawMessage(`[]`)

// Result holds the output of parsing a note file.
type Result struct {
	Title  string
	Doc    json.RawMessage
	Pinned bool
	Tags   []string
}

// Parse dispatches on the file extension of path.
func Parse(path string, data []byte) (*Result, error) {
	switch filepath.Ext(path) {
	case models.ExtMarkdown:
		return parseMarkdown(data), nil
	case models.ExtJSON:
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("parser: unsupported note file %q", path)
	}
}

func parseJSON(data []byte) (*Result, error) {
	var f models.NoteFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parser: %w: %v", apperr.ErrInvalidDocument, err)
	}
	doc, err := NormalizeDoc(f.Doc)
	if err != nil {
		return nil, err
	}

	text := DocText(doc)
	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = firstHeading(doc)
	}
	return &Result{
		Title:  title,
		Doc:    doc,
		Pinned: f.Pinned,
		Tags:   extractTags(text, f.Tags),
	}, nil
}

// NormalizeDoc checks a raw document: a missing or null document becomes an
// empty array, arrays and strings pass through, anything else is rejected.
func NormalizeDoc(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return emptyDoc, nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("parser: %w: %v", apperr.ErrInvalidDocument, err)
		}
		return trimmed, nil
	case trimmed[0] == '[':
		if _, err := document.Parse(trimmed); err != nil {
			return nil, fmt.Errorf("parser: %w: %v", apperr.ErrInvalidDocument, err)
		}
		return trimmed, nil
	}
	return nil, fmt.Errorf("parser: %w: document must be an array", apperr.ErrInvalidDocument)
}

// DocText returns the plain text of a raw document.
func DocText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	doc, ok := document.FromValue(raw)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(doc))
	for _, b := range doc {
		if t := document.TreeText(b); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// firstHeading returns the text of the first heading block, or for a string
// document its first "# " line.
func firstHeading(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return markdownTitle(s)
	}
	doc, _ := document.FromValue(raw)
	for _, b := range doc {
		if b.Kind() == document.KindHeading {
			if t := strings.TrimSpace(document.PlainText(b.Content)); t != "" {
				return t
			}
		}
	}
	return ""
}

func parseMarkdown(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	raw, _ := json.Marshal(body)

	res := &Result{
		Title: deriveTitle(fm, body),
		Doc:   raw,
	}
	var fmTags []string
	if fm != nil {
		if list, ok := fm["tags"].([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					fmTags = append(fmTags, s)
				}
			}
		}
		res.Pinned, _ = fm["pinned"].(bool)
	}
	res.Tags = extractTags(body, fmTags)
	return res
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data)
	}
	return fm, body
}

// extractTags merges explicit tags with inline #tags found in text,
// preserving first-seen order.
func extractTags(text string, explicit []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	add := func(s string) {
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "#"))
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range explicit {
		add(s)
	}
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if fm != nil {
		if s, ok := fm["title"].(string); ok && s != "" {
			return s
		}
	}
	return markdownTitle(body)
}

func markdownTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

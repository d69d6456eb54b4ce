// Package preview derives a short text and image summary from a stored document.
package preview

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/sheaf/internal/document"
)

const (
	// MaxTextLen is the clamp threshold in runes, ellipsis included.
	MaxTextLen = 220
	// Placeholder is the text of a preview with neither text nor image.
	Placeholder = "—"

	ellipsis = "…"
)

// Preview is a disposable projection of a document. It is never persisted.
type Preview struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Extract summarises doc. doc may be nil, a string, a JSON document
// ([]byte or json.RawMessage), a decoded JSON array or a document.Doc. It
// never panics.
func Extract(doc any) Preview {
	switch v := doc.(type) {
	case nil:
		return Preview{Text: Placeholder}
	case string:
		return finish(v, "")
	case []byte:
		return extractJSON(v)
	case json.RawMessage:
		return extractJSON(v)
	}

	blocks, ok := document.FromValue(doc)
	if !ok {
		return Preview{Text: Placeholder}
	}
	w := &walker{}
	w.walk(blocks)
	return finish(w.sb.String(), w.image)
}

func extractJSON(data []byte) Preview {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil || decoded == nil {
		return Preview{Text: Placeholder}
	}
	return Extract(decoded)
}

// walker accumulates text depth-first and records the first image.
type walker struct {
	sb    strings.Builder
	runes int
	image string
}

// full is a short-circuit only; callers must not rely on it for exhaustiveness.
func (w *walker) full() bool {
	return w.image != "" && w.runes >= MaxTextLen
}

func (w *walker) walk(blocks []document.Block) {
	for _, b := range blocks {
		if w.full() {
			return
		}
		isImage := b.Kind() == document.KindImage
		if isImage && w.image == "" {
			if u := b.StringProp("url"); u != "" {
				w.image = u
			}
		}
		w.add(document.PlainText(b.Content))
		w.add(b.StringProp("caption"))
		w.add(b.StringProp("title"))
		if !isImage {
			w.add(b.StringProp("url"))
		}
		w.walk(b.Children)
	}
}

func (w *walker) add(s string) {
	if s == "" {
		return
	}
	if w.sb.Len() > 0 {
		w.sb.WriteByte(' ')
		w.runes++
	}
	w.sb.WriteString(s)
	w.runes += utf8.RuneCountInString(s)
}

func finish(text, image string) Preview {
	text = Clamp(collapse(text))
	if text == "" && image == "" {
		text = Placeholder
	}
	return Preview{Text: text, ImageURL: image}
}

// collapse replaces runs of whitespace with a single space and trims.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clamp limits s to MaxTextLen runes, ending in an ellipsis when truncated.
// Clamping an already clamped string is a no-op.
func Clamp(s string) string {
	if utf8.RuneCountInString(s) <= MaxTextLen {
		return s
	}
	r := []rune(s)
	head := strings.TrimRightFunc(string(r[:MaxTextLen-1]), unicode.IsSpace)
	return head + ellipsis
}

package document

import (
	"encoding/json"
	"strings"
)

// Inline is a leaf node carried in a block's content: either Text or Link.
type Inline interface {
	inline()
}

// Styles are the character-level style flags of a text node.
type Styles struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
	Strike    bool `json:"strike,omitempty"`
	Code      bool `json:"code,omitempty"`
}

// Text is a run of styled text.
type Text struct {
	Text   string
	Styles Styles
}

// Link wraps text nodes with an href. Links never contain links.
type Link struct {
	Href    string
	Content []Inline
}

func (Text) inline() {}
func (Link) inline() {}

type textJSON struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Styles Styles `json:"styles"`
}

type linkJSON struct {
	Type    string   `json:"type"`
	Href    string   `json:"href"`
	Content []Inline `json:"content"`
}

// MarshalJSON emits {"type":"text", ...}.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(textJSON{Type: "text", Text: t.Text, Styles: t.Styles})
}

// MarshalJSON emits {"type":"link", ...}.
func (l Link) MarshalJSON() ([]byte, error) {
	content := l.Content
	if content == nil {
		content = []Inline{}
	}
	return json.Marshal(linkJSON{Type: "link", Href: l.Href, Content: content})
}

// decodeInlines turns raw content items into Inline values. Inside a link,
// nested links are flattened into their text children. Items that are
// neither text nor link, or that do not decode, are skipped.
func decodeInlines(items []json.RawMessage, inLink bool) []Inline {
	if len(items) == 0 {
		return nil
	}
	out := make([]Inline, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(string(item))
		if strings.HasPrefix(trimmed, `"`) {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				out = append(out, Text{Text: s})
			}
			continue
		}
		if !strings.HasPrefix(trimmed, "{") {
			continue
		}
		var probe struct {
			Type    string            `json:"type"`
			Text    *string           `json:"text"`
			Styles  Styles            `json:"styles"`
			Href    *string           `json:"href"`
			Content []json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			continue
		}
		isLink := probe.Type == "link" || (probe.Type == "" && probe.Href != nil)
		switch {
		case isLink:
			children := decodeInlines(probe.Content, true)
			if inLink {
				out = append(out, children...)
				continue
			}
			href := ""
			if probe.Href != nil {
				href = *probe.Href
			}
			out = append(out, Link{Href: href, Content: children})
		case probe.Text != nil:
			out = append(out, Text{Text: *probe.Text, Styles: probe.Styles})
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// PlainText concatenates the text of inline nodes, descending into links.
func PlainText(content []Inline) string {
	var sb strings.Builder
	writePlain(&sb, content)
	return sb.String()
}

func writePlain(sb *strings.Builder, content []Inline) {
	for _, in := range content {
		switch v := in.(type) {
		case Text:
			sb.WriteString(v.Text)
		case Link:
			writePlain(sb, v.Content)
		}
	}
}

// TreeText returns the plain text of b and all its descendants, depth-first,
// one space between blocks.
func TreeText(b Block) string {
	parts := make([]string, 0, 1+len(b.Children))
	if s := PlainText(b.Content); s != "" {
		parts = append(parts, s)
	}
	for _, child := range b.Children {
		if s := TreeText(child); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

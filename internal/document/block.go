// Package document defines the block tree that preview, render and share operate on.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotArray is returned when a document's top-level value is not a JSON array.
var ErrNotArray = errors.New("document: top-level value is not an array")

// Doc is an ordered sequence of top-level blocks.
type Doc []Block

// Block is one node of the document tree. Children are owned by their parent;
// there are no back-references. Props hold JSON values: a decoded block
// carries float64 numbers, []any and map[string]any, whatever Go types it was
// built from. Use IntProp and StringProp rather than type assertions.
type Block struct {
	Type     string         `json:"type"`
	Props    map[string]any `json:"props,omitempty"`
	Content  []Inline       `json:"content,omitempty"`
	Children []Block        `json:"children,omitempty"`
}

// Kind is the closed set of block kinds the pipeline knows how to treat.
type Kind int

const (
	KindUnknown Kind = iota
	KindParagraph
	KindHeading
	KindQuote
	KindImage
	KindList
	KindCode
)

var kindByType = map[string]Kind{
	"paragraph":        KindParagraph,
	"heading":          KindHeading,
	"blockquote":       KindQuote,
	"quote":            KindQuote,
	"image":            KindImage,
	"bulletListItem":   KindList,
	"numberedListItem": KindList,
	"checkListItem":    KindList,
	"bulleted":         KindList,
	"numbered":         KindList,
	"checklist":        KindList,
	"codeBlock":        KindCode,
	"code":             KindCode,
}

// Kind maps the declared type to a known kind. Unrecognised types are KindUnknown.
func (b Block) Kind() Kind {
	if k, ok := kindByType[b.Type]; ok {
		return k
	}
	return KindUnknown
}

// StringProp returns props[key] when it is a string, otherwise "".
func (b Block) StringProp(key string) string {
	s, _ := b.Props[key].(string)
	return s
}

// IntProp returns props[key] as an int. JSON numbers and numeric strings are accepted.
func (b Block) IntProp(key string) (int, bool) {
	switch v := b.Props[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// UnmarshalJSON decodes a block. The block itself must be an object; malformed
// parts inside it (a non-object "props", a non-array "content" such as table
// content objects, inline items or children that do not decode) are dropped
// rather than failing the whole document.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     json.RawMessage `json:"type"`
		Props    json.RawMessage `json:"props"`
		Content  json.RawMessage `json:"content"`
		Children json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Block{}
	_ = json.Unmarshal(raw.Type, &b.Type)

	var props map[string]any
	if isObject(raw.Props) && json.Unmarshal(raw.Props, &props) == nil && len(props) > 0 {
		b.Props = props
	}

	var items []json.RawMessage
	if isArray(raw.Content) && json.Unmarshal(raw.Content, &items) == nil {
		b.Content = decodeInlines(items, false)
	}

	var children []json.RawMessage
	if isArray(raw.Children) && json.Unmarshal(raw.Children, &children) == nil {
		for _, item := range children {
			var child Block
			if err := json.Unmarshal(item, &child); err != nil {
				continue
			}
			b.Children = append(b.Children, child)
		}
	}
	return nil
}

// Parse strictly decodes a JSON document. The top-level value must be an array.
func Parse(data []byte) (Doc, error) {
	if !isArray(data) {
		return nil, ErrNotArray
	}
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document: parse: %w", err)
	}
	if doc == nil {
		doc = Doc{}
	}
	return doc, nil
}

// FromValue converts an already-decoded value into a Doc. Array entries that
// are not objects are skipped. It reports false when v is not array-shaped.
func FromValue(v any) (Doc, bool) {
	switch d := v.(type) {
	case Doc:
		return d, true
	case []Block:
		return Doc(d), true
	case json.RawMessage:
		return fromRaw(d)
	case []any:
		out := make(Doc, 0, len(d))
		for _, item := range d {
			if _, ok := item.(map[string]any); !ok {
				continue
			}
			raw, err := json.Marshal(item)
			if err != nil {
				continue
			}
			var b Block
			if err := json.Unmarshal(raw, &b); err != nil {
				continue
			}
			out = append(out, b)
		}
		return out, true
	}
	return nil, false
}

func fromRaw(data json.RawMessage) (Doc, bool) {
	if !isArray(data) {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return FromValue(items)
}

func isArray(data []byte) bool {
	s := strings.TrimSpace(string(data))
	return strings.HasPrefix(s, "[")
}

func isObject(data []byte) bool {
	s := strings.TrimSpace(string(data))
	return strings.HasPrefix(s, "{")
}

// FromText turns plain text into paragraphs, one per blank-line separated
// chunk. It is how a legacy string document enters the block pipeline.
func FromText(s string) Doc {
	doc := Doc{}
	for _, chunk := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		doc = append(doc, Block{Type: "paragraph", Content: []Inline{Text{Text: chunk}}})
	}
	return doc
}

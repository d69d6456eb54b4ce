// Package share implements the link-sharing protocol for documents: a
// versioned payload, its compressed URL-safe encoding, a tiered resolver that
// reconstructs a payload from a shared URL, and a publisher that prefers short
// links but always degrades to a self-contained one.
package share

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/sheaf/internal/document"
)

// Version is the only payload version this package reads or writes.
const Version = 1

// Payload is the envelope carried by a shared link. A decoded payload equals
// the encoded one in JSON terms: block props come back as JSON values (see
// document.Block).
type Payload struct {
	V     int          `json:"v"`
	Title string       `json:"title"`
	Doc   document.Doc `json:"doc"`
}

// NewPayload builds a current-version payload. A nil doc becomes empty so the
// encoded form always carries an array.
func NewPayload(title string, doc document.Doc) Payload {
	if doc == nil {
		doc = document.Doc{}
	}
	return Payload{V: Version, Title: title, Doc: doc}
}

func marshalPayload(p Payload) ([]byte, error) {
	if p.Doc == nil {
		p.Doc = document.Doc{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("share: encode: %w", err)
	}
	return data, nil
}

// parsePayload applies the shape check: v is exactly the number 1, title is a
// string and doc is an array. Anything else is rejected. Entries of doc are
// read the way previews read them, so a malformed block is skipped instead of
// invalidating the link.
func parsePayload(data []byte) (*Payload, bool) {
	var raw struct {
		V     json.RawMessage `json:"v"`
		Title json.RawMessage `json:"title"`
		Doc   json.RawMessage `json:"doc"`
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return nil, false
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}

	var v float64
	if err := json.Unmarshal(raw.V, &v); err != nil || v != Version {
		return nil, false
	}

	title := bytes.TrimSpace(raw.Title)
	if !bytes.HasPrefix(title, []byte(`"`)) {
		return nil, false
	}
	var p Payload
	if err := json.Unmarshal(title, &p.Title); err != nil {
		return nil, false
	}

	doc, ok := document.FromValue(raw.Doc)
	if !ok {
		return nil, false
	}
	p.V = Version
	p.Doc = doc
	return &p, true
}

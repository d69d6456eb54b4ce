package preview

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sheaf/internal/document"
)

func mustParse(t *testing.T, src string) document.Doc {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestExtract_HeadingAndImage(t *testing.T) {
	doc := mustParse(t, `[
		{"type":"heading","props":{"level":1},"content":[{"type":"text","text":"Hello","styles":{"bold":true}}]},
		{"type":"image","props":{"url":"https://x/y.png"}}
	]`)
	assert.Equal(t, Preview{Text: "Hello", ImageURL: "https://x/y.png"}, Extract(doc))
}

func TestExtract_EmptyDocument(t *testing.T) {
	assert.Equal(t, Preview{Text: "—"}, Extract(document.Doc{}))
	assert.Equal(t, Preview{Text: "—"}, Extract(json.RawMessage(`[]`)))
}

func TestExtract_RawBytes(t *testing.T) {
	src := `[{"type":"paragraph","content":[{"type":"text","text":"hi"}]}]`
	assert.Equal(t, Preview{Text: "hi"}, Extract([]byte(src)))
	assert.Equal(t, Extract(json.RawMessage(src)), Extract([]byte(src)))
	assert.Equal(t, Preview{Text: Placeholder}, Extract([]byte(`not json`)))
}

func TestExtract_NonDocuments(t *testing.T) {
	for _, in := range []any{nil, 42, map[string]any{"type": "paragraph"}, json.RawMessage(`{"a":1}`), json.RawMessage(`not json`)} {
		assert.Equal(t, Preview{Text: Placeholder}, Extract(in))
	}
}

func TestExtract_PlainString(t *testing.T) {
	got := Extract("  some   legacy\n\ttext  ![img](https://x/y.png) ")
	assert.Equal(t, "some legacy text ![img](https://x/y.png)", got.Text)
	assert.Empty(t, got.ImageURL)

	assert.Equal(t, Preview{Text: Placeholder}, Extract("   "))
	assert.Equal(t, "quoted", Extract(json.RawMessage(`"quoted"`)).Text)
}

func TestExtract_FirstImageWins(t *testing.T) {
	doc := mustParse(t, `[
		{"type":"image","props":{"url":""}},
		{"type":"paragraph","children":[{"type":"image","props":{"url":"https://first","caption":"cap"}}]},
		{"type":"image","props":{"url":"https://second"}}
	]`)
	got := Extract(doc)
	assert.Equal(t, "https://first", got.ImageURL)
	assert.Equal(t, "cap", got.Text)
}

func TestExtract_ChildrenBeforeSiblings(t *testing.T) {
	doc := mustParse(t, `[
		{"type":"bulletListItem","content":["a"],"children":[{"type":"bulletListItem","content":["b"]}]},
		{"type":"paragraph","content":["c"]}
	]`)
	assert.Equal(t, "a b c", Extract(doc).Text)
}

func TestExtract_BlockLevelFields(t *testing.T) {
	doc := mustParse(t, `[
		{"type":"file","props":{"name":"ignored","title":"Report","url":"https://files/r.pdf"}},
		{"type":"image","props":{"url":"https://img","caption":"Diagram"}}
	]`)
	got := Extract(doc)
	assert.Equal(t, "Report https://files/r.pdf Diagram", got.Text)
	assert.Equal(t, "https://img", got.ImageURL)
}

func TestExtract_ImageOnly(t *testing.T) {
	got := Extract(mustParse(t, `[{"type":"image","props":{"url":"https://img"}}]`))
	assert.Equal(t, Preview{Text: "", ImageURL: "https://img"}, got)
}

func TestExtract_ClampsLongText(t *testing.T) {
	long := strings.Repeat("word ", 100)
	raw, err := json.Marshal([]any{map[string]any{"type": "paragraph", "content": []any{long}}})
	require.NoError(t, err)

	got := Extract(json.RawMessage(raw))
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), MaxTextLen)
	assert.True(t, strings.HasPrefix(got.Text, "word word"))
	assert.True(t, strings.HasSuffix(got.Text, "…"))
}

func TestClamp_Idempotent(t *testing.T) {
	for _, s := range []string{
		"",
		"short",
		strings.Repeat("x", MaxTextLen),
		strings.Repeat("y", MaxTextLen+1),
		strings.Repeat("é ", 300),
		strings.Repeat("日本", 200),
	} {
		once := Clamp(s)
		assert.LessOrEqual(t, utf8.RuneCountInString(once), MaxTextLen)
		assert.Equal(t, once, Clamp(once))
	}
	assert.Equal(t, strings.Repeat("x", MaxTextLen), Clamp(strings.Repeat("x", MaxTextLen)))
}

func TestExtract_EarlyStopKeepsFirstImage(t *testing.T) {
	blocks := []any{
		map[string]any{"type": "image", "props": map[string]any{"url": "https://a"}},
		map[string]any{"type": "paragraph", "content": []any{strings.Repeat("z", 300)}},
		map[string]any{"type": "image", "props": map[string]any{"url": "https://b"}},
	}
	got := Extract(blocks)
	assert.Equal(t, "https://a", got.ImageURL)
	assert.Equal(t, MaxTextLen, utf8.RuneCountInString(got.Text))
}

func TestCache_FirstReaderWins(t *testing.T) {
	c := NewCache()
	loads := 0
	load := func() (any, error) {
		loads++
		return "first body", nil
	}
	p := c.Get("n1", load)
	assert.Equal(t, "first body", p.Text)

	p = c.Get("n1", func() (any, error) {
		loads++
		return "changed body", nil
	})
	assert.Equal(t, "first body", p.Text)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, c.Len())
}

func TestCache_LoadErrorNotCached(t *testing.T) {
	c := NewCache()
	p := c.Get("n1", func() (any, error) { return nil, errors.New("boom") })
	assert.Equal(t, Placeholder, p.Text)
	_, ok := c.Lookup("n1")
	assert.False(t, ok)
}

func TestCache_IsolatedAndForget(t *testing.T) {
	a, b := NewCache(), NewCache()
	a.Get("n1", func() (any, error) { return "from a", nil })
	_, ok := b.Lookup("n1")
	assert.False(t, ok)

	a.Forget("n1")
	assert.Equal(t, 0, a.Len())
	a.Get("n2", func() (any, error) { return "x", nil })
	a.Flush()
	assert.Equal(t, 0, a.Len())
}

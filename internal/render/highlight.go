package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Inline styles keep the print document free of external stylesheets.
var codeFormatter = chromahtml.New(
	chromahtml.WithClasses(false),
	chromahtml.PreventSurroundingPre(true),
)

const codeStyle = "github"

// highlight returns syntax-highlighted, escaped HTML for code. ok is false
// when the language is unknown or tokenising fails.
func highlight(code, lang string) (string, bool) {
	lexer := lexers.Get(strings.ToLower(strings.TrimSpace(lang)))
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}
	var sb strings.Builder
	if err := codeFormatter.Format(&sb, styles.Get(codeStyle), it); err != nil {
		return "", false
	}
	return sb.String(), true
}

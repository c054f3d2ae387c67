package transform

import (
	"strings"

	"github.com/fluxbase-eu/pakto/internal/source"
)

// replacer returns the expression a require or import() call evaluates to,
// or false to leave the call untouched.
type replacer func(imp source.Import) (string, bool)

// rewriteCalls substitutes require(...) and import(...) calls in text. For
// import() the expression is wrapped in a resolved promise.
func rewriteCalls(text string, imports []source.Import, replace replacer) string {
	l := source.Lex(text)
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, imp := range imports {
		if imp.Kind != source.ImportRequire && imp.Kind != source.ImportDynamic {
			continue
		}
		if imp.Offset < last {
			continue
		}
		expr, ok := replace(imp)
		if !ok {
			continue
		}
		end := l.CallEnd(imp.Offset)
		if end < 0 {
			continue
		}
		if imp.Kind == source.ImportDynamic {
			expr = "Promise.resolve().then(function () { return " + expr + "; })"
		}
		b.WriteString(text[last:imp.Offset])
		b.WriteString(expr)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

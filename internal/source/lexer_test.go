package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLex_MasksCommentsAndLiterals(t *testing.T) {
	tests := []struct {
		name string
		text string
		code string
	}{
		{
			name: "line comment after string",
			text: `var s = "a//b"; // c`,
			code: `var s = "    ";     `,
		},
		{
			name: "block comment",
			text: "a /* require('x') */ b",
			code: "a                    b",
		},
		{
			name: "regex literal with quote",
			text: `var r = /"/; var t = 'x';`,
			code: `var r = / /; var t = ' ';`,
		},
		{
			name: "division is not a regex",
			text: `var d = a / b / c;`,
			code: `var d = a / b / c;`,
		},
		{
			name: "escaped quote",
			text: `'it\'s'`,
			code: `'     '`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Lex(tt.text)
			assert.Equal(t, tt.code, l.Code)
			assert.Len(t, l.Code, len(tt.text))
			assert.False(t, l.Unterminated)
		})
	}
}

func TestLex_TemplateWithSubstitution(t *testing.T) {
	text := "const a = `x${'`'}y`; require('z');"
	l := Lex(text)

	assert.Len(t, l.Code, len(text))
	assert.NotContains(t, l.Code, "x$")
	assert.Contains(t, l.Code, "require(' ')")
}

func TestLex_SubstitutionIsCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		code string
	}{
		{
			name: "require in substitution",
			text: "x = `v=${require('./t').v}!`;",
			code: "x = `  ${require('   ').v} `;",
		},
		{
			name: "nested template",
			text: "x = `a${`b${c}d`}e`;",
			code: "x = ` ${` ${c} `} `;",
		},
		{
			name: "object literal in substitution",
			text: "x = `${ {a: 'q'}.a }z`;",
			code: "x = `${ {a: ' '}.a } `;",
		},
		{
			name: "comment in substitution",
			text: "x = `${a /* } */}`;",
			code: "x = `${a        }`;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Lex(tt.text)
			assert.Equal(t, tt.code, l.Code)
			assert.False(t, l.Unterminated)
		})
	}
}

func TestLex_SubstitutionBracesDoNotNest(t *testing.T) {
	text := "var s = `${a}`; function f() { return `${b}`; }"
	l := Lex(text)

	assert.Equal(t, 0, l.Depth(strings.Index(text, "a}")))
	assert.Equal(t, 1, l.Depth(strings.Index(text, "b}")))
	assert.True(t, l.Lazy(strings.Index(text, "b}")))
	assert.Equal(t, 0, l.Depth(len(text)))
}

func TestLex_UnterminatedSubstitution(t *testing.T) {
	assert.True(t, Lex("x = `a${b").Unterminated)
	assert.True(t, Lex("x = `a${b}").Unterminated)
}

func TestLex_Unterminated(t *testing.T) {
	l := Lex("var a = 1; /* never closed")
	assert.True(t, l.Unterminated)
}

func TestLexed_Depth(t *testing.T) {
	text := "a { b { c } } d"
	l := Lex(text)

	assert.Equal(t, 0, l.Depth(strings.Index(text, "a")))
	assert.Equal(t, 1, l.Depth(strings.Index(text, "b")))
	assert.Equal(t, 2, l.Depth(strings.Index(text, "c")))
	assert.Equal(t, 0, l.Depth(strings.Index(text, "d")))
}

func TestLexed_Lazy(t *testing.T) {
	text := strings.Join([]string{
		"var a = require('a');",
		"function f() { require('b'); }",
		"(function () { require('c'); })();",
		"const g = () => { require('d'); };",
		"if (x) { require('e'); }",
		"var o = { run() { require('f'); } };",
		"!function () { require('g'); }();",
	}, "\n")
	l := Lex(text)

	lazy := func(spec string) bool {
		pos := strings.Index(text, "require('"+spec+"')")
		require.GreaterOrEqual(t, pos, 0)
		return l.Lazy(pos)
	}

	assert.False(t, lazy("a"), "top level")
	assert.True(t, lazy("b"), "function declaration")
	assert.False(t, lazy("c"), "immediately invoked")
	assert.True(t, lazy("d"), "arrow function")
	assert.False(t, lazy("e"), "plain block")
	assert.True(t, lazy("f"), "method")
	assert.False(t, lazy("g"), "negated invocation")
}

func TestLexed_StringAt(t *testing.T) {
	text := "x('./a.js', \"b\\\"c\", `t`, `${v}`)"
	l := Lex(text)

	v, end, ok := l.StringAt(strings.Index(text, "'"))
	require.True(t, ok)
	assert.Equal(t, "./a.js", v)
	assert.Equal(t, ',', rune(text[end]))

	v, _, ok = l.StringAt(strings.Index(text, `"`))
	require.True(t, ok)
	assert.Equal(t, `b"c`, v)

	v, _, ok = l.StringAt(strings.Index(text, "`t"))
	require.True(t, ok)
	assert.Equal(t, "t", v)

	_, _, ok = l.StringAt(strings.Index(text, "`${"))
	assert.False(t, ok)
}

func TestLexed_CallEnd(t *testing.T) {
	text := "var a = require('./x(' + \")\").b; require(f(1))"
	l := Lex(text)

	end := l.CallEnd(strings.Index(text, "require"))
	assert.Equal(t, ".b;", text[end:end+3])

	second := strings.LastIndex(text, "require")
	assert.Equal(t, len(text), l.CallEnd(second))
	assert.Equal(t, -1, Lex("require(x").CallEnd(0))
}

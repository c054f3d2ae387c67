// Package source models a single JavaScript file of a package: its module
// format, the modules it imports, the names it exports and the syntax level it
// relies on. Everything here is a syntactic scan over a masked copy of the
// text; nothing is evaluated.
package source

import (
	"sort"
	"strings"
)

// Lexed pairs a file's text with a masked copy of the same length. In Code,
// comments and the bodies of string, template and regular expression literals
// are replaced by spaces (newlines are kept, quote characters are kept), so
// keyword searches never match inside them. Template substitutions are code
// and stay visible. Offsets are shared with Text.
type Lexed struct {
	Text string
	Code string

	// Unterminated is set when a comment or literal runs to end of file.
	Unterminated bool

	opens  []int
	closes []int
	spans  []span
	parens map[int]int
}

// span is one brace pair. fn marks a function body; iife marks a function
// body that is invoked where it is defined.
type span struct {
	open, close int
	fn, iife    bool
}

var regexPrefixWords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

var blockWords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"with": true, "else": true, "try": true, "finally": true, "do": true,
}

// Lex masks text and records its brace structure.
func Lex(text string) *Lexed {
	l := &Lexed{Text: text, parens: make(map[int]int)}
	buf := []byte(text)
	n := len(buf)

	var (
		lastSig   byte
		lastWord  string
		braces    []int
		parenOpen []int
		// subst holds, per open ${ substitution, the brace depth it started at.
		subst []int
	)

	blank := func(from, to int) {
		for k := from; k < to && k < n; k++ {
			if buf[k] != '\n' {
				buf[k] = ' '
			}
		}
	}

	// templatePart masks template text from `from` up to the closing
	// backtick or the next ${. It returns the offset after that delimiter and
	// whether a substitution was opened.
	templatePart := func(from int) (int, bool) {
		j := from
		for j < n {
			switch buf[j] {
			case '\\':
				j += 2
				continue
			case '`':
				blank(from, j)
				return j + 1, false
			case '$':
				if j+1 < n && buf[j+1] == '{' {
					blank(from, j)
					return j + 2, true
				}
			}
			j++
		}
		l.Unterminated = true
		blank(from, n)
		return n, false
	}

	i := 0
	if strings.HasPrefix(text, "#!") {
		end := strings.IndexByte(text, '\n')
		if end < 0 {
			end = n
		}
		blank(0, end)
		i = end
	}
	for i < n {
		c := buf[i]
		switch {
		case c == '/' && i+1 < n && buf[i+1] == '/':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = n - i
			}
			blank(i, i+end)
			i += end
			continue

		case c == '/' && i+1 < n && buf[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				l.Unterminated = true
				blank(i, n)
				i = n
				continue
			}
			blank(i, i+2+end+2)
			i += 2 + end + 2
			continue

		case c == '\'' || c == '"':
			end, ok := skipQuoted(text, i)
			if !ok {
				l.Unterminated = true
			}
			blank(i+1, end-1)
			i = end
			lastSig, lastWord = c, ""
			continue

		case c == '`', c == '}' && len(subst) > 0 && subst[len(subst)-1] == len(braces):
			if c == '}' {
				subst = subst[:len(subst)-1]
			}
			end, open := templatePart(i + 1)
			i = end
			if open {
				subst = append(subst, len(braces))
				lastSig, lastWord = '{', ""
				continue
			}
			lastSig, lastWord = '`', ""
			continue

		case c == '/' && regexAllowed(lastSig, lastWord):
			if end, ok := skipRegex(text, i); ok {
				blank(i+1, end-1)
				i = end
				for i < n && isIdentPart(buf[i]) {
					i++
				}
				lastSig, lastWord = '/', ""
				continue
			}

		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentPart(buf[j]) {
				j++
			}
			lastWord = text[i:j]
			lastSig = buf[j-1]
			i = j
			continue

		case c == '{':
			braces = append(braces, i)
			l.opens = append(l.opens, i)

		case c == '}':
			l.closes = append(l.closes, i)
			if len(braces) > 0 {
				open := braces[len(braces)-1]
				braces = braces[:len(braces)-1]
				l.spans = append(l.spans, span{open: open, close: i})
			}

		case c == '(':
			parenOpen = append(parenOpen, i)

		case c == ')':
			if len(parenOpen) > 0 {
				l.parens[i] = parenOpen[len(parenOpen)-1]
				parenOpen = parenOpen[:len(parenOpen)-1]
			}
		}

		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			lastSig, lastWord = c, ""
		}
		i++
	}

	if len(subst) > 0 {
		l.Unterminated = true
	}
	l.Code = string(buf)
	for len(braces) > 0 {
		open := braces[len(braces)-1]
		braces = braces[:len(braces)-1]
		l.spans = append(l.spans, span{open: open, close: n})
	}
	sort.Slice(l.spans, func(a, b int) bool { return l.spans[a].open < l.spans[b].open })
	for k := range l.spans {
		l.classify(&l.spans[k])
	}
	return l
}

// Depth returns the brace nesting depth at pos.
func (l *Lexed) Depth(pos int) int {
	return sort.SearchInts(l.opens, pos) - sort.SearchInts(l.closes, pos)
}

// Lazy reports whether pos lies inside a function body that does not run
// while the module loads. Immediately invoked functions count as load time.
func (l *Lexed) Lazy(pos int) bool {
	for _, s := range l.spans {
		if s.open >= pos {
			break
		}
		if pos < s.close && s.fn && !s.iife {
			return true
		}
	}
	return false
}

// StringAt decodes the string literal whose opening quote is at pos. It
// returns the value and the offset just past the closing quote.
func (l *Lexed) StringAt(pos int) (string, int, bool) {
	if pos < 0 || pos >= len(l.Text) {
		return "", pos, false
	}
	q := l.Text[pos]
	var end int
	var ok bool
	switch q {
	case '\'', '"':
		end, ok = skipQuoted(l.Text, pos)
	case '`':
		end, ok = skipTemplate(l.Text, pos)
		if ok && strings.Contains(l.Text[pos:end], "${") {
			return "", end, false
		}
	default:
		return "", pos, false
	}
	if !ok {
		return "", end, false
	}
	return unescape(l.Text[pos+1 : end-1]), end, true
}

// classify decides whether a brace span is a function body, looking at the
// tokens before the opening brace and after the closing one.
// CallEnd returns the offset just past the closing parenthesis of the call
// whose callee starts at pos, or -1 when the call is not closed.
func (l *Lexed) CallEnd(pos int) int {
	open := strings.IndexByte(l.Code[pos:], '(')
	if open < 0 {
		return -1
	}
	depth := 0
	for k := pos + open; k < len(l.Code); k++ {
		switch l.Code[k] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return k + 1
			}
		}
	}
	return -1
}

func (l *Lexed) classify(s *span) {
	code := l.Code
	q := prevNonSpace(code, s.open)
	if q < 0 {
		return
	}
	switch {
	case code[q] == '>' && q > 0 && code[q-1] == '=':
		s.fn = true
	case code[q] == ')':
		open, ok := l.parens[q]
		if !ok {
			return
		}
		word, start := wordBefore(code, open)
		if word == "" || blockWords[word] {
			return
		}
		s.fn = true
		if word != "function" {
			// named function, or a method which never runs in place
			prev, prevStart := wordBefore(code, start)
			if prev != "function" {
				return
			}
			start = prevStart
		}
		if !expressionStart(code, start) {
			return
		}
	default:
		return
	}
	if s.close >= len(code) {
		return
	}
	next := nextNonSpace(code, s.close+1)
	if next < 0 {
		return
	}
	switch code[next] {
	case '(':
		s.iife = true
	case ')':
		after := nextNonSpace(code, next+1)
		if after < 0 {
			return
		}
		if code[after] == '(' || strings.HasPrefix(code[after:], ".call(") || strings.HasPrefix(code[after:], ".apply(") {
			s.iife = true
		}
	}
}

// expressionStart reports whether the function keyword at pos begins an
// expression rather than a declaration statement.
func expressionStart(code string, pos int) bool {
	if w, start := wordBefore(code, pos); w == "async" {
		pos = start
	}
	if w, _ := wordBefore(code, pos); w != "" {
		return regexPrefixWords[w]
	}
	p := prevNonSpace(code, pos)
	if p < 0 {
		return false
	}
	return strings.IndexByte("(!=,+-~:?&|[", code[p]) >= 0
}

func regexAllowed(lastSig byte, lastWord string) bool {
	if lastWord != "" {
		return regexPrefixWords[lastWord]
	}
	if lastSig == 0 {
		return true
	}
	return strings.IndexByte("(,=:[!&|?{};+-*%<>~^", lastSig) >= 0
}

func skipQuoted(text string, i int) (int, bool) {
	q := text[i]
	j := i + 1
	for j < len(text) {
		switch text[j] {
		case '\\':
			j += 2
			continue
		case q:
			return j + 1, true
		case '\n':
			return j, false
		}
		j++
	}
	return len(text), false
}

func skipTemplate(text string, i int) (int, bool) {
	j := i + 1
	for j < len(text) {
		switch text[j] {
		case '\\':
			j += 2
			continue
		case '`':
			return j + 1, true
		case '$':
			if j+1 < len(text) && text[j+1] == '{' {
				end, ok := skipTemplateExpr(text, j+2)
				if !ok {
					return len(text), false
				}
				j = end
				continue
			}
		}
		j++
	}
	return len(text), false
}

// skipTemplateExpr skips a ${...} substitution starting after the brace.
func skipTemplateExpr(text string, j int) (int, bool) {
	depth := 1
	for j < len(text) {
		switch text[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j + 1, true
			}
		case '\'', '"':
			end, _ := skipQuoted(text, j)
			j = end
			continue
		case '`':
			end, ok := skipTemplate(text, j)
			if !ok {
				return len(text), false
			}
			j = end
			continue
		}
		j++
	}
	return len(text), false
}

func skipRegex(text string, i int) (int, bool) {
	inClass := false
	j := i + 1
	for j < len(text) {
		switch text[j] {
		case '\\':
			j += 2
			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				return j + 1, j > i+1
			}
		case '\n':
			return j, false
		}
		j++
	}
	return len(text), false
}

func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// prevNonSpace returns the index of the last non-space byte before pos.
func prevNonSpace(code string, pos int) int {
	for k := pos - 1; k >= 0; k-- {
		if !isSpace(code[k]) {
			return k
		}
	}
	return -1
}

// nextNonSpace returns the index of the first non-space byte at or after pos.
func nextNonSpace(code string, pos int) int {
	for k := pos; k < len(code); k++ {
		if !isSpace(code[k]) {
			return k
		}
	}
	return -1
}

// wordBefore returns the identifier that ends right before pos (ignoring
// spaces) and its start offset.
func wordBefore(code string, pos int) (string, int) {
	end := prevNonSpace(code, pos)
	if end < 0 || !isIdentPart(code[end]) {
		return "", pos
	}
	start := end
	for start > 0 && isIdentPart(code[start-1]) {
		start--
	}
	return code[start : end+1], start
}

// wordAt returns the identifier starting at pos.
func wordAt(code string, pos int) string {
	if pos < 0 || pos >= len(code) || !isIdentStart(code[pos]) {
		return ""
	}
	end := pos + 1
	for end < len(code) && isIdentPart(code[end]) {
		end++
	}
	return code[pos:end]
}

// keywordOffsets returns every offset where word occurs in code as a whole
// identifier that is not a property access.
func keywordOffsets(code, word string) []int {
	var out []int
	from := 0
	for {
		k := strings.Index(code[from:], word)
		if k < 0 {
			return out
		}
		pos := from + k
		from = pos + len(word)
		if pos > 0 {
			prev := code[pos-1]
			if isIdentPart(prev) || prev == '.' {
				continue
			}
		}
		if end := pos + len(word); end < len(code) && isIdentPart(code[end]) {
			continue
		}
		out = append(out, pos)
	}
}

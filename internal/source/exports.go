package source

import (
	"regexp"
	"strings"
)

// Exports is the export surface of a file. When Dynamic is set the names are
// incomplete and the surface cannot be determined statically.
type Exports struct {
	Names   []string
	Dynamic bool
	// Star is set when the file re-exports everything from another module.
	Star bool
}

// Has reports whether name is a known export.
func (e Exports) Has(name string) bool {
	for _, n := range e.Names {
		if n == name {
			return true
		}
	}
	return false
}

var (
	cjsMemberAssign = regexp.MustCompile(`(^|[^.\w$])(module\s*\.\s*)?exports\s*\.\s*([\w$]+)\s*=`)
	cjsIndexAssign  = regexp.MustCompile(`(^|[^.\w$])(module\s*\.\s*)?exports\s*\[`)
	cjsDefineProp   = regexp.MustCompile(`Object\s*\.\s*defineProperty\(\s*(module\s*\.\s*)?exports\s*,\s*`)
	cjsWholeAssign  = regexp.MustCompile(`(^|[^.\w$])module\s*\.\s*exports\s*=`)
	cjsModuleRef    = regexp.MustCompile(`(^|[^.\w$])module\s*\.\s*exports\b`)
)

func scanExports(l *Lexed, format Format) Exports {
	switch format {
	case FormatESM:
		return scanESMExports(l)
	case FormatCommonJS:
		return scanCommonJSExports(l)
	case FormatUnknown:
		return Exports{}
	default:
		return Exports{Dynamic: true}
	}
}

func scanESMExports(l *Lexed) Exports {
	code := l.Code
	var out Exports
	for _, pos := range keywordOffsets(code, "export") {
		if l.Depth(pos) != 0 {
			continue
		}
		next := nextNonSpace(code, pos+len("export"))
		if next < 0 {
			continue
		}
		switch word := wordAt(code, next); {
		case word == "default":
			out.Names = append(out.Names, "default")
		case word == "function" || word == "async" || word == "class":
			if name := declaredName(code, next); name != "" {
				out.Names = append(out.Names, name)
			}
		case word == "const" || word == "let" || word == "var":
			out.Names = append(out.Names, declarators(code, next+len(word))...)
		case code[next] == '{':
			end := strings.IndexByte(code[next:], '}')
			if end < 0 {
				continue
			}
			for _, b := range parseSpecifierList(code[next+1 : next+end]) {
				out.Names = append(out.Names, b.local)
			}
		case code[next] == '*':
			from, _ := findFrom(code, next)
			if from < 0 {
				continue
			}
			fields := strings.Fields(code[next+1 : from])
			if len(fields) == 2 && fields[0] == "as" {
				out.Names = append(out.Names, fields[1])
			} else {
				out.Star = true
			}
		}
	}
	out.Names = dedupe(out.Names)
	return out
}

// declaredName returns the name after `function`, `async function`,
// `function*` or `class`.
func declaredName(code string, pos int) string {
	k := pos
	for {
		k = nextNonSpace(code, k)
		if k < 0 {
			return ""
		}
		if code[k] == '*' {
			k++
			continue
		}
		word := wordAt(code, k)
		switch word {
		case "async", "function", "class":
			k += len(word)
			continue
		}
		return word
	}
}

// declarators lists the names bound by a const/let/var declaration starting
// at pos (just after the keyword).
func declarators(code string, pos int) []string {
	var names []string
	k := nextNonSpace(code, pos)
	for k >= 0 && k < len(code) {
		switch {
		case code[k] == '{' || code[k] == '[':
			end := matchBracket(code, k)
			names = append(names, patternNames(code[k+1:end])...)
			k = end + 1
		case isIdentStart(code[k]):
			w := wordAt(code, k)
			names = append(names, w)
			k += len(w)
		default:
			return names
		}
		k = skipInitializer(code, k)
		if k < 0 {
			return names
		}
		k = nextNonSpace(code, k+1)
	}
	return names
}

// patternNames returns the local names bound by a destructuring pattern body.
func patternNames(pattern string) []string {
	var names []string
	for _, part := range splitTopLevel(pattern) {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "..."))
		if colon := topLevelIndex(part, ':'); colon >= 0 {
			part = strings.TrimSpace(part[colon+1:])
		}
		if eq := topLevelIndex(part, '='); eq >= 0 {
			part = strings.TrimSpace(part[:eq])
		}
		switch {
		case part == "":
		case part[0] == '{' || part[0] == '[':
			end := matchBracket(part, 0)
			names = append(names, patternNames(part[1:end])...)
		default:
			if w := wordAt(part, 0); w != "" {
				names = append(names, w)
			}
		}
	}
	return names
}

// skipInitializer advances past `= expr` to the next top-level comma. It
// returns -1 when the declaration ends.
func skipInitializer(code string, k int) int {
	depth := 0
	for ; k < len(code); k++ {
		switch c := code[k]; c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return -1
			}
		case ',':
			if depth == 0 {
				return k
			}
		case ';':
			if depth == 0 {
				return -1
			}
		case '\n':
			if depth == 0 && !continuesLine(code, k) {
				return -1
			}
		}
	}
	return -1
}

// continuesLine reports whether the expression around a newline at k goes on
// to the next line.
func continuesLine(code string, k int) bool {
	prev := prevNonSpace(code, k)
	if prev >= 0 && strings.IndexByte(",=+-*/%&|^!?:(<>", code[prev]) >= 0 {
		return true
	}
	next := nextNonSpace(code, k)
	return next >= 0 && strings.IndexByte(".?:+-*/%&|^=,", code[next]) >= 0
}

func matchBracket(code string, open int) int {
	depth := 0
	for k := open; k < len(code); k++ {
		switch code[k] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return k
			}
		}
	}
	return len(code) - 1
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for k := 0; k < len(s); k++ {
		switch s[k] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:k])
				start = k + 1
			}
		}
	}
	return append(parts, s[start:])
}

func topLevelIndex(s string, c byte) int {
	depth := 0
	for k := 0; k < len(s); k++ {
		switch s[k] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case c:
			if depth == 0 {
				return k
			}
		}
	}
	return -1
}

func scanCommonJSExports(l *Lexed) Exports {
	code := l.Code
	var out Exports
	handled := make(map[int]bool)
	exportsAt := func(start, end int) int {
		return start + strings.LastIndex(code[start:end], "exports")
	}

	for _, m := range cjsMemberAssign.FindAllStringSubmatchIndex(code, -1) {
		// skip comparisons such as exports.x == y
		if m[1] < len(code) && code[m[1]] == '=' {
			continue
		}
		handled[exportsAt(m[0], m[6])] = true
		if name := code[m[6]:m[7]]; name != "__esModule" {
			out.Names = append(out.Names, name)
		}
	}
	for _, m := range cjsIndexAssign.FindAllStringIndex(code, -1) {
		handled[exportsAt(m[0], m[1])] = true
		name, _, ok := l.StringAt(nextNonSpace(code, m[1]))
		if !ok {
			out.Dynamic = true
			continue
		}
		out.Names = append(out.Names, name)
	}
	for _, m := range cjsDefineProp.FindAllStringIndex(code, -1) {
		handled[exportsAt(m[0], m[1])] = true
		name, _, ok := l.StringAt(nextNonSpace(code, m[1]))
		if !ok {
			out.Dynamic = true
			continue
		}
		if name != "__esModule" {
			out.Names = append(out.Names, name)
		}
	}
	for _, m := range cjsWholeAssign.FindAllStringIndex(code, -1) {
		if m[1] < len(code) && code[m[1]] == '=' {
			continue
		}
		handled[exportsAt(m[0], m[1])] = true
		value := nextNonSpace(code, m[1])
		if value < 0 || code[value] != '{' {
			out.Dynamic = true
			continue
		}
		names, ok := objectKeys(l, value)
		if !ok {
			out.Dynamic = true
		}
		out.Names = append(out.Names, names...)
	}

	// Any other use of the exports object (passing it around, reading it)
	// makes the surface unknowable.
	for _, pos := range keywordOffsets(code, "exports") {
		if !handled[pos] {
			out.Dynamic = true
		}
	}
	for _, m := range cjsModuleRef.FindAllStringIndex(code, -1) {
		if !handled[exportsAt(m[0], m[1])] {
			out.Dynamic = true
		}
	}
	out.Names = dedupe(out.Names)
	return out
}

// objectKeys lists the keys of the object literal whose brace is at open.
func objectKeys(l *Lexed, open int) ([]string, bool) {
	code := l.Code
	end := matchBracket(code, open)
	var names []string
	offset := open + 1
	for _, part := range splitTopLevel(code[open+1 : end]) {
		start := offset
		offset += len(part) + 1
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		lead := start + strings.Index(part, trimmed)
		switch c := trimmed[0]; {
		case strings.HasPrefix(trimmed, "..."), c == '[':
			return names, false
		case c == '\'' || c == '"':
			name, _, ok := l.StringAt(lead)
			if !ok {
				return names, false
			}
			names = append(names, name)
		default:
			word := wordAt(trimmed, 0)
			if word == "get" || word == "set" || word == "async" {
				if next := wordAt(strings.TrimSpace(trimmed[len(word):]), 0); next != "" {
					word = next
				}
			}
			if word == "" {
				return names, false
			}
			names = append(names, word)
		}
	}
	return names, true
}

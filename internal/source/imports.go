package source

import (
	"fmt"
	"sort"
	"strings"
)

// ImportKind tells how a module reaches another one.
type ImportKind int

const (
	ImportRequire ImportKind = iota
	ImportStatic
	ImportSideEffect
	ImportReexport
	ImportDynamic
)

var importKindNames = [...]string{
	ImportRequire:    "require",
	ImportStatic:     "import",
	ImportSideEffect: "side-effect",
	ImportReexport:   "re-export",
	ImportDynamic:    "dynamic",
}

func (k ImportKind) String() string {
	if int(k) < len(importKindNames) {
		return importKindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Namespace stands for a target's whole exports object.
const Namespace = "*"

// Import is one literal module reference found in a file.
type Import struct {
	Specifier string
	Kind      ImportKind
	// Offset is where the require call or import statement starts.
	Offset int
	// TopLevel is set when the reference is evaluated while the module loads.
	TopLevel bool
	// Names lists the target's export names this file actually uses. It is
	// empty when the binding is never referenced.
	Names []string
	// Aliases are the names a re-export publishes, parallel to Names.
	Aliases []string
	// Referenced is false only for bindings that are declared but never used.
	Referenced bool
}

type binding struct {
	name  string
	local string
}

func scanImports(l *Lexed, format Format) ([]Import, []string) {
	imports, problems := scanRequires(l, format == FormatUMD)
	dynamic, more := scanDynamicImports(l)
	imports = append(imports, dynamic...)
	problems = append(problems, more...)
	if format == FormatESM {
		imports = append(imports, scanImportStatements(l)...)
		imports = append(imports, scanReexports(l)...)
	}
	sort.SliceStable(imports, func(a, b int) bool { return imports[a].Offset < imports[b].Offset })
	return imports, problems
}

func scanRequires(l *Lexed, umd bool) ([]Import, []string) {
	code := l.Code
	var imports []Import
	var problems []string
	for _, pos := range keywordOffsets(code, "require") {
		open := nextNonSpace(code, pos+len("require"))
		if open < 0 || code[open] != '(' {
			continue
		}
		if w, _ := wordBefore(code, pos); w == "function" {
			continue
		}
		arg := nextNonSpace(code, open+1)
		if arg < 0 || code[arg] == ')' {
			continue
		}
		spec, end, ok := l.StringAt(arg)
		closing := nextNonSpace(code, end)
		if !ok || closing < 0 || code[closing] != ')' {
			problems = append(problems, fmt.Sprintf("non-literal require at line %d is left unresolved", lineOf(l.Text, pos)))
			continue
		}
		names, referenced := requireBinding(l, pos, closing+1)
		imports = append(imports, Import{
			Specifier:  spec,
			Kind:       ImportRequire,
			Offset:     pos,
			TopLevel:   umd || !l.Lazy(pos),
			Names:      names,
			Referenced: referenced,
		})
	}
	return imports, problems
}

func scanDynamicImports(l *Lexed) ([]Import, []string) {
	code := l.Code
	var imports []Import
	var problems []string
	for _, pos := range keywordOffsets(code, "import") {
		open := nextNonSpace(code, pos+len("import"))
		if open < 0 || code[open] != '(' {
			continue
		}
		arg := nextNonSpace(code, open+1)
		spec, _, ok := l.StringAt(arg)
		if !ok {
			problems = append(problems, fmt.Sprintf("non-literal import() at line %d is left unresolved", lineOf(l.Text, pos)))
			continue
		}
		imports = append(imports, Import{
			Specifier:  spec,
			Kind:       ImportDynamic,
			Offset:     pos,
			TopLevel:   !l.Lazy(pos),
			Names:      []string{Namespace},
			Referenced: true,
		})
	}
	return imports, problems
}

func scanImportStatements(l *Lexed) []Import {
	code := l.Code
	var imports []Import
	for _, pos := range keywordOffsets(code, "import") {
		if l.Depth(pos) != 0 {
			continue
		}
		next := nextNonSpace(code, pos+len("import"))
		if next < 0 {
			continue
		}
		switch c := code[next]; {
		case c == '(' || c == '.':
			continue
		case c == '\'' || c == '"':
			spec, _, ok := l.StringAt(next)
			if !ok {
				continue
			}
			imports = append(imports, Import{
				Specifier:  spec,
				Kind:       ImportSideEffect,
				Offset:     pos,
				TopLevel:   true,
				Names:      []string{Namespace},
				Referenced: true,
			})
		default:
			from, specPos := findFrom(code, next)
			if from < 0 {
				continue
			}
			spec, end, ok := l.StringAt(specPos)
			if !ok {
				continue
			}
			var names []string
			for _, b := range parseImportClause(code[next:from]) {
				if b.name == Namespace {
					ns, _ := namespaceUse(l, b.local, pos, end)
					names = append(names, ns...)
					continue
				}
				if len(occurrences(code, b.local, pos, end)) > 0 {
					names = append(names, b.name)
				}
			}
			names = dedupe(names)
			imports = append(imports, Import{
				Specifier:  spec,
				Kind:       ImportStatic,
				Offset:     pos,
				TopLevel:   true,
				Names:      names,
				Referenced: len(names) > 0,
			})
		}
	}
	return imports
}

func scanReexports(l *Lexed) []Import {
	code := l.Code
	var imports []Import
	for _, pos := range keywordOffsets(code, "export") {
		if l.Depth(pos) != 0 {
			continue
		}
		next := nextNonSpace(code, pos+len("export"))
		if next < 0 {
			continue
		}
		imp := Import{Kind: ImportReexport, Offset: pos, TopLevel: true, Referenced: true}
		var specPos int
		switch code[next] {
		case '*':
			from, sp := findFrom(code, next)
			if from < 0 {
				continue
			}
			alias := Namespace
			if fields := strings.Fields(code[next+1 : from]); len(fields) == 2 && fields[0] == "as" {
				alias = fields[1]
			}
			imp.Names, imp.Aliases = []string{Namespace}, []string{alias}
			specPos = sp
		case '{':
			end := strings.IndexByte(code[next:], '}')
			if end < 0 {
				continue
			}
			after := nextNonSpace(code, next+end+1)
			if after < 0 || wordAt(code, after) != "from" {
				continue
			}
			for _, b := range parseSpecifierList(code[next+1 : next+end]) {
				imp.Names = append(imp.Names, b.name)
				imp.Aliases = append(imp.Aliases, b.local)
			}
			specPos = nextNonSpace(code, after+len("from"))
		default:
			continue
		}
		spec, _, ok := l.StringAt(specPos)
		if !ok {
			continue
		}
		imp.Specifier = spec
		imports = append(imports, imp)
	}
	return imports
}

// requireBinding works out which export names of the required module the
// surrounding code uses. start and end delimit the require call.
func requireBinding(l *Lexed, start, end int) ([]string, bool) {
	code := l.Code
	whole := []string{Namespace}

	// require('x').name
	if dot := nextNonSpace(code, end); dot >= 0 && code[dot] == '.' {
		if name := wordAt(code, nextNonSpace(code, dot+1)); name != "" {
			return []string{name}, true
		}
	}

	eq := prevNonSpace(code, start)
	if eq <= 0 || code[eq] != '=' || strings.IndexByte("=!<>+-*/%&|^?", code[eq-1]) >= 0 {
		return whole, true
	}
	target := prevNonSpace(code, eq)
	if target < 0 {
		return whole, true
	}
	switch {
	case code[target] == '}':
		open := strings.LastIndexByte(code[:target], '{')
		if open < 0 {
			return whole, true
		}
		bindings, ok := parsePattern(code[open+1 : target])
		if !ok {
			return whole, true
		}
		var names []string
		for _, b := range bindings {
			if len(occurrences(code, b.local, open, end)) > 0 {
				names = append(names, b.name)
			}
		}
		names = dedupe(names)
		return names, len(names) > 0
	case isIdentPart(code[target]):
		local, lstart := wordBefore(code, eq)
		if p := prevNonSpace(code, lstart); p >= 0 && code[p] == '.' {
			return whole, true
		}
		return namespaceUse(l, local, lstart, end)
	}
	return whole, true
}

// namespaceUse reports the member names read through local, a binding to a
// whole module. Any use other than a member access means the whole namespace.
func namespaceUse(l *Lexed, local string, declStart, declEnd int) ([]string, bool) {
	code := l.Code
	occ := occurrences(code, local, declStart, declEnd)
	if len(occ) == 0 {
		return nil, false
	}
	var names []string
	for _, o := range occ {
		after := nextNonSpace(code, o+len(local))
		if after >= 0 && code[after] == '.' {
			if name := wordAt(code, nextNonSpace(code, after+1)); name != "" {
				names = append(names, name)
				continue
			}
		}
		return []string{Namespace}, true
	}
	return dedupe(names), true
}

// occurrences returns uses of name outside [skipFrom, skipTo).
func occurrences(code, name string, skipFrom, skipTo int) []int {
	if name == "" {
		return nil
	}
	var out []int
	for _, pos := range keywordOffsets(code, name) {
		if pos >= skipFrom && pos < skipTo {
			continue
		}
		out = append(out, pos)
	}
	return out
}

// findFrom locates the from keyword that ends an import or export clause and
// the quote of the specifier after it.
func findFrom(code string, start int) (int, int) {
	k := start
	for k < len(code) {
		idx := strings.Index(code[k:], "from")
		if idx < 0 {
			return -1, -1
		}
		p := k + idx
		if strings.IndexByte(code[start:p], ';') >= 0 {
			return -1, -1
		}
		k = p + len("from")
		if (p > 0 && isIdentPart(code[p-1])) || (k < len(code) && isIdentPart(code[k])) {
			continue
		}
		q := nextNonSpace(code, k)
		if q >= 0 && (code[q] == '\'' || code[q] == '"') {
			return p, q
		}
	}
	return -1, -1
}

// parseImportClause handles `def`, `def, {a, b as c}`, `* as ns` and `{...}`.
func parseImportClause(clause string) []binding {
	clause = strings.TrimSpace(clause)
	clause = strings.TrimSpace(strings.TrimPrefix(clause, "type "))
	var out []binding
	if clause != "" && clause[0] != '{' && clause[0] != '*' {
		def := wordAt(clause, 0)
		if def == "" {
			return out
		}
		out = append(out, binding{name: "default", local: def})
		clause = strings.TrimSpace(clause[len(def):])
		clause = strings.TrimSpace(strings.TrimPrefix(clause, ","))
	}
	switch {
	case strings.HasPrefix(clause, "*"):
		rest := strings.TrimSpace(clause[1:])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "as"))
		if local := wordAt(rest, 0); local != "" {
			out = append(out, binding{name: Namespace, local: local})
		}
	case strings.HasPrefix(clause, "{"):
		end := strings.IndexByte(clause, '}')
		if end < 0 {
			end = len(clause)
		}
		out = append(out, parseSpecifierList(clause[1:end])...)
	}
	return out
}

// parseSpecifierList parses `a, b as c, default as d`.
func parseSpecifierList(list string) []binding {
	var out []binding
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(part)
		if len(fields) > 0 && fields[0] == "type" && len(fields) != 3 {
			fields = fields[1:]
		}
		switch len(fields) {
		case 1:
			out = append(out, binding{name: fields[0], local: fields[0]})
		case 3:
			if fields[1] == "as" {
				out = append(out, binding{name: fields[0], local: fields[2]})
			}
		}
	}
	return out
}

// parsePattern parses an object destructuring pattern such as
// `a, b: c, d = 1`. Nested patterns and rest elements are not tracked.
func parsePattern(pattern string) ([]binding, bool) {
	var out []binding
	for _, part := range strings.Split(pattern, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "...") || strings.ContainsAny(part, "{[") {
			return nil, false
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			part = strings.TrimSpace(part[:eq])
		}
		name, local := part, part
		if colon := strings.IndexByte(part, ':'); colon >= 0 {
			name = strings.TrimSpace(part[:colon])
			local = strings.TrimSpace(part[colon+1:])
		}
		if wordAt(name, 0) != name || wordAt(local, 0) != local {
			return nil, false
		}
		out = append(out, binding{name: name, local: local})
	}
	return out, true
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func lineOf(text string, pos int) int {
	if pos > len(text) {
		pos = len(text)
	}
	return strings.Count(text[:pos], "\n") + 1
}

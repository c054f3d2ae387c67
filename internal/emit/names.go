package emit

import (
	"strings"
	"unicode"
)

// SanitizeGlobalName turns a package name into a PascalCase identifier:
// "my-package" becomes MyPackage, "@types/node" TypesNode and "123invalid"
// _123Invalid.
func SanitizeGlobalName(name string) string {
	var b strings.Builder
	for _, word := range words(name) {
		r := []rune(word)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	out := b.String()
	if out == "" {
		return "Bundle"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		out = "_" + out
	}
	return out
}

// words splits on every non-alphanumeric rune and after a run of digits.
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			if len(cur) > 0 && unicode.IsDigit(cur[len(cur)-1]) {
				flush()
			}
			cur = append(cur, r)
		case unicode.IsDigit(r):
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return out
}

// FileName expands a naming pattern. {name} is the package name with the
// scope flattened ("@acme/ui" becomes "acme-ui") and {version} the version.
func FileName(pattern, name, version string) string {
	flat := strings.ReplaceAll(strings.TrimPrefix(name, "@"), "/", "-")
	if pattern == "" {
		pattern = DefaultPattern
	}
	r := strings.NewReplacer("{name}", flat, "{version}", version)
	return r.Replace(pattern)
}

// DefaultPattern is the output naming pattern used when none is configured.
const DefaultPattern = "{name}.bundle.js"

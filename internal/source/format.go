package source

import (
	"fmt"
	"regexp"
	"strings"
)

// Format is the module system a file is written in.
type Format int

const (
	FormatUnknown Format = iota
	FormatCommonJS
	FormatESM
	FormatUMD
	// FormatJSON is a .json data file required as a module.
	FormatJSON
)

var formatNames = [...]string{
	FormatUnknown:  "unknown",
	FormatCommonJS: "commonjs",
	FormatESM:      "esm",
	FormatUMD:      "umd",
	FormatJSON:     "json",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

var (
	umdDefinePattern   = regexp.MustCompile(`typeof\s+define\b`)
	umdAMDPattern      = regexp.MustCompile(`\bdefine\.amd\b`)
	umdCommonJSPattern = regexp.MustCompile(`typeof\s+(module|exports)\b`)

	cjsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(^|[^.\w$])require\s*\(`),
		regexp.MustCompile(`(^|[^.\w$])module\s*\.\s*exports\b`),
		regexp.MustCompile(`(^|[^.\w$])exports\s*(\.\s*[\w$]|\[)`),
		regexp.MustCompile(`Object\.defineProperty\(\s*(module\.)?exports\b`),
	}
)

// Detect classifies text. Rules are tried in order and the first match wins:
// a UMD factory wrapper, then top-level import/export syntax, then CommonJS
// require/exports usage. A UMD wrapper always contains CommonJS-looking code,
// so it has to be recognized first.
func Detect(text string) Format {
	return detect(Lex(text))
}

func detect(l *Lexed) Format {
	switch {
	case isUMD(l.Code):
		return FormatUMD
	case hasModuleSyntax(l):
		return FormatESM
	case hasCommonJS(l.Code):
		return FormatCommonJS
	default:
		return FormatUnknown
	}
}

// isUMD requires the AMD test and a CommonJS environment test. The global
// assignment fallback is common but not required.
func isUMD(code string) bool {
	return umdDefinePattern.MatchString(code) &&
		umdAMDPattern.MatchString(code) &&
		umdCommonJSPattern.MatchString(code)
}

// hasModuleSyntax looks for import or export declarations at the top level.
// import() calls and import.meta do not count.
func hasModuleSyntax(l *Lexed) bool {
	for _, pos := range keywordOffsets(l.Code, "import") {
		if l.Depth(pos) != 0 {
			continue
		}
		next := nextNonSpace(l.Code, pos+len("import"))
		if next < 0 {
			continue
		}
		c := l.Code[next]
		if c == '{' || c == '*' || c == '\'' || c == '"' || isIdentStart(c) {
			return true
		}
	}
	for _, pos := range keywordOffsets(l.Code, "export") {
		if l.Depth(pos) != 0 {
			continue
		}
		next := nextNonSpace(l.Code, pos+len("export"))
		if next < 0 {
			continue
		}
		c := l.Code[next]
		if c == '{' || c == '*' || isIdentStart(c) {
			return true
		}
	}
	return false
}

func hasCommonJS(code string) bool {
	for _, re := range cjsPatterns {
		if re.MatchString(code) {
			return true
		}
	}
	return false
}

// FormatForPath returns FormatJSON for .json files and FormatUnknown otherwise,
// meaning the text has to be inspected.
func FormatForPath(path string) Format {
	if strings.HasSuffix(path, ".json") {
		return FormatJSON
	}
	return FormatUnknown
}

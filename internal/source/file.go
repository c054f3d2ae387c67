package source

import (
	"sort"

	"github.com/fluxbase-eu/pakto/internal/nodeapi"
)

// File is one source file of a package after detection. It is not modified
// once Parse returns.
type File struct {
	Path     string
	Text     string
	Format   Format
	Imports  []Import
	Exports  Exports
	APIs     []nodeapi.Usage
	Features []Feature
	// Problems are per-file findings that do not stop processing.
	Problems []string
}

// Parse runs format detection, import and export extraction and the Node API
// scan over one file.
func Parse(path, text string) *File {
	f := &File{Path: path, Text: text}
	if FormatForPath(path) == FormatJSON {
		f.Format = FormatJSON
		f.Exports = Exports{Dynamic: true}
		return f
	}

	l := Lex(text)
	f.Format = detect(l)
	if l.Unterminated {
		f.Problems = append(f.Problems, "unterminated comment or literal")
	}

	var problems []string
	f.Imports, problems = scanImports(l, f.Format)
	f.Problems = append(f.Problems, problems...)
	f.Exports = scanExports(l, f.Format)
	f.Features = scanFeatures(l)

	refs := make([]nodeapi.Ref, 0, len(f.Imports))
	for _, imp := range f.Imports {
		refs = append(refs, nodeapi.Ref{Specifier: imp.Specifier, TopLevel: imp.TopLevel, Offset: imp.Offset})
	}
	lazy := l.Lazy
	if f.Format == FormatUMD {
		lazy = nil
	}
	f.APIs = nodeapi.Scan(l.Code, refs, lazy)
	return f
}

// Size is the file's length in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Text))
}

// Builtins returns the sorted names of the Node built-ins the file uses.
func (f *File) Builtins() []string {
	return nodeapi.Names(f.APIs)
}

// Usage returns the usage record for a built-in, if any.
func (f *File) Usage(name string) (nodeapi.Usage, bool) {
	i := sort.Search(len(f.APIs), func(i int) bool { return f.APIs[i].Name >= name })
	if i < len(f.APIs) && f.APIs[i].Name == name {
		return f.APIs[i], true
	}
	return nodeapi.Usage{}, false
}

// HasDefaultExport reports whether an ES module declares a default export.
func (f *File) HasDefaultExport() bool {
	return f.Format == FormatESM && f.Exports.Has("default")
}

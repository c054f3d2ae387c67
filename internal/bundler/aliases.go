package bundler

import "sort"

// AliasTable maps package specifiers to the browser globals that provide
// them.
type AliasTable map[string]string

var defaultAliases = AliasTable{
	"lodash":    "_",
	"jquery":    "jQuery",
	"react":     "React",
	"react-dom": "ReactDOM",
	"vue":       "Vue",
	"moment":    "moment",
	"axios":     "axios",
	"dayjs":     "dayjs",
}

// DefaultAliases returns a copy of the built-in table.
func DefaultAliases() AliasTable {
	return defaultAliases.Merge(nil)
}

// Merge returns a new table with extra layered over t.
func (t AliasTable) Merge(extra map[string]string) AliasTable {
	out := make(AliasTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Lookup returns the global for an exact specifier.
func (t AliasTable) Lookup(spec string) (string, bool) {
	alias, ok := t[spec]
	return alias, ok && alias != ""
}

// Names returns the specifiers in the table, sorted.
func (t AliasTable) Names() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

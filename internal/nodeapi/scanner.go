package nodeapi

import (
	"regexp"
	"sort"
)

// Ref is a module specifier referenced by a file.
type Ref struct {
	Specifier string
	TopLevel  bool
	Offset    int
}

// Usage is one built-in a file depends on. Global is set when it was found
// through a free variable (process, Buffer) rather than a specifier.
type Usage struct {
	Name      string `json:"name" yaml:"name"`
	Specifier string `json:"specifier,omitempty" yaml:"specifier,omitempty"`
	TopLevel  bool   `json:"top_level" yaml:"top_level"`
	Global    bool   `json:"global,omitempty" yaml:"global,omitempty"`
}

var globalPattern = regexp.MustCompile(`(^|[^.\w$])(process|Buffer)\s*\.`)

var globalModules = map[string]string{
	"process": "process",
	"Buffer":  "buffer",
}

// Scan returns the built-ins referenced by refs, plus free uses of the process
// and Buffer globals in code (a masked copy of the file). lazy reports whether
// an offset only runs after load; it may be nil. One usage is reported per
// built-in; a top-level reference wins over a lazy one.
func Scan(code string, refs []Ref, lazy func(int) bool) []Usage {
	found := make(map[string]Usage)
	add := func(u Usage) {
		prev, ok := found[u.Name]
		if !ok || (u.TopLevel && !prev.TopLevel) {
			found[u.Name] = u
		}
	}

	for _, ref := range refs {
		name, ok := Normalize(ref.Specifier)
		if !ok {
			continue
		}
		add(Usage{Name: name, Specifier: ref.Specifier, TopLevel: ref.TopLevel})
	}

	for _, m := range globalPattern.FindAllStringSubmatchIndex(code, -1) {
		ident := code[m[4]:m[5]]
		topLevel := true
		if lazy != nil {
			topLevel = !lazy(m[4])
		}
		add(Usage{Name: globalModules[ident], TopLevel: topLevel, Global: true})
	}

	out := make([]Usage, 0, len(found))
	for _, u := range found {
		out = append(out, u)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Names returns the sorted built-in names of usages.
func Names(usages []Usage) []string {
	out := make([]string, 0, len(usages))
	for _, u := range usages {
		out = append(out, u.Name)
	}
	sort.Strings(out)
	return out
}

// Package manifest models the parts of package.json pakto reads.
package manifest

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
)

// FileName is the manifest file looked up in every package directory.
const FileName = "package.json"

// ErrNoName is returned for a root manifest without a name.
var ErrNoName = errors.New("package.json has no name")

// Manifest is a parsed package.json.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	License     string `json:"license,omitempty"`
	Type        string `json:"type,omitempty"`
	Main        string `json:"main,omitempty"`
	Module      string `json:"module,omitempty"`
	// Browser is either a replacement entry point (string form) or a
	// file-substitution map. Only the string form is used.
	Browser json.RawMessage `json:"browser,omitempty"`

	Dependencies         map[string]string `json:"dependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`

	Dist *Dist `json:"dist,omitempty"`
}

// Dist is the registry's distribution record for one version.
type Dist struct {
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity,omitempty"`
	Shasum    string `json:"shasum,omitempty"`
}

// Parse decodes a package.json document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &m, nil
}

// Read loads dir/package.json from fs.
func Read(fs afero.Fs, dir string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// BrowserEntry returns the browser field when it names a replacement entry
// point, and "" otherwise.
func (m *Manifest) BrowserEntry() string {
	if len(m.Browser) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Browser, &s); err != nil {
		return ""
	}
	return s
}

// Entry returns the entry point a browser build should load, in the order
// browser, module, main, falling back to index.js.
func (m *Manifest) Entry() string {
	for _, e := range []string{m.BrowserEntry(), m.Module, m.Main} {
		if e != "" {
			return e
		}
	}
	return "index.js"
}

// Externals lists the packages the manifest expects the host to provide:
// peer and optional dependencies. The result is sorted.
func (m *Manifest) Externals() []string {
	seen := make(map[string]bool)
	for name := range m.PeerDependencies {
		seen[name] = true
	}
	for name := range m.OptionalDependencies {
		seen[name] = true
	}
	return sortedKeys(seen)
}

// DependencyNames returns the sorted names of the runtime dependencies.
func (m *Manifest) DependencyNames() []string {
	seen := make(map[string]bool, len(m.Dependencies))
	for name := range m.Dependencies {
		seen[name] = true
	}
	return sortedKeys(seen)
}

// Validate checks the fields a root package must carry.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrNoName
	}
	return nil
}

// PackageName returns the package part of a bare specifier: "lodash" for
// "lodash/fp/map" and "@babel/core" for "@babel/core/lib/index.js".
func PackageName(specifier string) string {
	parts := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// IsBare reports whether specifier names a package rather than a path.
func IsBare(specifier string) bool {
	return specifier != "" &&
		!strings.HasPrefix(specifier, "./") &&
		!strings.HasPrefix(specifier, "../") &&
		!strings.HasPrefix(specifier, "/") &&
		specifier != "." && specifier != ".."
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

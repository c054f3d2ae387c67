// Package polyfills provides the browser replacements for Node built-ins and
// decides which of them a bundle installs.
package polyfills

import (
	"embed"
	"fmt"
	"sort"
)

//go:embed assets/*.js
var assetFS embed.FS

// Asset is one embedded polyfill. Its source declares Identifier as a
// top-level var; requiring any built-in in Satisfies yields that value.
type Asset struct {
	Name       string
	Identifier string
	Satisfies  []string
	// Global is the free variable the asset stands in for (Buffer, process),
	// and GlobalExpr the expression that provides it.
	Global     string
	GlobalExpr string
	Source     string
}

var builtinAssets = []Asset{
	{Name: "buffer", Identifier: "BufferPolyfill", Satisfies: []string{"buffer"}, Global: "Buffer", GlobalExpr: "BufferPolyfill.Buffer"},
	{Name: "crypto", Identifier: "cryptoPolyfill", Satisfies: []string{"crypto"}},
	{Name: "events", Identifier: "EventEmitterPolyfill", Satisfies: []string{"events"}},
	{Name: "path", Identifier: "pathPolyfill", Satisfies: []string{"path"}},
	{Name: "process", Identifier: "processPolyfill", Satisfies: []string{"process"}, Global: "process", GlobalExpr: "processPolyfill"},
	{Name: "util", Identifier: "utilPolyfill", Satisfies: []string{"util"}},
}

// Catalog resolves built-in names to assets.
type Catalog struct {
	assets map[string]*Asset
	byAPI  map[string]*Asset
}

// NewCatalog loads the embedded assets. mappings routes further built-ins to
// an existing asset, e.g. string_decoder = "buffer".
func NewCatalog(mappings map[string]string) (*Catalog, error) {
	c := &Catalog{
		assets: make(map[string]*Asset, len(builtinAssets)),
		byAPI:  make(map[string]*Asset),
	}
	for _, a := range builtinAssets {
		src, err := assetFS.ReadFile("assets/" + a.Name + ".js")
		if err != nil {
			return nil, fmt.Errorf("failed to load polyfill %s: %w", a.Name, err)
		}
		asset := a
		asset.Source = string(src)
		c.assets[asset.Name] = &asset
		for _, api := range asset.Satisfies {
			c.byAPI[api] = &asset
		}
	}
	for api, name := range mappings {
		asset, ok := c.assets[name]
		if !ok {
			return nil, fmt.Errorf("%w: mapping %s = %q", ErrUnknownPolyfill, api, name)
		}
		c.byAPI[api] = asset
	}
	return c, nil
}

// Lookup returns the asset providing a built-in.
func (c *Catalog) Lookup(api string) (*Asset, bool) {
	a, ok := c.byAPI[api]
	return a, ok
}

// Has reports whether a built-in can be polyfilled.
func (c *Catalog) Has(api string) bool {
	_, ok := c.byAPI[api]
	return ok
}

// Asset returns an asset by its own name.
func (c *Catalog) Asset(name string) (*Asset, bool) {
	a, ok := c.assets[name]
	return a, ok
}

// APIs returns every built-in the catalog covers, sorted.
func (c *Catalog) APIs() []string {
	out := make([]string, 0, len(c.byAPI))
	for api := range c.byAPI {
		out = append(out, api)
	}
	sort.Strings(out)
	return out
}

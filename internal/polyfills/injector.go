package polyfills

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// Origin records why a binding was installed.
type Origin int

const (
	OriginInferred Origin = iota
	OriginDefault
	OriginExplicit
)

func (o Origin) String() string {
	switch o {
	case OriginDefault:
		return "default"
	case OriginExplicit:
		return "explicit"
	default:
		return "inferred"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Binding is one installed polyfill. Identifier is what rewritten code uses
// in place of the built-ins in Satisfies.
type Binding struct {
	Name       string   `json:"name" yaml:"name"`
	Satisfies  []string `json:"satisfies" yaml:"satisfies"`
	Identifier string   `json:"identifier" yaml:"identifier"`
	Origin     Origin   `json:"origin" yaml:"origin"`
	Asset      *Asset   `json:"-" yaml:"-"`
}

// Request is the input of Inject.
type Request struct {
	// Used are the built-ins referenced by the modules that survive planning.
	Used []string
	// Defaults and Explicit are installed even when unused; Explicit wins.
	Defaults []string
	Explicit []string
	Excludes []string
	// Fatal maps built-ins with a Fatal issue in a surviving module to the
	// modules referencing them.
	Fatal map[string][]string
}

// Injector turns required built-ins into bindings.
type Injector struct {
	catalog *Catalog
}

// NewInjector creates an injector over a catalog.
func NewInjector(catalog *Catalog) *Injector {
	return &Injector{catalog: catalog}
}

// Inject returns one binding per asset, ordered by asset name. A required
// built-in without an asset is dropped unless it is Fatal, in which case an
// *UnsupportedAPIError is returned.
func (i *Injector) Inject(req Request) ([]Binding, error) {
	origins := make(map[string]Origin)
	excluded := make(map[string]bool, len(req.Excludes))
	for _, name := range req.Excludes {
		excluded[name] = true
	}
	for _, name := range req.Used {
		if !excluded[name] {
			origins[name] = OriginInferred
		}
	}
	for _, name := range req.Defaults {
		origins[name] = OriginDefault
	}
	for _, name := range req.Explicit {
		if !i.catalog.Has(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPolyfill, name)
		}
		origins[name] = OriginExplicit
	}

	names := make([]string, 0, len(origins))
	for name := range origins {
		names = append(names, name)
	}
	sort.Strings(names)

	byAsset := make(map[string]*Binding)
	for _, name := range names {
		asset, ok := i.catalog.Lookup(name)
		if !ok {
			if modules, fatal := req.Fatal[name]; fatal {
				return nil, &UnsupportedAPIError{API: name, Modules: modules}
			}
			log.Debug().Str("api", name).Msg("No polyfill available, leaving the built-in unbound")
			continue
		}
		b, ok := byAsset[asset.Name]
		if !ok {
			b = &Binding{Name: asset.Name, Identifier: asset.Identifier, Origin: origins[name], Asset: asset}
			byAsset[asset.Name] = b
		}
		b.Satisfies = append(b.Satisfies, name)
		if origins[name] > b.Origin {
			b.Origin = origins[name]
		}
	}

	for _, name := range sortedFatal(req.Fatal) {
		if _, ok := origins[name]; !ok && !i.catalog.Has(name) {
			return nil, &UnsupportedAPIError{API: name, Modules: req.Fatal[name]}
		}
	}

	out := make([]Binding, 0, len(byAsset))
	for _, b := range byAsset {
		out = append(out, *b)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func sortedFatal(fatal map[string][]string) []string {
	out := make([]string, 0, len(fatal))
	for name := range fatal {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

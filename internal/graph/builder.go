package graph

import (
	"fmt"
	"path"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/fluxbase-eu/pakto/internal/manifest"
	"github.com/fluxbase-eu/pakto/internal/nodeapi"
	"github.com/fluxbase-eu/pakto/internal/source"
)

// Options controls which packages stay outside the graph.
type Options struct {
	// Externals are packages that may be missing from the tree; an
	// unresolvable import of one becomes an external node.
	Externals Matcher
	// Exclude are packages that become external nodes without resolution.
	Exclude Matcher
	// ForceInline overrides Exclude.
	ForceInline Matcher
}

// Builder walks a package tree depth-first from its entry point.
type Builder struct {
	fs       afero.Fs
	resolver Resolver
	opts     Options
}

// NewBuilder creates a builder reading sources from fs.
func NewBuilder(fs afero.Fs, resolver Resolver, opts Options) *Builder {
	return &Builder{fs: fs, resolver: resolver, opts: opts}
}

type walk struct {
	*Builder
	g       *Graph
	onStack map[string]int
	stack   []string
	specs   map[string][]string
}

// Build parses every module reachable from root. Cycles are recorded, never
// fatal.
func (b *Builder) Build(root string) (*Graph, error) {
	w := &walk{
		Builder: b,
		g: &Graph{
			Root:  root,
			Nodes: make(map[string]*Node),
			Edges: make(map[string][]Edge),
		},
		onStack: make(map[string]int),
		specs:   make(map[string][]string),
	}
	if err := w.visit(root); err != nil {
		return nil, err
	}
	for id, specs := range w.specs {
		sort.Strings(specs)
		w.g.Nodes[id].Specifiers = specs
	}
	log.Debug().
		Str("root", root).
		Int("nodes", len(w.g.Nodes)).
		Int("cycles", len(w.g.Cycles)).
		Msg("Module graph built")
	return w.g, nil
}

func (w *walk) visit(id string) error {
	text, err := afero.ReadFile(w.fs, id)
	if err != nil {
		if id == w.g.Root {
			return fmt.Errorf("%w: %s", ErrRootNotFound, id)
		}
		return fmt.Errorf("failed to read %s: %w", id, err)
	}
	file := source.Parse(id, string(text))
	w.g.Nodes[id] = &Node{ID: id, Kind: NodeFile, File: file, Package: PackageOf(id)}
	w.g.VisitOrder = append(w.g.VisitOrder, id)

	w.onStack[id] = len(w.stack)
	w.stack = append(w.stack, id)
	defer func() {
		w.stack = w.stack[:len(w.stack)-1]
		delete(w.onStack, id)
	}()

	for _, imp := range file.Imports {
		if nodeapi.IsBuiltin(imp.Specifier) {
			continue
		}
		to, err := w.target(id, imp.Specifier)
		if err != nil {
			return err
		}
		w.g.Edges[id] = append(w.g.Edges[id], Edge{From: id, To: to, Import: imp})

		if at, ok := w.onStack[to]; ok {
			members := append([]string(nil), w.stack[at:]...)
			w.g.Cycles = append(w.g.Cycles, CycleEdge{From: id, To: to, Members: members})
			continue
		}
		if _, seen := w.g.Nodes[to]; !seen {
			if err := w.visit(to); err != nil {
				return err
			}
		}
	}
	return nil
}

// target resolves one specifier to a node id, creating external nodes as
// needed.
func (w *walk) target(importer, spec string) (string, error) {
	bare := manifest.IsBare(spec)
	pkg := manifest.PackageName(spec)
	if bare && w.opts.Exclude.Match(pkg) && !w.opts.ForceInline.Match(pkg) {
		return w.external(pkg, "excluded"), nil
	}

	t, err := w.resolver.Resolve(spec, path.Dir(importer))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q from %s: %w", spec, importer, err)
	}
	switch t.Kind {
	case TargetFile:
		if bare {
			w.addSpecifier(t.Path, spec)
		}
		return t.Path, nil
	case TargetExternal:
		return w.external(spec, "not a local module"), nil
	}
	if bare && w.opts.Externals.Match(pkg) {
		return w.external(pkg, "declared external"), nil
	}
	return "", &UnresolvedImportError{Specifier: spec, Importer: importer}
}

func (w *walk) external(name, reason string) string {
	id := ExternalPrefix + name
	if _, ok := w.g.Nodes[id]; !ok {
		w.g.Nodes[id] = &Node{ID: id, Kind: NodeExternal, Package: name, Specifiers: []string{name}, Reason: reason}
		w.g.VisitOrder = append(w.g.VisitOrder, id)
	}
	return id
}

func (w *walk) addSpecifier(id, spec string) {
	for _, s := range w.specs[id] {
		if s == spec {
			return
		}
	}
	w.specs[id] = append(w.specs[id], spec)
}

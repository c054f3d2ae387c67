// Package converter runs the conversion pipeline over one package tree.
package converter

import (
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/fluxbase-eu/pakto/internal/analyzer"
	"github.com/fluxbase-eu/pakto/internal/bundler"
	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/manifest"
	"github.com/fluxbase-eu/pakto/internal/polyfills"
	"github.com/fluxbase-eu/pakto/internal/report"
	"github.com/fluxbase-eu/pakto/internal/source"
	"github.com/fluxbase-eu/pakto/internal/transform"
)

// Package is a materialized package tree. Dependencies live under
// Root/node_modules.
type Package struct {
	Manifest *manifest.Manifest
	FS       afero.Fs
	Root     string
}

// Load reads the manifest of the package at dir.
func Load(fs afero.Fs, dir string) (*Package, error) {
	m, err := manifest.Read(fs, dir)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path.Join(dir, manifest.FileName), err)
	}
	return &Package{Manifest: m, FS: fs, Root: dir}, nil
}

// Options configures a conversion.
type Options struct {
	// Name is the global the bundle is published under.
	Name      string
	Namespace string
	Target    source.Target

	Strategy    bundler.Strategy
	MaxSize     int64
	Exclude     []string
	ForceInline []string
	// Globals extend the built-in alias table.
	Globals map[string]string

	// DefaultIncludes are always installed; Include come from the command
	// line and must name a known polyfill.
	DefaultIncludes  []string
	Include          []string
	Excludes         []string
	PolyfillMappings map[string]string
}

// Converter holds the state shared by runs with the same options.
type Converter struct {
	opts    Options
	catalog *polyfills.Catalog
	aliases bundler.AliasTable
}

// New creates a converter and loads the polyfill catalog.
func New(opts Options) (*Converter, error) {
	catalog, err := polyfills.NewCatalog(opts.PolyfillMappings)
	if err != nil {
		return nil, err
	}
	return &Converter{
		opts:    opts,
		catalog: catalog,
		aliases: bundler.DefaultAliases().Merge(opts.Globals),
	}, nil
}

// Analysis is the graph of a package and its compatibility report.
type Analysis struct {
	Graph  *graph.Graph
	Report *report.Report
}

// Stats summarize a conversion.
type Stats struct {
	SizeBefore   int64 `json:"size_before" yaml:"size_before"`
	SizeAfter    int64 `json:"size_after" yaml:"size_after"`
	OutputBytes  int   `json:"output_bytes" yaml:"output_bytes"`
	Nodes        int   `json:"nodes" yaml:"nodes"`
	Inline       int   `json:"inline" yaml:"inline"`
	Externalized int   `json:"externalized" yaml:"externalized"`
	Excluded     int   `json:"excluded" yaml:"excluded"`
	Stubs        int   `json:"stubs" yaml:"stubs"`
}

// Result is the outcome of Convert.
type Result struct {
	ID        uuid.UUID           `json:"id" yaml:"id"`
	Package   string              `json:"package" yaml:"package"`
	Version   string              `json:"version" yaml:"version"`
	Output    string              `json:"-" yaml:"-"`
	Report    *report.Report      `json:"report" yaml:"report"`
	Plan      *bundler.Plan       `json:"-" yaml:"-"`
	Graph     *graph.Graph        `json:"-" yaml:"-"`
	Polyfills []polyfills.Binding `json:"polyfills" yaml:"polyfills"`
	Stats     Stats               `json:"stats" yaml:"stats"`
}

// Analyze builds the graph and report. It never runs planning or
// transformation.
func (c *Converter) Analyze(pkg *Package) (*Analysis, error) {
	resolver := graph.NewFSResolver(pkg.FS)
	entry, err := resolver.ResolvePackage(pkg.Root)
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder(pkg.FS, resolver, graph.Options{
		Externals:   c.externals(pkg.Manifest),
		Exclude:     c.opts.Exclude,
		ForceInline: c.opts.ForceInline,
	})
	g, err := builder.Build(entry)
	if err != nil {
		return nil, err
	}

	r := analyzer.Analyze(g, analyzer.Options{
		Polyfills:      c.catalog,
		Includes:       append(append([]string(nil), c.opts.DefaultIncludes...), c.opts.Include...),
		Excludes:       c.opts.Excludes,
		Aliases:        c.aliases,
		ReferencedOnly: c.opts.Strategy == bundler.StrategySelective,
		Target:         c.opts.Target,
	})
	log.Info().
		Str("package", pkg.Manifest.Name).
		Int("modules", len(g.VisitOrder)).
		Int("issues", len(r.Issues)).
		Bool("feasible", r.Feasible).
		Msg("Package analyzed")
	return &Analysis{Graph: g, Report: r}, nil
}

// Convert runs the whole pipeline. Planning and polyfill failures return the
// partial result together with the error so the report can still be shown;
// the transformer never runs in that case.
func (c *Converter) Convert(pkg *Package) (*Result, error) {
	a, err := c.Analyze(pkg)
	if err != nil {
		return nil, err
	}
	g := a.Graph

	res := &Result{
		ID:      uuid.New(),
		Package: pkg.Manifest.Name,
		Version: pkg.Manifest.Version,
		Report:  a.Report,
		Graph:   g,
	}

	plan, err := bundler.NewEngine(bundler.Options{
		Strategy:    c.opts.Strategy,
		MaxSize:     c.opts.MaxSize,
		Exclude:     c.opts.Exclude,
		ForceInline: c.opts.ForceInline,
		Aliases:     c.aliases,
	}).Plan(g)
	res.Plan = plan
	res.Stats = stats(g, plan)
	if err != nil {
		var tooLarge *bundler.BundleTooLargeError
		if errors.As(err, &tooLarge) {
			a.Report.Add(report.Issue{
				Level:      report.Fatal,
				Code:       report.CodeBundleSize,
				Message:    tooLarge.Error(),
				Suggestion: "use the hybrid or external strategy with global aliases, or raise bundle.max_size",
			})
		}
		return res, err
	}
	a.Report.Add(plan.Issues...)

	used, fatal := survivors(g, plan, a.Report)
	bindings, err := polyfills.NewInjector(c.catalog).Inject(polyfills.Request{
		Used:     used,
		Defaults: c.opts.DefaultIncludes,
		Explicit: c.opts.Include,
		Excludes: c.opts.Excludes,
		Fatal:    fatal,
	})
	if err != nil {
		return res, err
	}
	res.Polyfills = bindings

	name := c.opts.Name
	if name == "" {
		name = pkg.Manifest.Name
	}
	out, err := transform.New(transform.Options{
		Namespace: c.opts.Namespace,
		Name:      name,
		Aliases:   c.aliases,
	}).Transform(g, plan, bindings)
	if err != nil {
		return res, fmt.Errorf("failed to assemble bundle: %w", err)
	}
	a.Report.Add(out.Issues...)

	res.Output = out.Code
	res.Stats.OutputBytes = len(out.Code)
	log.Info().
		Str("id", res.ID.String()).
		Str("package", res.Package).
		Str("strategy", plan.Strategy.String()).
		Int("polyfills", len(bindings)).
		Int("bytes", res.Stats.OutputBytes).
		Msg("Package converted")
	return res, nil
}

// externals are the packages that may be absent from the tree: the
// manifest's peer and optional dependencies plus any configured global.
func (c *Converter) externals(m *manifest.Manifest) graph.Matcher {
	set := make(map[string]bool)
	for _, name := range m.Externals() {
		set[name] = true
	}
	for name := range c.opts.Globals {
		set[name] = true
	}
	out := make(graph.Matcher, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// survivors returns the built-ins used by inlined modules and the Fatal
// unsupported APIs that are still reachable after planning.
func survivors(g *graph.Graph, plan *bundler.Plan, r *report.Report) ([]string, map[string][]string) {
	seen := make(map[string]bool)
	for _, n := range g.FileNodes() {
		if !plan.Inline(n.ID) {
			continue
		}
		for _, u := range n.File.APIs {
			seen[u.Name] = true
		}
	}
	used := make([]string, 0, len(seen))
	for name := range seen {
		used = append(used, name)
	}
	sort.Strings(used)

	fatal := make(map[string][]string)
	for api, modules := range r.FatalAPIs() {
		for _, m := range modules {
			if plan.Inline(m) {
				fatal[api] = append(fatal[api], m)
			}
		}
	}
	return used, fatal
}

func stats(g *graph.Graph, plan *bundler.Plan) Stats {
	return Stats{
		SizeBefore:   g.TotalSize(),
		SizeAfter:    plan.Size,
		Nodes:        len(g.VisitOrder),
		Inline:       plan.Count(bundler.KindInline),
		Externalized: plan.Count(bundler.KindExternalized),
		Excluded:     plan.Count(bundler.KindExcluded),
		Stubs:        plan.Stubs(),
	}
}

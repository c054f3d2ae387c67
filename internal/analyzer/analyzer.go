// Package analyzer checks a module graph for browser compatibility.
package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/nodeapi"
	"github.com/fluxbase-eu/pakto/internal/report"
	"github.com/fluxbase-eu/pakto/internal/source"
)

// Catalog answers whether a built-in has a browser polyfill.
type Catalog interface {
	Has(name string) bool
}

// Options configures Analyze.
type Options struct {
	Polyfills Catalog
	// Includes are polyfills installed whether or not code uses them.
	Includes []string
	// Excludes are polyfills never installed.
	Excludes []string
	// Aliases maps package names to the globals that provide them.
	Aliases map[string]string
	// ReferencedOnly limits the load-time reachability pass to imports whose
	// bindings are used, matching selective tree-shaking.
	ReferencedOnly bool
	// Target is the language level the output must run at. Constructs above
	// it are reported.
	Target source.Target
}

// Analyze walks g once and produces its compatibility report.
func Analyze(g *graph.Graph, opts Options) *report.Report {
	r := &report.Report{Nodes: len(g.VisitOrder)}
	excluded := toSet(opts.Excludes)
	loadTime := LoadTime(g, opts.ReferencedOnly)
	used := make(map[string]bool)

	for _, n := range g.FileNodes() {
		f := n.File
		for _, u := range f.APIs {
			used[u.Name] = true
			r.Issues = append(r.Issues, apiIssue(n.ID, u, loadTime[n.ID], opts, excluded))
		}
		if f.Format == source.FormatUnknown {
			r.Issues = append(r.Issues, report.Issue{
				Level:      report.Info,
				Code:       report.CodeUnknownFormat,
				Message:    "module format could not be detected; the file is wrapped as-is",
				Suggestion: "check that the file does not depend on module-level this or globals",
				Module:     n.ID,
			})
		}
		for _, p := range f.Problems {
			r.Issues = append(r.Issues, report.Issue{
				Level:   report.Warning,
				Code:    report.CodeSourceProblem,
				Message: p,
				Module:  n.ID,
			})
		}
		if above := source.Above(f.Features, opts.Target); len(above) > 0 {
			r.Issues = append(r.Issues, syntaxIssue(n.ID, above, opts.Target))
		}
	}

	for _, n := range g.ExternalNodes() {
		if alias, ok := opts.Aliases[n.Package]; ok {
			r.Issues = append(r.Issues, report.Issue{
				Level:   report.Info,
				Code:    report.CodeExternal,
				Message: fmt.Sprintf("%s is expected from the global %s (%s)", n.Package, alias, n.Reason),
				Module:  n.ID,
			})
			continue
		}
		r.Issues = append(r.Issues, report.Issue{
			Level:      report.Warning,
			Code:       report.CodeExternal,
			Message:    fmt.Sprintf("%s is not bundled and has no global alias (%s); requiring it throws at runtime", n.Package, n.Reason),
			Suggestion: fmt.Sprintf("add %q to [bundle.globals]", n.Package),
			Module:     n.ID,
		})
	}

	for _, c := range g.Cycles {
		path := append(append([]string(nil), c.Members...), c.To)
		r.Issues = append(r.Issues, report.Issue{
			Level:   report.Info,
			Code:    report.CodeCycle,
			Message: "circular dependency: " + strings.Join(path, " -> "),
			Module:  c.From,
		})
	}

	r.RequiredPolyfills = Required(used, opts.Includes, opts.Excludes)
	r.Recompute()

	log.Debug().
		Int("issues", len(r.Issues)).
		Bool("feasible", r.Feasible).
		Float64("score", r.Score).
		Strs("polyfills", r.RequiredPolyfills).
		Msg("Compatibility analysis finished")
	return r
}

func apiIssue(module string, u nodeapi.Usage, loaded bool, opts Options, excluded map[string]bool) report.Issue {
	issue := report.Issue{Module: module, API: u.Name}
	switch {
	case opts.Polyfills != nil && opts.Polyfills.Has(u.Name) && !excluded[u.Name]:
		issue.Level = report.Info
		issue.Code = report.CodePolyfilled
		issue.Message = fmt.Sprintf("%s is replaced by a browser polyfill", u.Name)
	case nodeapi.AlwaysUnsupported(u.Name):
		issue.Code = report.CodeUnsupportedAPI
		issue.Level = report.Warning
		issue.Message = fmt.Sprintf("%s has no browser equivalent; it is only used lazily", u.Name)
		issue.Suggestion = "make sure the code path is never taken in the browser"
		if u.TopLevel && loaded {
			issue.Level = report.Fatal
			issue.Message = fmt.Sprintf("%s has no browser equivalent and is required while the module loads", u.Name)
			issue.Suggestion = "exclude the dependency that needs it or use a browser build of the package"
		}
	default:
		issue.Level = report.Warning
		issue.Code = report.CodeMissingPolyfill
		issue.Message = fmt.Sprintf("no polyfill is available for %s", u.Name)
		issue.Suggestion = "map it onto an existing polyfill in [polyfills.mappings] or provide a global"
	}
	return issue
}

func syntaxIssue(module string, above []source.Feature, target source.Target) report.Issue {
	parts := make([]string, 0, len(above))
	for _, f := range above {
		parts = append(parts, fmt.Sprintf("%s (%s, line %d)", f.Name, f.Since, f.Line))
	}
	return report.Issue{
		Level:      report.Warning,
		Code:       report.CodeSyntaxTarget,
		Message:    fmt.Sprintf("syntax newer than %s: %s", target, strings.Join(parts, ", ")),
		Suggestion: "raise output.target or transpile the dependency",
		Module:     module,
	}
}

// LoadTime returns the nodes whose top level runs while the root loads:
// the root plus everything reached over top-level imports. With
// referencedOnly, imports whose bindings are never used are not followed.
func LoadTime(g *graph.Graph, referencedOnly bool) map[string]bool {
	return g.Reachable(g.Root, func(e graph.Edge) bool {
		if !e.Import.TopLevel {
			return false
		}
		return !referencedOnly || e.Import.Referenced
	})
}

// Required computes (used - excludes) + includes, sorted.
func Required(used map[string]bool, includes, excludes []string) []string {
	excluded := toSet(excludes)
	set := make(map[string]bool)
	for name := range used {
		if !excluded[name] {
			set[name] = true
		}
	}
	for _, name := range includes {
		set[name] = true
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Package transform turns a bundle plan into a single browser script: every
// inlined module becomes a factory in a registry, imports become registry
// lookups, and the root's exports are published on the global object.
package transform

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pakto/internal/bundler"
	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/nodeapi"
	"github.com/fluxbase-eu/pakto/internal/polyfills"
	"github.com/fluxbase-eu/pakto/internal/report"
	"github.com/fluxbase-eu/pakto/internal/source"
)

// globalObject is the argument of the outer wrapper.
const globalObject = "typeof globalThis !== 'undefined' ? globalThis : typeof window !== 'undefined' ? window : this"

// Options configures the transformer.
type Options struct {
	// Namespace is a dotted path under the global object; it may be empty.
	Namespace string
	// Name is the property the root module's value is assigned to.
	Name string
	// Aliases provide globals for built-ins that have no polyfill.
	Aliases bundler.AliasTable
}

// Output is the assembled script plus findings that did not stop assembly.
type Output struct {
	Code   string
	Issues []report.Issue
}

// Transformer assembles bundles.
type Transformer struct {
	opts Options
}

// New creates a transformer.
func New(opts Options) *Transformer {
	return &Transformer{opts: opts}
}

// Transform emits plan.Order as one immediately invoked function. The result
// depends only on its inputs.
func (t *Transformer) Transform(g *graph.Graph, plan *bundler.Plan, bindings []polyfills.Binding) (*Output, error) {
	if t.opts.Name == "" {
		return nil, fmt.Errorf("global name is required")
	}
	if !plan.Inline(g.Root) {
		return nil, fmt.Errorf("root module %s is not inlined", g.Root)
	}

	out := &Output{}
	builtins := make(map[string]string)
	for _, b := range bindings {
		for _, api := range b.Satisfies {
			builtins[api] = b.Identifier
		}
	}

	var b strings.Builder
	b.WriteString("(function (root) {\n")
	for _, binding := range bindings {
		b.WriteString(strings.TrimRight(binding.Asset.Source, "\n"))
		b.WriteString("\n")
	}
	for _, binding := range bindings {
		if a := binding.Asset; a.Global != "" {
			fmt.Fprintf(&b, "var %s = %s;\n", a.Global, a.GlobalExpr)
		}
	}
	b.WriteString(Runtime())
	b.WriteString("\n")

	for _, entry := range plan.Order {
		if entry.Stub {
			fmt.Fprintf(&b, "%s.stub(%s);\n", RegistryName, jsString(entry.ID))
			continue
		}
		n := g.Node(entry.ID)
		body, issue := t.moduleBody(g, plan, builtins, n)
		if issue != nil {
			out.Issues = append(out.Issues, *issue)
		}
		fmt.Fprintf(&b, "%s.define(%s, function (module, exports, require) {\n", RegistryName, jsString(n.ID))
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("});\n")
	}

	b.WriteString(t.exportStatement(g.Root))
	b.WriteString("})(" + globalObject + ");\n")

	out.Code = b.String()
	log.Debug().
		Int("modules", len(plan.Order)).
		Int("polyfills", len(bindings)).
		Int("bytes", len(out.Code)).
		Msg("Bundle assembled")
	return out, nil
}

// moduleBody renders one module for its format.
func (t *Transformer) moduleBody(g *graph.Graph, plan *bundler.Plan, builtins map[string]string, n *graph.Node) (string, *report.Issue) {
	f := n.File
	switch f.Format {
	case source.FormatJSON:
		return "module.exports = " + strings.TrimSpace(f.Text) + ";\n", nil
	case source.FormatUnknown:
		return f.Text, nil
	case source.FormatUMD:
		return "var define = undefined;\n" + t.rewrite(g, plan, builtins, n, f.Text, f.Imports), nil
	case source.FormatESM:
		code, err := Desugar(f.Path, f.Text)
		if err != nil {
			return f.Text, &report.Issue{
				Level:      report.Warning,
				Code:       report.CodeTransform,
				Message:    fmt.Sprintf("ES module could not be converted, it is wrapped as-is: %v", err),
				Suggestion: "use the package's CommonJS or browser build",
				Module:     n.ID,
			}
		}
		converted := source.Parse(f.Path, code)
		return t.rewrite(g, plan, builtins, n, code, converted.Imports), nil
	default:
		return t.rewrite(g, plan, builtins, n, f.Text, f.Imports), nil
	}
}

func (t *Transformer) rewrite(g *graph.Graph, plan *bundler.Plan, builtins map[string]string, n *graph.Node, text string, imports []source.Import) string {
	targets := make(map[string]string)
	for _, e := range g.Out(n.ID) {
		targets[e.Import.Specifier] = e.To
	}
	consumerIsESM := n.File.Format == source.FormatESM

	return rewriteCalls(text, imports, func(imp source.Import) (string, bool) {
		if name, ok := nodeapi.Normalize(imp.Specifier); ok {
			if ident, ok := builtins[name]; ok {
				return ident, true
			}
			if alias, ok := t.opts.Aliases.Lookup(imp.Specifier); ok {
				return globalCall(alias, imp.Specifier), true
			}
			return "", false
		}
		to, ok := targets[imp.Specifier]
		if !ok {
			return "", false
		}
		d := plan.Decision(to)
		switch d.Kind {
		case bundler.KindInline:
			target := g.Node(to)
			if !consumerIsESM && target.File != nil && target.File.HasDefaultExport() {
				return fmt.Sprintf("%s.requireDefault(%s)", RegistryName, jsString(to)), true
			}
			return fmt.Sprintf("%s.require(%s)", RegistryName, jsString(to)), true
		case bundler.KindExternalized:
			name := g.Node(to).Package
			if d.Alias == "" {
				return fmt.Sprintf("%s.missing(%s)", RegistryName, jsString(name)), true
			}
			return globalCall(d.Alias, name), true
		default:
			return "({})", true
		}
	})
}

// exportStatement publishes the root module, creating namespace objects as
// needed. It is the only write to the global object.
func (t *Transformer) exportStatement(rootID string) string {
	var b strings.Builder
	target := "root"
	if t.opts.Namespace != "" {
		for _, part := range strings.Split(t.opts.Namespace, ".") {
			target += "[" + jsString(part) + "]"
			fmt.Fprintf(&b, "%s = %s || {};\n", target, target)
		}
	}
	fmt.Fprintf(&b, "%s[%s] = %s.requireDefault(%s);\n", target, jsString(t.opts.Name), RegistryName, jsString(rootID))
	return b.String()
}

func globalCall(alias, name string) string {
	return fmt.Sprintf("%s.global(%s, %s)", RegistryName, jsString(alias), jsString(name))
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(data)
}

package bundler

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/report"
)

// Options configures the engine.
type Options struct {
	Strategy Strategy
	// MaxSize is the byte budget for inlined sources; 0 disables it.
	MaxSize     int64
	Exclude     graph.Matcher
	ForceInline graph.Matcher
	Aliases     AliasTable
}

// Engine turns a module graph into a Plan.
type Engine struct {
	opts Options
}

// NewEngine creates an engine. A nil alias table means the defaults.
func NewEngine(opts Options) *Engine {
	if opts.Aliases == nil {
		opts.Aliases = DefaultAliases()
	}
	return &Engine{opts: opts}
}

// Plan decides every node of g. It returns the plan together with a
// *BundleTooLargeError when the budget is exceeded and nothing was
// externalized.
func (e *Engine) Plan(g *graph.Graph) (*Plan, error) {
	p := &Plan{
		Strategy:  e.opts.Strategy,
		Decisions: make(map[string]Inclusion, len(g.Nodes)),
		MaxSize:   e.opts.MaxSize,
	}

	var depths map[string]int
	var perDepth map[int]int
	if e.opts.Strategy == StrategyHybrid {
		depths = g.Depths()
		perDepth = make(map[int]int)
		for _, d := range depths {
			perDepth[d]++
		}
	}

	for _, id := range g.VisitOrder {
		n := g.Node(id)
		p.Decisions[id] = e.decide(g, n, p, depths, perDepth)
	}

	if e.opts.Strategy == StrategySelective {
		live := sweep(g, p)
		for _, id := range g.VisitOrder {
			if !live[id] && p.Decisions[id].Kind != KindExcluded {
				p.Decisions[id] = Inclusion{Kind: KindExcluded, Reason: "unused"}
			}
		}
	}
	prune(g, p)

	p.Order = emissionOrder(g, p)
	for _, entry := range p.Order {
		if !entry.Stub {
			p.Size += g.Node(entry.ID).Size()
		}
	}

	log.Debug().
		Str("strategy", p.Strategy.String()).
		Int("inline", p.Count(KindInline)).
		Int("externalized", p.Count(KindExternalized)).
		Int("excluded", p.Count(KindExcluded)).
		Int64("size", p.Size).
		Msg("Bundle plan ready")

	if e.opts.MaxSize > 0 && p.Size > e.opts.MaxSize {
		canShed := e.opts.Strategy == StrategyExternal || e.opts.Strategy == StrategyHybrid
		if !canShed || p.Count(KindExternalized) == 0 {
			return p, &BundleTooLargeError{Size: p.Size, MaxSize: e.opts.MaxSize}
		}
		p.Issues = append(p.Issues, report.Issue{
			Level:      report.Warning,
			Code:       report.CodeBundleSize,
			Message:    fmt.Sprintf("bundle size %d bytes is over max_size %d bytes after externalizing", p.Size, e.opts.MaxSize),
			Suggestion: "add global aliases for more dependencies",
		})
	}
	return p, nil
}

func (e *Engine) decide(g *graph.Graph, n *graph.Node, p *Plan, depths map[string]int, perDepth map[int]int) Inclusion {
	if n.ID == g.Root {
		return Inclusion{Kind: KindInline}
	}
	if n.Kind == graph.NodeExternal {
		alias, _ := e.opts.Aliases.Lookup(n.Package)
		return Inclusion{Kind: KindExternalized, Alias: alias, Reason: n.Reason}
	}

	forced := e.opts.ForceInline.Match(n.Package)
	if n.Package != "" && !forced && e.opts.Exclude.Match(n.Package) {
		if !n.IsEntry() {
			return Inclusion{Kind: KindExcluded, Reason: "excluded dependency"}
		}
		alias := e.alias(n)
		if alias == "" {
			p.Issues = append(p.Issues, report.Issue{
				Level:      report.Warning,
				Code:       report.CodeExcluded,
				Message:    fmt.Sprintf("%s is excluded from the bundle and has no global alias", n.Package),
				Suggestion: fmt.Sprintf("add %q to [bundle.globals]", n.Package),
				Module:     n.ID,
			})
		}
		return Inclusion{Kind: KindExternalized, Alias: alias, Reason: "excluded dependency"}
	}
	if forced || !n.IsEntry() {
		return Inclusion{Kind: KindInline}
	}

	switch e.opts.Strategy {
	case StrategyExternal:
		if alias := e.alias(n); alias != "" {
			return Inclusion{Kind: KindExternalized, Alias: alias, Reason: "global alias available"}
		}
	case StrategyHybrid:
		if e.opts.MaxSize <= 0 {
			break
		}
		d := depths[n.ID]
		threshold := e.opts.MaxSize / int64(perDepth[d])
		if g.SubtreeSize(n.ID) < threshold {
			break
		}
		if alias := e.alias(n); alias != "" {
			return Inclusion{Kind: KindExternalized, Alias: alias, Reason: fmt.Sprintf("subtree over %d bytes", threshold)}
		}
	}
	return Inclusion{Kind: KindInline}
}

// alias finds a global for a package entry node through the bare specifiers
// it was imported by.
func (e *Engine) alias(n *graph.Node) string {
	for _, spec := range n.Specifiers {
		if alias, ok := e.opts.Aliases.Lookup(spec); ok {
			return alias
		}
	}
	return ""
}

// prune excludes nodes that can only be reached through modules that are not
// inlined.
func prune(g *graph.Graph, p *Plan) {
	reached := g.Reachable(g.Root, func(e graph.Edge) bool {
		return p.Decisions[e.From].Kind == KindInline && p.Decisions[e.To].Kind != KindExcluded
	})
	for _, id := range g.VisitOrder {
		if reached[id] || p.Decisions[id].Kind == KindExcluded {
			continue
		}
		p.Decisions[id] = Inclusion{Kind: KindExcluded, Reason: "only reachable through externalized modules"}
	}
}

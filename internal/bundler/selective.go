package bundler

import (
	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/source"
)

// sweep marks the nodes whose exports are reachable from the root's exports.
// An edge keeps its target alive when the importing binding is used; a
// target with a dynamic export surface is kept by any edge at all. Re-exports
// forward only the names requested from the re-exporting module.
func sweep(g *graph.Graph, p *Plan) map[string]bool {
	requested := map[string]map[string]bool{g.Root: {source.Namespace: true}}
	live := map[string]bool{g.Root: true}
	queue := []string{g.Root}

	request := func(id string, names []string) bool {
		set := requested[id]
		if set == nil {
			set = make(map[string]bool)
			requested[id] = set
		}
		grew := false
		for _, name := range names {
			if !set[name] {
				set[name] = true
				grew = true
			}
		}
		return grew
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if p.Decisions[id].Kind != KindInline {
			continue
		}
		asked := requested[id]
		for _, e := range g.Out(id) {
			if p.Decisions[e.To].Kind == KindExcluded {
				continue
			}
			names := forwarded(e.Import, asked)
			target := g.Node(e.To)
			if len(names) == 0 && !(alwaysLive(target) && e.Import.Kind != source.ImportReexport) {
				continue
			}
			grew := request(e.To, names)
			if !live[e.To] || grew {
				live[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return live
}

// forwarded returns the export names an import asks of its target, given the
// names asked of the importing module.
func forwarded(imp source.Import, asked map[string]bool) []string {
	if imp.Kind != source.ImportReexport {
		return imp.Names
	}
	var out []string
	for i, alias := range imp.Aliases {
		switch {
		case alias == source.Namespace:
			// export * from: pass every request through
			for name := range asked {
				out = append(out, name)
			}
		case asked[source.Namespace] || asked[alias]:
			out = append(out, imp.Names[i])
		}
	}
	return out
}

// alwaysLive reports nodes whose export surface cannot be shaken.
func alwaysLive(n *graph.Node) bool {
	if n.Kind == graph.NodeExternal {
		return true
	}
	f := n.File
	return f.Exports.Dynamic || f.Format == source.FormatUnknown
}

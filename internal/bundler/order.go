package bundler

import "github.com/fluxbase-eu/pakto/internal/graph"

// emissionOrder lists inlined modules dependencies-first by a postorder walk
// from the root. The first back edge into a module still on the walk stack
// emits a stub for it, ahead of every definition on that cycle.
func emissionOrder(g *graph.Graph, p *Plan) []Entry {
	const (
		unvisited = iota
		active
		done
	)
	var order []Entry
	state := make(map[string]int)
	stubbed := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		state[id] = active
		for _, e := range g.Out(id) {
			if !p.Inline(e.To) {
				continue
			}
			switch state[e.To] {
			case unvisited:
				visit(e.To)
			case active:
				if !stubbed[e.To] {
					stubbed[e.To] = true
					order = append(order, Entry{ID: e.To, Stub: true})
				}
			}
		}
		state[id] = done
		order = append(order, Entry{ID: id})
	}
	visit(g.Root)
	return order
}

// Package graph builds the module graph of a package: one node per reachable
// source file or external package, one edge per resolved import.
package graph

import (
	"path"
	"strings"

	"github.com/fluxbase-eu/pakto/internal/manifest"
	"github.com/fluxbase-eu/pakto/internal/source"
)

// NodeKind separates source files from packages left to the host page.
type NodeKind int

const (
	NodeFile NodeKind = iota
	NodeExternal
)

// ExternalPrefix starts the id of every external node.
const ExternalPrefix = "external:"

// Node is a vertex of the graph. File nodes are keyed by absolute path.
type Node struct {
	ID   string
	Kind NodeKind
	File *source.File
	// Package is the npm package the node belongs to, "" for the root package.
	Package string
	// Specifiers are the bare specifiers other packages used to reach this
	// node. A non-empty list marks a package entry point.
	Specifiers []string
	// Reason explains why an external node is external.
	Reason string
}

// Size is the byte size of the node's source; external nodes are empty.
func (n *Node) Size() int64 {
	if n.File == nil {
		return 0
	}
	return n.File.Size()
}

// IsEntry reports whether the node was reached through a bare specifier.
func (n *Node) IsEntry() bool {
	return len(n.Specifiers) > 0 || n.Kind == NodeExternal
}

// Edge is one resolved import.
type Edge struct {
	From   string
	To     string
	Import source.Import
}

// CycleEdge is an edge that closes a cycle; Members are the nodes on the
// cycle, starting at To.
type CycleEdge struct {
	From    string
	To      string
	Members []string
}

// Graph is the result of Builder.Build.
type Graph struct {
	Root       string
	Nodes      map[string]*Node
	Edges      map[string][]Edge
	VisitOrder []string
	Cycles     []CycleEdge
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// Out returns the edges leaving id, in source order.
func (g *Graph) Out(id string) []Edge {
	return g.Edges[id]
}

// FileNodes returns the file nodes in first-visit order.
func (g *Graph) FileNodes() []*Node {
	return g.nodesOfKind(NodeFile)
}

// ExternalNodes returns the external nodes in first-visit order.
func (g *Graph) ExternalNodes() []*Node {
	return g.nodesOfKind(NodeExternal)
}

func (g *Graph) nodesOfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, id := range g.VisitOrder {
		if n := g.Nodes[id]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Depths returns the breadth-first distance of every reachable node from the
// root.
func (g *Graph) Depths() map[string]int {
	depths := map[string]int{g.Root: 0}
	queue := []string{g.Root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.Edges[id] {
			if _, ok := depths[e.To]; !ok {
				depths[e.To] = depths[id] + 1
				queue = append(queue, e.To)
			}
		}
	}
	return depths
}

// Reachable returns the nodes reachable from id (id included) over edges
// accepted by follow. A nil follow accepts every edge.
func (g *Graph) Reachable(id string, follow func(Edge) bool) map[string]bool {
	seen := map[string]bool{id: true}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Edges[cur] {
			if seen[e.To] || (follow != nil && !follow(e)) {
				continue
			}
			seen[e.To] = true
			stack = append(stack, e.To)
		}
	}
	return seen
}

// SubtreeSize is the total source size of everything reachable from id.
func (g *Graph) SubtreeSize(id string) int64 {
	var total int64
	for n := range g.Reachable(id, nil) {
		total += g.Nodes[n].Size()
	}
	return total
}

// TotalSize is the source size of every file node.
func (g *Graph) TotalSize() int64 {
	var total int64
	for _, n := range g.Nodes {
		total += n.Size()
	}
	return total
}

// PackageOf returns the npm package a file path belongs to, based on its last
// node_modules segment.
func PackageOf(p string) string {
	const marker = "/node_modules/"
	i := strings.LastIndex(p, marker)
	if i < 0 {
		return ""
	}
	return manifest.PackageName(p[i+len(marker):])
}

// Matcher matches package names against exact names and path.Match globs.
type Matcher []string

// Match reports whether name matches any pattern.
func (m Matcher) Match(name string) bool {
	for _, p := range m {
		if p == name {
			return true
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

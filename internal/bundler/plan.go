package bundler

import (
	"fmt"

	"github.com/fluxbase-eu/pakto/internal/report"
)

// InclusionKind is the fate of one node.
type InclusionKind int

const (
	KindInline InclusionKind = iota
	KindExternalized
	KindExcluded
)

func (k InclusionKind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindExternalized:
		return "externalized"
	case KindExcluded:
		return "excluded"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k InclusionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Inclusion is the decision for one node. Alias is the global providing an
// externalized node; it is empty when the page must supply one.
type Inclusion struct {
	Kind   InclusionKind `json:"kind" yaml:"kind"`
	Alias  string        `json:"alias,omitempty" yaml:"alias,omitempty"`
	Reason string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Entry is one step of emission. A stub entry registers an empty module
// ahead of its definition so cycle members can see it.
type Entry struct {
	ID   string `json:"id" yaml:"id"`
	Stub bool   `json:"stub,omitempty" yaml:"stub,omitempty"`
}

// Plan is the bundling decision for a graph.
type Plan struct {
	Strategy  Strategy             `json:"strategy" yaml:"strategy"`
	Decisions map[string]Inclusion `json:"decisions" yaml:"decisions"`
	Order     []Entry              `json:"order" yaml:"order"`

	// Size is the total source size of the inlined modules.
	Size    int64          `json:"size" yaml:"size"`
	MaxSize int64          `json:"max_size" yaml:"max_size"`
	Issues  []report.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Decision returns the decision for id. Unknown ids are excluded.
func (p *Plan) Decision(id string) Inclusion {
	d, ok := p.Decisions[id]
	if !ok {
		return Inclusion{Kind: KindExcluded, Reason: "not in graph"}
	}
	return d
}

// Inline reports whether id is emitted.
func (p *Plan) Inline(id string) bool {
	return p.Decision(id).Kind == KindInline
}

// Count returns the number of nodes with the given fate.
func (p *Plan) Count(kind InclusionKind) int {
	n := 0
	for _, d := range p.Decisions {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Stubs returns the number of stub entries.
func (p *Plan) Stubs() int {
	n := 0
	for _, e := range p.Order {
		if e.Stub {
			n++
		}
	}
	return n
}

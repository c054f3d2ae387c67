// Package bundler decides, per module graph node, whether it is inlined,
// left to a global, or dropped, and in which order inlined modules are
// emitted.
package bundler

import (
	"fmt"
	"strings"
)

// Strategy selects how dependencies are bundled.
type Strategy int

const (
	// StrategyInline bundles every resolved module.
	StrategyInline Strategy = iota
	// StrategySelective bundles only modules whose exports are used.
	StrategySelective
	// StrategyExternal leaves every package with a known global to the page.
	StrategyExternal
	// StrategyHybrid externalizes packages too large for the size budget.
	StrategyHybrid
)

var strategyNames = [...]string{
	StrategyInline:    "inline",
	StrategySelective: "selective",
	StrategyExternal:  "external",
	StrategyHybrid:    "hybrid",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy accepts a strategy name in any case.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range strategyNames {
		if s == n {
			return Strategy(i), nil
		}
	}
	return StrategyInline, fmt.Errorf("invalid strategy %q (valid: inline, selective, external, hybrid)", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

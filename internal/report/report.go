// Package report holds the compatibility report types shared by the analyzer,
// the bundler and the CLI.
package report

import (
	"fmt"
	"strings"
)

// Level is the severity of an issue.
type Level int

const (
	Info Level = iota
	Warning
	Fatal
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "info":
		*l = Info
	case "warning":
		*l = Warning
	case "fatal":
		*l = Fatal
	default:
		return fmt.Errorf("unknown level %q", text)
	}
	return nil
}

// Issue codes.
const (
	CodeUnsupportedAPI  = "unsupported-api"
	CodeMissingPolyfill = "missing-polyfill"
	CodePolyfilled      = "polyfilled"
	CodeUnknownFormat   = "unknown-format"
	CodeExternal        = "external"
	CodeCycle           = "cycle"
	CodeSourceProblem   = "source-problem"
	CodeSyntaxTarget    = "syntax-target"
	CodeExcluded        = "excluded"
	CodeBundleSize      = "bundle-size"
	CodeTransform       = "transform"
)

// Issue is one finding about the package.
type Issue struct {
	Level      Level  `json:"level" yaml:"level"`
	Code       string `json:"code" yaml:"code"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Module     string `json:"module,omitempty" yaml:"module,omitempty"`
	API        string `json:"api,omitempty" yaml:"api,omitempty"`
}

// Report is the outcome of compatibility analysis.
type Report struct {
	Issues            []Issue  `json:"issues" yaml:"issues"`
	RequiredPolyfills []string `json:"required_polyfills" yaml:"required_polyfills"`
	Feasible          bool     `json:"feasible" yaml:"feasible"`
	Score             float64  `json:"score" yaml:"score"`
	Nodes             int      `json:"nodes" yaml:"nodes"`
}

// Add appends issues and refreshes Feasible and Score.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
	r.Recompute()
}

// Recompute derives Feasible and Score from the issue list.
func (r *Report) Recompute() {
	r.Feasible = r.Count(Fatal) == 0
	r.Score = Score(r.Count(Fatal), r.Count(Warning), r.Nodes)
}

// Count returns the number of issues at level.
func (r *Report) Count(level Level) int {
	n := 0
	for _, i := range r.Issues {
		if i.Level == level {
			n++
		}
	}
	return n
}

// Filter returns the issues at or above level.
func (r *Report) Filter(level Level) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Level >= level {
			out = append(out, i)
		}
	}
	return out
}

// FatalAPIs returns the built-ins that have a Fatal unsupported-api issue,
// with the modules referencing them.
func (r *Report) FatalAPIs() map[string][]string {
	out := make(map[string][]string)
	for _, i := range r.Issues {
		if i.Level == Fatal && i.Code == CodeUnsupportedAPI {
			out[i.API] = append(out[i.API], i.Module)
		}
	}
	return out
}

// Score is 1 - (0.5*fatal + 0.2*warning)/nodes, floored at 0. An empty graph
// scores 1 when it has no issues.
func Score(fatal, warning, nodes int) float64 {
	if nodes <= 0 {
		if fatal+warning == 0 {
			return 1
		}
		return 0
	}
	s := 1 - (0.5*float64(fatal)+0.2*float64(warning))/float64(nodes)
	if s < 0 {
		return 0
	}
	return s
}

package analyzer

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/report"
	"github.com/fluxbase-eu/pakto/internal/source"
)

type fakeCatalog map[string]bool

func (c fakeCatalog) Has(name string) bool { return c[name] }

func buildGraph(t *testing.T, files map[string]string, externals ...string) *graph.Graph {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	g, err := graph.NewBuilder(fs, graph.NewFSResolver(fs), graph.Options{Externals: externals}).Build("/index.js")
	require.NoError(t, err)
	return g
}

func lines(l ...string) string {
	return strings.Join(l, "\n")
}

func issuesWith(r *report.Report, code string) []report.Issue {
	var out []report.Issue
	for _, i := range r.Issues {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

func TestAnalyze_Feasibility(t *testing.T) {
	tests := []struct {
		name           string
		files          map[string]string
		referencedOnly bool
		wantLevel      report.Level
		wantFeasible   bool
	}{
		{
			name: "top-level fs in root",
			files: map[string]string{
				"/index.js": lines("const fs = require('fs');", "module.exports = fs.readFileSync;"),
			},
			referencedOnly: true,
			wantLevel:      report.Fatal,
			wantFeasible:   false,
		},
		{
			name: "fs inside a function",
			files: map[string]string{
				"/index.js": lines("function read() { return require('fs').readFileSync('x'); }", "module.exports = { read };"),
			},
			referencedOnly: true,
			wantLevel:      report.Warning,
			wantFeasible:   true,
		},
		{
			name: "top-level fs in an unreferenced sibling under selective",
			files: map[string]string{
				"/index.js": lines("const util = require('./util');", "exports.x = 1;"),
				"/util.js":  lines("const fs = require('fs');", "exports.y = fs;"),
			},
			referencedOnly: true,
			wantLevel:      report.Warning,
			wantFeasible:   true,
		},
		{
			name: "top-level fs in an unreferenced sibling under inline",
			files: map[string]string{
				"/index.js": lines("const util = require('./util');", "exports.x = 1;"),
				"/util.js":  lines("const fs = require('fs');", "exports.y = fs;"),
			},
			wantLevel:    report.Fatal,
			wantFeasible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, tt.files)
			r := Analyze(g, Options{ReferencedOnly: tt.referencedOnly, Target: source.ESNext})

			issues := issuesWith(r, report.CodeUnsupportedAPI)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.wantLevel, issues[0].Level)
			assert.Equal(t, "fs", issues[0].API)
			assert.Equal(t, tt.wantFeasible, r.Feasible)
		})
	}
}

func TestAnalyze_FatalScore(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"/index.js": lines("const fs = require('fs');", "module.exports = fs.readFileSync;"),
	})

	r := Analyze(g, Options{Target: source.ESNext})

	assert.Equal(t, 1, r.Nodes)
	assert.InDelta(t, 0.5, r.Score, 1e-9)
}

func TestAnalyze_Polyfills(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"/index.js": lines(
			"const crypto = require('crypto');",
			"const os = require('os');",
			"module.exports = crypto.randomBytes(os.cpus().length);",
		),
	})
	catalog := fakeCatalog{"crypto": true, "buffer": true}

	r := Analyze(g, Options{Polyfills: catalog, Includes: []string{"buffer"}, Target: source.ESNext})
	assert.Equal(t, []string{"buffer", "crypto", "os"}, r.RequiredPolyfills)
	require.Len(t, issuesWith(r, report.CodePolyfilled), 1)
	missing := issuesWith(r, report.CodeMissingPolyfill)
	require.Len(t, missing, 1)
	assert.Equal(t, "os", missing[0].API)
	assert.Equal(t, report.Warning, missing[0].Level)
	assert.True(t, r.Feasible)

	r = Analyze(g, Options{Polyfills: catalog, Excludes: []string{"crypto"}, Target: source.ESNext})
	assert.Equal(t, []string{"os"}, r.RequiredPolyfills)
	assert.Empty(t, issuesWith(r, report.CodePolyfilled))
	assert.Len(t, issuesWith(r, report.CodeMissingPolyfill), 2)
}

func TestAnalyze_IssueOrder(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"/index.js": lines("require('./a');", "require('./plain');", "require('react');", "require('left-pad');"),
		"/a.js":     lines("require('./b');", "exports.a = 1;"),
		"/b.js":     lines("require('./a');", "exports.b = 1;"),
		"/plain.js": "var x = 1;",
	}, "react", "left-pad")

	r := Analyze(g, Options{Aliases: map[string]string{"react": "React"}, Target: source.ESNext})

	var codes []string
	var levels []report.Level
	for _, i := range r.Issues {
		codes = append(codes, i.Code)
		levels = append(levels, i.Level)
	}
	assert.Equal(t, []string{report.CodeUnknownFormat, report.CodeExternal, report.CodeExternal, report.CodeCycle}, codes)
	assert.Equal(t, []report.Level{report.Info, report.Info, report.Warning, report.Info}, levels)
	assert.Contains(t, r.Issues[2].Suggestion, "left-pad")
	assert.Equal(t, "circular dependency: /a.js -> /b.js -> /a.js", r.Issues[3].Message)

	assert.Equal(t, 6, r.Nodes)
	assert.InDelta(t, 1-0.2/6, r.Score, 1e-9)
	assert.True(t, r.Feasible)
}

func TestAnalyze_SourceProblemsAndSyntax(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"/index.js": lines("const f = () => require(name);", "module.exports = f;"),
	})

	r := Analyze(g, Options{Target: source.ES5})

	problems := issuesWith(r, report.CodeSourceProblem)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, "non-literal require")

	syntax := issuesWith(r, report.CodeSyntaxTarget)
	require.Len(t, syntax, 1)
	assert.Contains(t, syntax[0].Message, "arrow function (es2015, line 1)")
	assert.Equal(t, report.Warning, syntax[0].Level)
}

func TestRequired(t *testing.T) {
	used := map[string]bool{"fs": true, "events": true}

	assert.Equal(t, []string{"buffer", "events"}, Required(used, []string{"buffer"}, []string{"fs"}))
	assert.Empty(t, Required(nil, nil, nil))
}

package bundler

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/report"
)

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

func kinds(p *Plan, ids ...string) []InclusionKind {
	out := make([]InclusionKind, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.Decision(id).Kind)
	}
	return out
}

var packageTree = map[string]string{
	"/index.js":                         "const _ = require('lodash');\nconst tiny = require('tiny');\nmodule.exports = { _, tiny };\n",
	"/node_modules/lodash/package.json": `{"name": "lodash", "main": "lodash.js"}`,
	"/node_modules/lodash/lodash.js":    "module.exports = require('./internal');\n",
	"/node_modules/lodash/internal.js":  "exports.map = 1;\n",
	"/node_modules/tiny/package.json":   `{"name": "tiny"}`,
	"/node_modules/tiny/index.js":       "exports.t = 1;\n",
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "inline", want: StrategyInline},
		{in: "Selective", want: StrategySelective},
		{in: " external ", want: StrategyExternal},
		{in: "HYBRID", want: StrategyHybrid},
		{in: "tree-shake", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid strategy")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlan_Reachability(t *testing.T) {
	files := map[string]string{
		"/index.js": "const m = require('./m');\nexports.x = 1;\n",
		"/m.js":     "exports.y = 2;\n",
	}
	g := buildGraph(t, files)

	inline, err := NewEngine(Options{Strategy: StrategyInline}).Plan(g)
	require.NoError(t, err)
	assert.Equal(t, KindInline, inline.Decision("/m.js").Kind)

	selective, err := NewEngine(Options{Strategy: StrategySelective}).Plan(g)
	require.NoError(t, err)
	assert.Equal(t, Inclusion{Kind: KindExcluded, Reason: "unused"}, selective.Decision("/m.js"))
	assert.Equal(t, []Entry{{ID: "/index.js"}}, selective.Order)
}

func TestPlan_SelectiveFollowsReexports(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"/index.js": "export { a } from './lib.js';\n",
		"/lib.js":   "export { a } from './a.js';\nexport { b } from './b.js';\n",
		"/a.js":     "export const a = 1;\n",
		"/b.js":     "export const b = 2;\n",
	})

	p, err := NewEngine(Options{Strategy: StrategySelective}).Plan(g)
	require.NoError(t, err)

	assert.Equal(t,
		[]InclusionKind{KindInline, KindInline, KindInline, KindExcluded},
		kinds(p, "/index.js", "/lib.js", "/a.js", "/b.js"))
}

func TestPlan_SelectiveKeepsDynamicExports(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"/index.js": "const m = require('./m');\nconst React = require('react');\nexports.x = 1;\n",
		"/m.js":     "module.exports = make();\n",
	}, "react")

	p, err := NewEngine(Options{Strategy: StrategySelective}).Plan(g)
	require.NoError(t, err)

	assert.Equal(t, KindInline, p.Decision("/m.js").Kind)
	assert.Equal(t, Inclusion{Kind: KindExternalized, Alias: "React", Reason: "declared external"}, p.Decision("external:react"))
}

func TestPlan_ExternalStrategy(t *testing.T) {
	g := buildGraph(t, packageTree)

	p, err := NewEngine(Options{Strategy: StrategyExternal}).Plan(g)
	require.NoError(t, err)

	lodash := p.Decision("/node_modules/lodash/lodash.js")
	assert.Equal(t, KindExternalized, lodash.Kind)
	assert.Equal(t, "_", lodash.Alias)
	assert.Equal(t, KindExcluded, p.Decision("/node_modules/lodash/internal.js").Kind)
	assert.Equal(t, KindInline, p.Decision("/node_modules/tiny/index.js").Kind)
	assert.Equal(t, []Entry{{ID: "/node_modules/tiny/index.js"}, {ID: "/index.js"}}, p.Order)

	forced, err := NewEngine(Options{Strategy: StrategyExternal, ForceInline: graph.Matcher{"lodash"}}).Plan(g)
	require.NoError(t, err)
	assert.Equal(t, 4, forced.Count(KindInline))
}

func TestPlan_ExcludeDependencies(t *testing.T) {
	g := buildGraph(t, packageTree)

	p, err := NewEngine(Options{Strategy: StrategyInline, Exclude: graph.Matcher{"lod*", "tiny"}}).Plan(g)
	require.NoError(t, err)

	assert.Equal(t, Inclusion{Kind: KindExternalized, Alias: "_", Reason: "excluded dependency"}, p.Decision("/node_modules/lodash/lodash.js"))
	assert.Equal(t, Inclusion{Kind: KindExternalized, Reason: "excluded dependency"}, p.Decision("/node_modules/tiny/index.js"))
	assert.Equal(t, KindExcluded, p.Decision("/node_modules/lodash/internal.js").Kind)

	require.Len(t, p.Issues, 1)
	assert.Equal(t, report.Warning, p.Issues[0].Level)
	assert.Equal(t, report.CodeExcluded, p.Issues[0].Code)
	assert.Contains(t, p.Issues[0].Message, "tiny")
}

func TestPlan_SizeBudget(t *testing.T) {
	files := map[string]string{
		"/index.js":                         "module.exports = require('lodash');\n",
		"/node_modules/lodash/package.json": `{"name": "lodash", "main": "lodash.js"}`,
		"/node_modules/lodash/lodash.js":    strings.Repeat("// padding\n", 200) + "module.exports = {};\n",
	}
	g := buildGraph(t, files)

	p, err := NewEngine(Options{Strategy: StrategyInline, MaxSize: 1000}).Plan(g)
	var tooLarge *BundleTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.ErrorIs(t, err, ErrBundleTooLarge)
	assert.Equal(t, int64(1000), tooLarge.MaxSize)
	assert.Equal(t, g.TotalSize(), tooLarge.Size)
	assert.NotNil(t, p)

	p, err = NewEngine(Options{Strategy: StrategyHybrid, MaxSize: 1000}).Plan(g)
	require.NoError(t, err)
	assert.Equal(t, KindExternalized, p.Decision("/node_modules/lodash/lodash.js").Kind)
	assert.Equal(t, int64(len(files["/index.js"])), p.Size)

	_, err = NewEngine(Options{Strategy: StrategyHybrid, MaxSize: 1000, Aliases: AliasTable{}}).Plan(g)
	assert.ErrorIs(t, err, ErrBundleTooLarge)
}

func TestPlan_CycleOrder(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"/index.js": "module.exports = require('./a');\n",
		"/a.js":     "const b = require('./b');\nexports.a = function () { return b.b; };\n",
		"/b.js":     "const a = require('./a');\nexports.b = function () { return a.a; };\n",
	})

	p, err := NewEngine(Options{Strategy: StrategyInline}).Plan(g)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{ID: "/a.js", Stub: true},
		{ID: "/b.js"},
		{ID: "/a.js"},
		{ID: "/index.js"},
	}, p.Order)
	assert.Equal(t, 1, p.Stubs())
}

func TestPlan_DiamondOrder(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"/index.js":  "require('./left');\nrequire('./right');\n",
		"/left.js":   "require('./shared');\n",
		"/right.js":  "require('./shared');\n",
		"/shared.js": "exports.x = 1;\n",
	})

	p, err := NewEngine(Options{}).Plan(g)
	require.NoError(t, err)

	assert.Equal(t, []Entry{{ID: "/shared.js"}, {ID: "/left.js"}, {ID: "/right.js"}, {ID: "/index.js"}}, p.Order)
}

func TestAliasTable(t *testing.T) {
	table := DefaultAliases().Merge(map[string]string{"lodash": "lodash", "d3": "d3"})

	alias, ok := table.Lookup("lodash")
	assert.True(t, ok)
	assert.Equal(t, "lodash", alias)
	_, ok = table.Lookup("lodash/fp")
	assert.False(t, ok)
	assert.Contains(t, table.Names(), "d3")

	original, _ := DefaultAliases().Lookup("lodash")
	assert.Equal(t, "_", original)
}

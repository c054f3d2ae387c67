package converter

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/pakto/internal/bundler"
	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/manifest"
	"github.com/fluxbase-eu/pakto/internal/polyfills"
	"github.com/fluxbase-eu/pakto/internal/report"
	"github.com/fluxbase-eu/pakto/internal/source"
)

const rootManifest = `{"name": "demo-lib", "version": "1.2.3", "main": "index.js"}`

func load(t *testing.T, files map[string]string) *Package {
	t.Helper()
	fs := afero.NewMemMapFs()
	if _, ok := files["/pkg/package.json"]; !ok {
		files["/pkg/package.json"] = rootManifest
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	pkg, err := Load(fs, "/pkg")
	require.NoError(t, err)
	return pkg
}

func newConverter(t *testing.T, opts Options) *Converter {
	t.Helper()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/pkg/package.json", []byte(`{"version": "1.0.0"}`), 0o644))

	_, err := Load(fs, "/pkg")
	assert.ErrorIs(t, err, manifest.ErrNoName)

	_, err = Load(fs, "/missing")
	assert.Error(t, err)
}

func TestNew_BadMapping(t *testing.T) {
	_, err := New(Options{PolyfillMappings: map[string]string{"zlib": "pako"}})
	assert.ErrorIs(t, err, polyfills.ErrUnknownPolyfill)
}

func TestConvert_Idempotent(t *testing.T) {
	files := map[string]string{
		"/pkg/index.js":                      "const dep = require('dep');\nconst a = require('./a');\nmodule.exports = { dep, a };\n",
		"/pkg/a.js":                          "const b = require('./b');\nexports.a = function () { return b.b(); };\n",
		"/pkg/b.js":                          "const a = require('./a');\nexports.b = function () { return typeof a.a; };\n",
		"/pkg/node_modules/dep/package.json": `{"name": "dep", "main": "lib.js"}`,
		"/pkg/node_modules/dep/lib.js":       "module.exports = 42;\n",
	}
	c := newConverter(t, Options{Strategy: bundler.StrategyInline})

	first, err := c.Convert(load(t, files))
	require.NoError(t, err)
	second, err := c.Convert(load(t, files))
	require.NoError(t, err)

	assert.Equal(t, first.Output, second.Output)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "demo-lib", first.Package)
	assert.Equal(t, "1.2.3", first.Version)
	assert.Contains(t, first.Output, `__pakto.stub("/pkg/a.js");`)
	assert.Contains(t, first.Output, `root["demo-lib"] = __pakto.requireDefault("/pkg/index.js");`)

	assert.Equal(t, Stats{
		SizeBefore:  first.Stats.SizeBefore,
		SizeAfter:   first.Stats.SizeBefore,
		OutputBytes: len(first.Output),
		Nodes:       4,
		Inline:      4,
		Stubs:       1,
	}, first.Stats)

	cycles := 0
	for _, i := range first.Report.Issues {
		if i.Code == report.CodeCycle {
			cycles++
			assert.Equal(t, report.Info, i.Level)
		}
	}
	assert.Equal(t, 1, cycles)
}

func TestConvert_Reachability(t *testing.T) {
	files := map[string]string{
		"/pkg/index.js": "const m = require('./m');\nexports.x = 1;\n",
		"/pkg/m.js":     "exports.y = 2;\n",
	}

	tests := []struct {
		strategy bundler.Strategy
		included bool
	}{
		{strategy: bundler.StrategyInline, included: true},
		{strategy: bundler.StrategySelective, included: false},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			res, err := newConverter(t, Options{Strategy: tt.strategy}).Convert(load(t, files))
			require.NoError(t, err)
			assert.Equal(t, tt.included, strings.Contains(res.Output, `__pakto.define("/pkg/m.js"`))
			assert.Equal(t, tt.included, res.Plan.Inline("/pkg/m.js"))
		})
	}
}

func TestConvert_PolyfillMinimality(t *testing.T) {
	files := map[string]string{
		"/pkg/index.js": "const hash = require('./hash');\nexports.x = 1;\n",
		"/pkg/hash.js":  "const crypto = require('crypto');\nexports.digest = crypto.createHash;\n",
	}

	inline, err := newConverter(t, Options{Strategy: bundler.StrategyInline}).Convert(load(t, files))
	require.NoError(t, err)
	require.Len(t, inline.Polyfills, 1)
	assert.Equal(t, "crypto", inline.Polyfills[0].Name)
	assert.Contains(t, inline.Output, "var cryptoPolyfill = ")

	selective, err := newConverter(t, Options{Strategy: bundler.StrategySelective}).Convert(load(t, files))
	require.NoError(t, err)
	assert.Empty(t, selective.Polyfills)
	assert.NotContains(t, selective.Output, "cryptoPolyfill")
}

func TestConvert_SizeBudget(t *testing.T) {
	files := map[string]string{
		"/pkg/index.js":                      "module.exports = require('big');\n",
		"/pkg/node_modules/big/package.json": `{"name": "big"}`,
		"/pkg/node_modules/big/index.js":     "module.exports = '" + strings.Repeat("x", 2000) + "';\n",
	}

	res, err := newConverter(t, Options{Strategy: bundler.StrategyInline, MaxSize: 500}).Convert(load(t, files))
	require.ErrorIs(t, err, bundler.ErrBundleTooLarge)
	require.NotNil(t, res)
	assert.Empty(t, res.Output)
	assert.False(t, res.Report.Feasible)

	res, err = newConverter(t, Options{
		Strategy: bundler.StrategyHybrid,
		MaxSize:  500,
		Globals:  map[string]string{"big": "Big"},
	}).Convert(load(t, files))
	require.NoError(t, err)
	assert.Equal(t, bundler.KindExternalized, res.Plan.Decision("/pkg/node_modules/big/index.js").Kind)
	assert.Contains(t, res.Output, `module.exports = __pakto.global("Big", "big");`)
	assert.LessOrEqual(t, res.Stats.SizeAfter, int64(500))
}

func TestConvert_Feasibility(t *testing.T) {
	tests := []struct {
		name     string
		index    string
		feasible bool
		level    report.Level
	}{
		{
			name:     "top level fs",
			index:    "const fs = require('fs');\nmodule.exports = fs.readFileSync('x');\n",
			feasible: false,
			level:    report.Fatal,
		},
		{
			name:     "fs inside an uncalled function",
			index:    "exports.x = 1;\nexports.read = function () { return require('fs').readFileSync('x'); };\n",
			feasible: true,
			level:    report.Warning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := map[string]string{"/pkg/index.js": tt.index}
			c := newConverter(t, Options{Strategy: bundler.StrategySelective})

			a, err := c.Analyze(load(t, files))
			require.NoError(t, err)
			assert.Equal(t, tt.feasible, a.Report.Feasible)

			var fsIssue *report.Issue
			for i := range a.Report.Issues {
				if a.Report.Issues[i].API == "fs" {
					fsIssue = &a.Report.Issues[i]
				}
			}
			require.NotNil(t, fsIssue)
			assert.Equal(t, tt.level, fsIssue.Level)

			res, err := c.Convert(load(t, files))
			if tt.feasible {
				require.NoError(t, err)
				assert.NotEmpty(t, res.Output)
				return
			}
			require.ErrorIs(t, err, polyfills.ErrUnsupportedAPI)
			assert.Empty(t, res.Output)
		})
	}
}

func TestConvert_Options(t *testing.T) {
	files := map[string]string{
		"/pkg/index.js":                         "const React = require('react');\nconst _ = require('lodash');\nmodule.exports = { React, _ };\n",
		"/pkg/package.json":                     `{"name": "widget", "version": "0.1.0", "peerDependencies": {"react": "^18"}}`,
		"/pkg/node_modules/lodash/package.json": `{"name": "lodash"}`,
		"/pkg/node_modules/lodash/index.js":     "module.exports = {};\n",
	}
	c := newConverter(t, Options{
		Name:      "Widget",
		Namespace: "Acme",
		Strategy:  bundler.StrategyInline,
		Exclude:   []string{"lodash"},
		Include:   []string{"events"},
		Target:    source.ES5,
	})

	res, err := c.Convert(load(t, files))
	require.NoError(t, err)

	assert.Contains(t, res.Output, `const React = __pakto.global("React", "react");`)
	assert.Contains(t, res.Output, `const _ = __pakto.global("_", "lodash");`)
	assert.Contains(t, res.Output, `root["Acme"]["Widget"] = __pakto.requireDefault("/pkg/index.js");`)
	require.Len(t, res.Polyfills, 1)
	assert.Equal(t, polyfills.OriginExplicit, res.Polyfills[0].Origin)
	assert.Equal(t, 2, res.Stats.Externalized)
}

func TestConvert_UnresolvedImport(t *testing.T) {
	files := map[string]string{"/pkg/index.js": "module.exports = require('nowhere');\n"}

	_, err := newConverter(t, Options{}).Convert(load(t, files))
	assert.ErrorIs(t, err, graph.ErrUnresolvedImport)
}

func TestConvert_RequireInTemplateSubstitution(t *testing.T) {
	t.Run("local module", func(t *testing.T) {
		files := map[string]string{
			"/pkg/index.js": "module.exports = `v=${require('./t').v}`;\n",
			"/pkg/t.js":     "exports.v = 1;\n",
		}

		res, err := newConverter(t, Options{Strategy: bundler.StrategyInline}).Convert(load(t, files))
		require.NoError(t, err)

		require.NotNil(t, res.Graph.Node("/pkg/t.js"))
		assert.Equal(t, 2, res.Stats.Nodes)
		assert.Contains(t, res.Output, `__pakto.define("/pkg/t.js"`)
		assert.Contains(t, res.Output, "`v=${__pakto.require(\"/pkg/t.js\").v}`")
	})

	t.Run("top level fs", func(t *testing.T) {
		files := map[string]string{
			"/pkg/index.js": "module.exports = `fs=${typeof require('fs')}`;\n",
		}
		c := newConverter(t, Options{Strategy: bundler.StrategyInline})

		a, err := c.Analyze(load(t, files))
		require.NoError(t, err)
		assert.False(t, a.Report.Feasible)
		assert.Equal(t, source.FormatCommonJS, a.Graph.Node("/pkg/index.js").File.Format)

		_, err = c.Convert(load(t, files))
		assert.ErrorIs(t, err, polyfills.ErrUnsupportedAPI)
	})
}

package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const umdWithRequire = `(function (root, factory) {
  if (typeof define === 'function' && define.amd) {
    define(['dep'], factory);
  } else if (typeof module === 'object' && module.exports) {
    module.exports = factory(require('dep'));
  } else {
    root.Lib = factory(root.Dep);
  }
}(this, function (dep) { return {}; }));
`

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Format
	}{
		{
			name: "umd wrapper with internal require",
			text: umdWithRequire,
			want: FormatUMD,
		},
		{
			name: "esm import and export",
			text: "import x from './x.js';\nexport const y = x;\n",
			want: FormatESM,
		},
		{
			name: "esm export only",
			text: "export default 42;\n",
			want: FormatESM,
		},
		{
			name: "module keywords inside comments and strings",
			text: "// import x from 'y'\nconst s = \"export default 1\";\nmodule.exports = s;\n",
			want: FormatCommonJS,
		},
		{
			name: "require call",
			text: "const a = require('./a');\n",
			want: FormatCommonJS,
		},
		{
			name: "exports member",
			text: "exports.foo = 1;\n",
			want: FormatCommonJS,
		},
		{
			name: "dynamic import only",
			text: "import('./lazy.js').then(function (m) { m.run(); });\n",
			want: FormatUnknown,
		},
		{
			name: "method named require",
			text: "loader.require('x');\n",
			want: FormatUnknown,
		},
		{
			name: "plain script",
			text: "var x = 1;\n",
			want: FormatUnknown,
		},
		{
			name: "nested import keyword is not esm",
			text: "var o = { import: 1 };\n",
			want: FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestFormat_String(t *testing.T) {
	assert.Equal(t, "commonjs", FormatCommonJS.String())
	assert.Equal(t, "umd", FormatUMD.String())
	assert.Equal(t, "format(42)", Format(42).String())
}

func TestParse_JSON(t *testing.T) {
	f := Parse("/data.json", `{"require": "x"}`)

	assert.Equal(t, FormatJSON, f.Format)
	assert.Empty(t, f.Imports)
	assert.True(t, f.Exports.Dynamic)
}

func TestParse_UMDRequiresAreLoadTime(t *testing.T) {
	f := Parse("/umd.js", umdWithRequire)

	if assert.Len(t, f.Imports, 1) {
		assert.Equal(t, "dep", f.Imports[0].Specifier)
		assert.True(t, f.Imports[0].TopLevel)
	}
	assert.True(t, f.Exports.Dynamic)
}

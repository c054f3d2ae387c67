package emit

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeGlobalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "my-package", want: "MyPackage"},
		{in: "@types/node", want: "TypesNode"},
		{in: "123invalid", want: "_123Invalid"},
		{in: "lodash.debounce", want: "LodashDebounce"},
		{in: "jQuery", want: "JQuery"},
		{in: "base64", want: "Base64"},
		{in: "---", want: "Bundle"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeGlobalName(tt.in))
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		version string
		want    string
	}{
		{pattern: "", name: "lodash", version: "4.17.21", want: "lodash.bundle.js"},
		{pattern: "{name}-{version}.js", name: "@acme/ui", version: "1.0.0", want: "acme-ui-1.0.0.js"},
		{pattern: "vendor.js", name: "x", version: "1", want: "vendor.js"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.pattern, tt.name, tt.version))
		})
	}
}

func TestRender_Banner(t *testing.T) {
	e, err := New(Options{})
	require.NoError(t, err)

	out, err := e.Render("var a = 1;\n", Meta{
		Name:        "demo",
		Version:     "1.0.0",
		Description: "A demo",
		Target:      "es5",
		Strategy:    "inline",
		Polyfills:   []string{"buffer", "events"},
	})
	require.NoError(t, err)

	assert.Equal(t, `/**
 * demo v1.0.0 - Browser Bundle
 * A demo
 * Target: es5, strategy: inline
 * Polyfills: buffer, events
 * Generated by Pakto
 */
var a = 1;
`, out)
}

func TestRender_Deterministic(t *testing.T) {
	e, err := New(Options{})
	require.NoError(t, err)
	meta := Meta{Name: "demo", Target: "es5", Strategy: "inline"}

	first, err := e.Render("var a = 1;\n", meta)
	require.NoError(t, err)
	second, err := e.Render("var a = 1;\n", meta)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_CustomBannerAndNoBanner(t *testing.T) {
	e, err := New(Options{BannerTemplate: "// {{.Name}}@{{.Version}}"})
	require.NoError(t, err)
	out, err := e.Render("var a = 1;", Meta{Name: "x", Version: "2"})
	require.NoError(t, err)
	assert.Equal(t, "// x@2\nvar a = 1;", out)

	e, err = New(Options{NoBanner: true})
	require.NoError(t, err)
	out, err = e.Render("var a = 1;", Meta{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "var a = 1;", out)

	_, err = New(Options{BannerTemplate: "{{.Name"})
	assert.Error(t, err)
}

func TestRender_Minify(t *testing.T) {
	e, err := New(Options{Minify: true, NoBanner: true})
	require.NoError(t, err)

	code := "(function () {\n  var longName = 1;\n  return longName + 1;\n})();\n"
	out, err := e.Render(code, Meta{})
	require.NoError(t, err)
	assert.Less(t, len(out), len(code))
	assert.NotContains(t, out, "longName")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("var a = { b: [1, 2] };"))

	err := Validate("var a = {;")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Contains(t, err.Error(), "line 1")
}

func TestWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "/out/dist")

	p, err := w.Write("demo.bundle.js", []byte("var a;"))
	require.NoError(t, err)
	assert.Equal(t, "/out/dist/demo.bundle.js", p)

	data, err := afero.ReadFile(fs, p)
	require.NoError(t, err)
	assert.Equal(t, "var a;", string(data))
}

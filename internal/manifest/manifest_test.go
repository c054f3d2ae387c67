package manifest

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`{
		"name": "widget",
		"version": "1.2.3",
		"main": "lib/index.js",
		"module": "es/index.js",
		"dependencies": {"lodash": "^4.17.0"},
		"peerDependencies": {"react": ">=16"},
		"optionalDependencies": {"fsevents": "*"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "widget", m.Name)
	assert.Equal(t, "es/index.js", m.Entry())
	assert.Equal(t, []string{"fsevents", "react"}, m.Externals())
	assert.Equal(t, []string{"lodash"}, m.DependencyNames())
	assert.NoError(t, m.Validate())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"name": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse package.json")
}

func TestBrowserEntry(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{name: "string form", json: `{"browser": "dist/browser.js", "main": "index.js"}`, want: "dist/browser.js"},
		{name: "map form", json: `{"browser": {"./fs.js": false}, "main": "index.js"}`, want: ""},
		{name: "absent", json: `{"main": "index.js"}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.BrowserEntry())
		})
	}
}

func TestEntry_Default(t *testing.T) {
	assert.Equal(t, "index.js", (&Manifest{}).Entry())
}

func TestValidate_NoName(t *testing.T) {
	assert.ErrorIs(t, (&Manifest{Name: " "}).Validate(), ErrNoName)
}

func TestRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/pkg/package.json", []byte(`{"name":"pkg"}`), 0o644))

	m, err := Read(fs, "/pkg")
	require.NoError(t, err)
	assert.Equal(t, "pkg", m.Name)

	_, err = Read(fs, "/missing")
	assert.Error(t, err)
}

func TestPackageName(t *testing.T) {
	tests := map[string]string{
		"lodash":                   "lodash",
		"lodash/fp/map":            "lodash",
		"@babel/core":              "@babel/core",
		"@babel/core/lib/index.js": "@babel/core",
	}
	for in, want := range tests {
		assert.Equal(t, want, PackageName(in), in)
	}
	assert.True(t, IsBare("react"))
	assert.False(t, IsBare("./local"))
	assert.False(t, IsBare("/abs"))
}

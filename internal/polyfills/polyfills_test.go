package polyfills

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T, mappings map[string]string) *Catalog {
	t.Helper()
	c, err := NewCatalog(mappings)
	require.NoError(t, err)
	return c
}

func TestCatalog(t *testing.T) {
	c := newCatalog(t, map[string]string{"string_decoder": "buffer"})

	assert.Equal(t, []string{"buffer", "crypto", "events", "path", "process", "string_decoder", "util"}, c.APIs())

	for _, api := range c.APIs() {
		a, ok := c.Lookup(api)
		require.True(t, ok, api)
		assert.True(t, strings.HasPrefix(a.Source, "var "+a.Identifier+" = "), api)
	}

	a, ok := c.Lookup("string_decoder")
	require.True(t, ok)
	assert.Equal(t, "buffer", a.Name)
	assert.False(t, c.Has("fs"))

	events, ok := c.Asset("events")
	require.True(t, ok)
	assert.Contains(t, events.Source, "EventEmitter.EventEmitter = EventEmitter")
}

func TestCatalog_BadMapping(t *testing.T) {
	_, err := NewCatalog(map[string]string{"zlib": "pako"})
	assert.ErrorIs(t, err, ErrUnknownPolyfill)
}

func TestInject(t *testing.T) {
	c := newCatalog(t, map[string]string{"string_decoder": "buffer"})
	inj := NewInjector(c)

	tests := []struct {
		name    string
		req     Request
		want    []Binding
		wantErr error
	}{
		{
			name: "nothing used",
			req:  Request{},
			want: []Binding{},
		},
		{
			name: "inferred and explicit",
			req:  Request{Used: []string{"process", "events", "os"}, Explicit: []string{"buffer"}},
			want: []Binding{
				{Name: "buffer", Satisfies: []string{"buffer"}, Identifier: "BufferPolyfill", Origin: OriginExplicit},
				{Name: "events", Satisfies: []string{"events"}, Identifier: "EventEmitterPolyfill", Origin: OriginInferred},
				{Name: "process", Satisfies: []string{"process"}, Identifier: "processPolyfill", Origin: OriginInferred},
			},
		},
		{
			name: "mapped built-ins share one binding",
			req:  Request{Used: []string{"string_decoder", "buffer"}, Defaults: []string{"buffer"}},
			want: []Binding{
				{Name: "buffer", Satisfies: []string{"buffer", "string_decoder"}, Identifier: "BufferPolyfill", Origin: OriginDefault},
			},
		},
		{
			name: "excludes drop inferred",
			req:  Request{Used: []string{"crypto"}, Excludes: []string{"crypto"}},
			want: []Binding{},
		},
		{
			name:    "fatal without polyfill",
			req:     Request{Used: []string{"fs"}, Fatal: map[string][]string{"fs": {"/index.js"}}},
			wantErr: ErrUnsupportedAPI,
		},
		{
			name:    "fatal survives excludes",
			req:     Request{Used: []string{"fs"}, Excludes: []string{"fs"}, Fatal: map[string][]string{"fs": {"/index.js"}}},
			wantErr: ErrUnsupportedAPI,
		},
		{
			name:    "unknown explicit polyfill",
			req:     Request{Explicit: []string{"zlib"}},
			wantErr: ErrUnknownPolyfill,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inj.Inject(tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for i := range got {
				require.NotNil(t, got[i].Asset)
				got[i].Asset = nil
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnsupportedAPIError(t *testing.T) {
	err := &UnsupportedAPIError{API: "child_process", Modules: []string{"/a.js", "/b.js"}}

	assert.Equal(t, "child_process is required at load time by /a.js, /b.js and has no browser polyfill", err.Error())
}

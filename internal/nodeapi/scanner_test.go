package nodeapi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan(t *testing.T) {
	code := "process.env.X; a.process.y; function f() { Buffer.from('x'); }"
	refs := []Ref{
		{Specifier: "fs", TopLevel: false},
		{Specifier: "node:fs", TopLevel: true},
		{Specifier: "lodash", TopLevel: true},
	}
	lazyFrom := strings.Index(code, "{")
	lazy := func(pos int) bool { return pos > lazyFrom }

	got := Scan(code, refs, lazy)

	assert.Equal(t, []Usage{
		{Name: "buffer", TopLevel: false, Global: true},
		{Name: "fs", Specifier: "node:fs", TopLevel: true},
		{Name: "process", TopLevel: true, Global: true},
	}, got)
	assert.Equal(t, []string{"buffer", "fs", "process"}, Names(got))
}

func TestScan_NilLazyIsTopLevel(t *testing.T) {
	got := Scan("function f() { return process.cwd(); }", nil, nil)

	if assert.Len(t, got, 1) {
		assert.True(t, got[0].TopLevel)
	}
}

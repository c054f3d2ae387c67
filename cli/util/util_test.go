package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withInput(t *testing.T, in string) *bytes.Buffer {
	t.Helper()
	oldIn, oldPrompt := stdin, prompt
	var out bytes.Buffer
	stdin, prompt = strings.NewReader(in), &out
	t.Cleanup(func() { stdin, prompt = oldIn, oldPrompt })
	return &out
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", MaskToken("short"))
	assert.Equal(t, "npm_****cdef", MaskToken("npm_0123cdef"))
}

func TestReadLine(t *testing.T) {
	out := withInput(t, "  hello \n")
	line, err := ReadLine("Name: ")
	require.NoError(t, err)
	assert.Equal(t, "hello", line)
	assert.Equal(t, "Name: ", out.String())
}

func TestReadToken_Piped(t *testing.T) {
	withInput(t, "npm_secret")
	token, err := ReadToken("Token: ")
	require.NoError(t, err)
	assert.Equal(t, "npm_secret", token)

	withInput(t, "")
	_, err = ReadToken("Token: ")
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in         string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.in), func(t *testing.T) {
			withInput(t, tt.in)
			got, err := Confirm("Overwrite?", tt.defaultYes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestRegistryKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://registry.npmjs.org", "registry.npmjs.org"},
		{"https://registry.npmjs.org/", "registry.npmjs.org"},
		{"registry.npmjs.org", "registry.npmjs.org"},
		{"https://NPM.Example.com:8443/repo/npm/", "npm.example.com:8443/repo/npm"},
		{"http://localhost:4873", "localhost:4873"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RegistryKey(tt.in))
		})
	}
}

func TestKeychainStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeychainStore()

	token, err := store.Load("https://registry.npmjs.org")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("https://registry.npmjs.org/", "npm_secret"))
	token, err = store.Load("registry.npmjs.org")
	require.NoError(t, err)
	assert.Equal(t, "npm_secret", token)

	assert.Error(t, store.Save("registry.npmjs.org", ""))

	require.NoError(t, store.Delete("registry.npmjs.org"))
	require.NoError(t, store.Delete("registry.npmjs.org"))
	token, err = store.Load("registry.npmjs.org")
	require.NoError(t, err)
	assert.Empty(t, token)
}

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/pakto/internal/config"
)

// exercise runs the behavior every backend shares.
func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, MetadataKey("lodash"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, MetadataKey("lodash"), []byte(`{"name":"lodash"}`)))
	require.NoError(t, c.Set(ctx, TarballKey("@scope/pkg", "1.0.0"), []byte{0x1f, 0x8b}))

	v, ok, err := c.Get(ctx, MetadataKey("lodash"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"lodash"}`, string(v))

	require.NoError(t, c.Delete(ctx, MetadataKey("lodash")))
	_, ok, err = c.Get(ctx, MetadataKey("lodash"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	_, ok, err = c.Get(ctx, TarballKey("@scope/pkg", "1.0.0"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Close())
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory(16, time.Hour))
}

func TestMemory_Evicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Hour)

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	require.NoError(t, m.Set(ctx, "c", []byte("3")))

	assert.Equal(t, 2, m.Len())
	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
}

func TestDisk(t *testing.T) {
	exercise(t, NewDisk(afero.NewMemMapFs(), "/cache", time.Hour))
}

func TestDisk_Expiry(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	d := NewDisk(fs, "/cache", time.Hour)

	require.NoError(t, d.Set(ctx, "k", []byte("v")))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, fs.Chtimes(d.path("k"), old, old))

	_, ok, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := afero.Exists(fs, d.path("k"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTiered(t *testing.T) {
	exercise(t, NewTiered(NewMemory(4, time.Hour), NewDisk(afero.NewMemMapFs(), "/cache", time.Hour)))
}

func TestTiered_FillsFront(t *testing.T) {
	ctx := context.Background()
	front := NewMemory(4, time.Hour)
	back := NewMemory(4, time.Hour)
	require.NoError(t, back.Set(ctx, "k", []byte("v")))

	v, ok, err := NewTiered(front, back).Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(v))

	_, ok, _ = front.Get(ctx, "k")
	assert.True(t, ok)
}

func TestHashKey(t *testing.T) {
	a := hashKey(TarballKey("@scope/pkg", "1.0.0"))
	assert.Regexp(t, `^tarball-[0-9a-f]{64}$`, a)
	assert.NotEqual(t, a, hashKey(TarballKey("@scope/pkg", "1.0.1")))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CacheConfig
		want    any
		wantErr string
	}{
		{name: "disabled", cfg: config.CacheConfig{Enabled: false}, want: Nop{}},
		{name: "memory", cfg: config.CacheConfig{Enabled: true, Backend: "memory", MaxEntries: 8, TTL: time.Hour}, want: &Memory{}},
		{name: "disk", cfg: config.CacheConfig{Enabled: true, Backend: "disk", Dir: t.TempDir(), TTL: time.Hour}, want: &Disk{}},
		{name: "redis without url", cfg: config.CacheConfig{Enabled: true, Backend: "redis"}, wantErr: "redis_url is required"},
		{name: "unknown", cfg: config.CacheConfig{Enabled: true, Backend: "etcd"}, wantErr: "unknown cache backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(&tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, c)
		})
	}
}

func TestRedis(t *testing.T) {
	url := os.Getenv("PAKTO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PAKTO_TEST_REDIS_URL not set")
	}
	r, err := NewRedis(url, time.Minute)
	require.NoError(t, err)
	exercise(t, r)
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func osFs() afero.Fs {
	return afero.NewOsFs()
}

// Disk keeps one file per key under a directory. Expiry uses the file's
// modification time.
type Disk struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
}

// NewDisk creates a disk cache rooted at dir.
func NewDisk(fs afero.Fs, dir string, ttl time.Duration) *Disk {
	return &Disk{fs: fs, dir: dir, ttl: ttl}
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.dir, hashKey(key))
}

func (d *Disk) Get(_ context.Context, key string) ([]byte, bool, error) {
	p := d.path(key)
	info, err := d.fs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if expired(info.ModTime(), d.ttl) {
		log.Debug().Str("key", key).Msg("Disk cache entry expired")
		_ = d.fs.Remove(p)
		return nil, false, nil
	}
	data, err := afero.ReadFile(d.fs, p)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return data, true, nil
}

// Set writes to a temporary file and renames it so readers never see a
// partial entry.
func (d *Disk) Set(_ context.Context, key string, value []byte) error {
	if err := d.fs.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	p := d.path(key)
	tmp := p + ".tmp"
	if err := afero.WriteFile(d.fs, tmp, value, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := d.fs.Rename(tmp, p); err != nil {
		_ = d.fs.Remove(tmp)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	err := d.fs.Remove(d.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Disk) Clear(context.Context) error {
	if err := d.fs.RemoveAll(d.dir); err != nil {
		return fmt.Errorf("failed to clear cache directory: %w", err)
	}
	log.Info().Str("dir", d.dir).Msg("Disk cache cleared")
	return nil
}

func (d *Disk) Close() error {
	return nil
}

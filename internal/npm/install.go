package npm

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/fluxbase-eu/pakto/internal/manifest"
)

// Fetcher is the registry surface the installer needs.
type Fetcher interface {
	Packument(ctx context.Context, name string) (*Packument, error)
	Tarball(ctx context.Context, name, version, tarballURL string) ([]byte, error)
}

// Installation is a package tree laid out for the resolver: the root package
// at / and every transitive dependency flat under /node_modules.
type Installation struct {
	FS       afero.Fs
	Root     string
	Manifest *manifest.Manifest
	// Packages maps every installed dependency to its version.
	Packages map[string]string
	// Size is the number of extracted bytes.
	Size int64
}

// Installer downloads a package and its dependencies.
type Installer struct {
	fetcher Fetcher
	workers int
}

// NewInstaller creates an installer running up to workers downloads at once.
func NewInstaller(f Fetcher, workers int) *Installer {
	if workers < 1 {
		workers = 1
	}
	return &Installer{fetcher: f, workers: workers}
}

type job struct {
	name string
	rng  string
}

// Install fetches spec and its runtime dependencies. The first range claimed
// for a name wins; later conflicting ranges are logged. Peer and optional
// dependencies are left to the host and not installed.
func (i *Installer) Install(ctx context.Context, spec Spec) (*Installation, error) {
	fs := afero.NewMemMapFs()
	inst := &Installation{FS: fs, Root: "/", Packages: make(map[string]string)}

	root, size, err := i.fetch(ctx, fs, "/", job{name: spec.Name, rng: spec.Range})
	if err != nil {
		return nil, err
	}
	inst.Manifest = root
	inst.Size = size

	claimed := map[string]string{root.Name: root.Version}
	level := i.next(root, claimed)
	for len(level) > 0 {
		var mu sync.Mutex
		var found []*manifest.Manifest

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(i.workers)
		for _, j := range level {
			j := j
			g.Go(func() error {
				m, n, err := i.fetch(gctx, fs, path.Join("/node_modules", j.name), j)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				found = append(found, m)
				inst.Packages[m.Name] = m.Version
				inst.Size += n
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		sort.Slice(found, func(a, b int) bool { return found[a].Name < found[b].Name })
		level = nil
		for _, m := range found {
			level = append(level, i.next(m, claimed)...)
		}
	}

	log.Info().
		Str("package", root.Name).
		Str("version", root.Version).
		Int("dependencies", len(inst.Packages)).
		Int64("bytes", inst.Size).
		Msg("Package installed")
	return inst, nil
}

// next claims the not yet installed dependencies of m, in name order.
func (i *Installer) next(m *manifest.Manifest, claimed map[string]string) []job {
	var jobs []job
	for _, name := range m.DependencyNames() {
		rng := m.Dependencies[name]
		if v, ok := claimed[name]; ok {
			if v != rng {
				log.Debug().Str("package", name).Str("wanted", rng).Str("by", m.Name).Msg("Dependency already claimed by another range")
			}
			continue
		}
		claimed[name] = rng
		jobs = append(jobs, job{name: name, rng: rng})
	}
	return jobs
}

func (i *Installer) fetch(ctx context.Context, fs afero.Fs, dir string, j job) (*manifest.Manifest, int64, error) {
	p, err := i.fetcher.Packument(ctx, j.name)
	if err != nil {
		return nil, 0, err
	}
	m, err := p.Resolve(j.rng)
	if err != nil {
		return nil, 0, err
	}
	if m.Dist == nil || m.Dist.Tarball == "" {
		return nil, 0, &FetchError{Kind: ErrInvalidTarball, Package: j.name, Version: m.Version, Err: errors.New("metadata has no tarball URL")}
	}
	data, err := i.fetcher.Tarball(ctx, j.name, m.Version, m.Dist.Tarball)
	if err != nil {
		return nil, 0, err
	}
	n, err := Extract(data, fs, dir)
	if err != nil {
		return nil, 0, &FetchError{Kind: ErrInvalidTarball, Package: j.name, Version: m.Version, Err: err}
	}

	// The archive's own package.json is authoritative; fall back to the
	// registry's copy when it is missing.
	if installed, err := manifest.Read(fs, dir); err == nil {
		m = installed
	} else {
		log.Debug().Err(err).Str("package", j.name).Msg("Tarball has no readable package.json")
	}
	if m.Name == "" {
		m.Name = j.name
	}
	log.Debug().Str("package", j.name).Str("version", m.Version).Str("dir", dir).Msg("Extracted")
	return m, n, nil
}

// OpenDir exposes a package directory of fs read-only, rooted at /.
func OpenDir(fs afero.Fs, dir string) (afero.Fs, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open package directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return afero.NewReadOnlyFs(afero.NewBasePathFs(fs, dir)), nil
}

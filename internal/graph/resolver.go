package graph

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/fluxbase-eu/pakto/internal/manifest"
)

// TargetKind is the outcome of resolving one specifier.
type TargetKind int

const (
	TargetFile TargetKind = iota
	TargetExternal
	TargetNotFound
)

func (k TargetKind) String() string {
	switch k {
	case TargetFile:
		return "file"
	case TargetExternal:
		return "external"
	default:
		return "not-found"
	}
}

// Target is where a specifier leads. Path is an absolute slash path for
// TargetFile and the specifier itself otherwise.
type Target struct {
	Kind TargetKind
	Path string
}

// Resolver maps a specifier seen in a file under fromDir to a Target.
type Resolver interface {
	Resolve(specifier, fromDir string) (Target, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(specifier, fromDir string) (Target, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(specifier, fromDir string) (Target, error) {
	return f(specifier, fromDir)
}

// Extensions are tried, in order, after the exact path.
var Extensions = []string{".js", ".mjs", ".cjs", ".json"}

var protocols = []string{"http:", "https:", "npm:", "jsr:"}

// FSResolver implements Node's resolution algorithm over an afero file system
// holding the package at / and its dependencies under /node_modules.
type FSResolver struct {
	fs afero.Fs
}

// NewFSResolver creates a resolver over fs.
func NewFSResolver(fs afero.Fs) *FSResolver {
	return &FSResolver{fs: fs}
}

// Resolve implements Resolver.
func (r *FSResolver) Resolve(specifier, fromDir string) (Target, error) {
	for _, p := range protocols {
		if strings.HasPrefix(specifier, p) {
			return Target{Kind: TargetExternal, Path: specifier}, nil
		}
	}

	if !manifest.IsBare(specifier) {
		p := specifier
		if !path.IsAbs(p) {
			p = path.Join(fromDir, p)
		}
		return r.resolvePath(p, specifier)
	}

	for dir := fromDir; ; dir = path.Dir(dir) {
		if path.Base(dir) != "node_modules" {
			t, err := r.resolvePath(path.Join(dir, "node_modules", specifier), specifier)
			if err != nil || t.Kind == TargetFile {
				return t, err
			}
		}
		if dir == "/" || dir == "." {
			break
		}
	}
	return Target{Kind: TargetNotFound, Path: specifier}, nil
}

// ResolvePackage returns the entry file of the package rooted at dir.
func (r *FSResolver) ResolvePackage(dir string) (string, error) {
	t, err := r.resolveDir(dir)
	if err != nil {
		return "", err
	}
	if t == "" {
		return "", fmt.Errorf("%w: %s", ErrRootNotFound, dir)
	}
	return t, nil
}

func (r *FSResolver) resolvePath(p, specifier string) (Target, error) {
	if f := r.resolveFile(p); f != "" {
		return Target{Kind: TargetFile, Path: f}, nil
	}
	f, err := r.resolveDir(p)
	if err != nil {
		return Target{}, err
	}
	if f != "" {
		return Target{Kind: TargetFile, Path: f}, nil
	}
	return Target{Kind: TargetNotFound, Path: specifier}, nil
}

func (r *FSResolver) resolveFile(p string) string {
	if r.isFile(p) {
		return p
	}
	for _, ext := range Extensions {
		if r.isFile(p + ext) {
			return p + ext
		}
	}
	return ""
}

func (r *FSResolver) resolveDir(dir string) (string, error) {
	if !r.isDir(dir) {
		return "", nil
	}
	if r.isFile(path.Join(dir, manifest.FileName)) {
		m, err := manifest.Read(r.fs, dir)
		if err != nil {
			return "", fmt.Errorf("%s: %w", dir, err)
		}
		for _, entry := range []string{m.BrowserEntry(), m.Module, m.Main} {
			if entry == "" {
				continue
			}
			p := path.Join(dir, entry)
			if f := r.resolveFile(p); f != "" {
				return f, nil
			}
			if f := r.resolveIndex(p); f != "" {
				return f, nil
			}
			log.Debug().Str("dir", dir).Str("entry", entry).Msg("Package entry field points at a missing file")
		}
	}
	return r.resolveIndex(dir), nil
}

func (r *FSResolver) resolveIndex(dir string) string {
	for _, ext := range Extensions {
		if p := path.Join(dir, "index"+ext); r.isFile(p) {
			return p
		}
	}
	return ""
}

func (r *FSResolver) isFile(p string) bool {
	info, err := r.fs.Stat(p)
	return err == nil && !info.IsDir()
}

func (r *FSResolver) isDir(p string) bool {
	info, err := r.fs.Stat(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Debug().Err(err).Str("path", p).Msg("Stat failed")
	}
	return err == nil && info.IsDir()
}

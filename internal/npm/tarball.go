package npm

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// maxFileSize bounds a single extracted file.
const maxFileSize = 32 << 20

var skipDirs = map[string]bool{
	"test": true, "tests": true, "__tests__": true, "__mocks__": true,
	"spec": true, "specs": true, "example": true, "examples": true,
	"demo": true, "demos": true, "doc": true, "docs": true,
	"benchmark": true, "benchmarks": true, "coverage": true,
	".github": true, ".git": true, "node_modules": true,
}

var skipExts = []string{".md", ".markdown", ".txt", ".yml", ".yaml", ".map", ".d.ts", ".d.mts", ".d.cts", ".flow"}

var skipBases = []string{"readme", "changelog", "history", "contributing", "license", "licence", "authors"}

// Skip reports whether an extracted path is documentation, tests or tooling
// that a bundle never needs. Only whole path segments are matched, so
// "lib/attest.js" is kept.
func Skip(p string) bool {
	lower := strings.ToLower(p)
	segments := strings.Split(lower, "/")
	for _, dir := range segments[:len(segments)-1] {
		if skipDirs[dir] {
			return true
		}
	}

	base := segments[len(segments)-1]
	if base == "package.json" {
		return false
	}
	for _, ext := range skipExts {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	stem, _, _ := strings.Cut(base, ".")
	for _, b := range skipBases {
		if stem == b {
			return true
		}
	}
	return false
}

// Extract unpacks a gzipped npm tarball into dir, dropping the archive's top
// directory (normally "package/"). It returns the bytes written.
func Extract(data []byte, fs afero.Fs, dir string) (int64, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidTarball, err)
	}
	defer func() { _ = zr.Close() }()

	var written int64
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, fmt.Errorf("%w: %w", ErrInvalidTarball, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(strings.TrimPrefix(hdr.Name, "/"))
		_, rel, ok := strings.Cut(name, "/")
		if !ok || rel == "" || strings.HasPrefix(rel, "../") || rel == ".." {
			continue
		}
		if Skip(rel) {
			continue
		}
		if hdr.Size > maxFileSize {
			return written, fmt.Errorf("%w: %s is %d bytes", ErrInvalidTarball, rel, hdr.Size)
		}

		target := path.Join(dir, rel)
		if err := fs.MkdirAll(path.Dir(target), 0o755); err != nil {
			return written, err
		}
		f, err := fs.Create(target)
		if err != nil {
			return written, err
		}
		n, err := io.Copy(f, io.LimitReader(tr, maxFileSize))
		_ = f.Close()
		if err != nil {
			return written, fmt.Errorf("%w: %w", ErrInvalidTarball, err)
		}
		written += n
	}
	return written, nil
}

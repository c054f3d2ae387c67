// Package emit renders a converted bundle into its final file: banner,
// optional minification and a syntax check.
package emit

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrInvalidOutput is returned when the rendered bundle does not parse.
var ErrInvalidOutput = errors.New("generated bundle is not valid JavaScript")

const defaultBanner = `/**
 * {{.Name}}{{if .Version}} v{{.Version}}{{end}} - Browser Bundle
{{- if .Description}}
 * {{.Description}}
{{- end}}
{{- if .License}}
 * License: {{.License}}
{{- end}}
 * Target: {{.Target}}, strategy: {{.Strategy}}
{{- if .Polyfills}}
 * Polyfills: {{join .Polyfills ", "}}
{{- end}}
 * Generated by Pakto
 */
`

// Meta describes the bundle in its banner.
type Meta struct {
	Name        string
	Version     string
	Description string
	License     string
	Target      string
	Strategy    string
	Polyfills   []string
}

// Options configures rendering.
type Options struct {
	Minify bool
	// NoBanner drops the header comment.
	NoBanner bool
	// BannerTemplate replaces the built-in banner; it is a text/template
	// receiving Meta.
	BannerTemplate string
}

// Emitter renders bundles.
type Emitter struct {
	opts   Options
	banner *template.Template
}

// New parses the banner template.
func New(opts Options) (*Emitter, error) {
	src := defaultBanner
	if opts.BannerTemplate != "" {
		src = opts.BannerTemplate
	}
	tmpl, err := template.New("banner").Funcs(template.FuncMap{"join": strings.Join}).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid banner template: %w", err)
	}
	return &Emitter{opts: opts, banner: tmpl}, nil
}

// Render produces the file contents for code.
func (e *Emitter) Render(code string, meta Meta) (string, error) {
	if e.opts.Minify {
		minified, err := Minify(code)
		if err != nil {
			return "", err
		}
		log.Debug().Int("before", len(code)).Int("after", len(minified)).Msg("Bundle minified")
		code = minified
	}
	if err := Validate(code); err != nil {
		return "", err
	}
	if e.opts.NoBanner {
		return code, nil
	}

	var buf bytes.Buffer
	if err := e.banner.Execute(&buf, meta); err != nil {
		return "", fmt.Errorf("failed to render banner: %w", err)
	}
	if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(code)
	return buf.String(), nil
}

// Minify compresses code without changing its language level.
func Minify(code string) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ESNext,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsNone,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("minification failed: %w", messagesError(result.Errors))
	}
	return string(result.Code), nil
}

// Validate parses code and reports the first syntax error.
func Validate(code string) error {
	result := api.Transform(code, api.TransformOptions{
		Loader:   api.LoaderJS,
		LogLevel: api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOutput, messagesError(result.Errors))
	}
	return nil
}

func messagesError(msgs []api.Message) error {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("line %d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return errors.New(strings.Join(parts, "; "))
}

// Writer stores bundles under a directory.
type Writer struct {
	fs  afero.Fs
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(fs afero.Fs, dir string) *Writer {
	return &Writer{fs: fs, dir: dir}
}

// Write creates the directory if needed and writes name. It returns the
// written path.
func (w *Writer) Write(name string, data []byte) (string, error) {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.dir, err)
	}
	p := filepath.Join(w.dir, name)
	if err := afero.WriteFile(w.fs, p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	log.Debug().Str("path", p).Int("bytes", len(data)).Msg("Bundle written")
	return p, nil
}

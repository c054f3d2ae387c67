// Package output renders command results for the Pakto CLI as aligned tables
// for people or as JSON/YAML documents for scripts.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format represents the output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
	}
}

// TableData is a table to render. Rows without Headers are key/value pairs.
type TableData struct {
	Headers []string
	Rows    [][]string
}

// Tabler is implemented by results that have a table rendering.
type Tabler interface {
	Table() TableData
}

// Formatter writes command results to Writer.
type Formatter struct {
	Format    Format
	NoHeaders bool
	Quiet     bool
	Writer    io.Writer
}

// NewFormatter creates a formatter writing to stdout.
func NewFormatter(format Format, noHeaders, quiet bool) *Formatter {
	return &Formatter{
		Format:    format,
		NoHeaders: noHeaders,
		Quiet:     quiet,
		Writer:    os.Stdout,
	}
}

// Structured reports whether output is meant for machines.
func (f *Formatter) Structured() bool {
	return f.Format == FormatJSON || f.Format == FormatYAML
}

// Print writes data as a document in the structured formats. In table mode a
// Tabler renders as its table and anything else as YAML.
func (f *Formatter) Print(data any) error {
	if f.Quiet {
		return nil
	}
	switch f.Format {
	case FormatJSON:
		return f.writeJSON(data)
	case FormatYAML:
		return f.writeYAML(data)
	}
	if t, ok := data.(Tabler); ok {
		f.PrintTable(t.Table())
		return nil
	}
	return f.writeYAML(data)
}

func (f *Formatter) writeJSON(data any) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) writeYAML(data any) error {
	encoder := yaml.NewEncoder(f.Writer)
	encoder.SetIndent(2)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(data)
}

// PrintTable renders data. Structured formats get a list of header-keyed
// objects, or a single object for key/value tables.
func (f *Formatter) PrintTable(data TableData) {
	if f.Quiet {
		return
	}
	if f.Structured() {
		_ = f.Print(data.records())
		return
	}

	table := tablewriter.NewWriter(f.Writer)
	if !f.NoHeaders && len(data.Headers) > 0 {
		table.SetHeader(data.Headers)
	}
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(data.Rows)
	table.Render()
}

func (d TableData) records() any {
	if len(d.Headers) == 0 {
		pairs := make(map[string]string, len(d.Rows))
		for _, row := range d.Rows {
			if len(row) == 2 {
				pairs[strings.ToLower(row[0])] = row[1]
			}
		}
		return pairs
	}
	rows := make([]map[string]string, len(d.Rows))
	for i, row := range d.Rows {
		rows[i] = make(map[string]string, len(row))
		for j, cell := range row {
			if j < len(d.Headers) {
				rows[i][strings.ToLower(d.Headers[j])] = cell
			}
		}
	}
	return rows
}

// Message prints a line of human-readable status. Structured output and
// quiet mode suppress it.
func (f *Formatter) Message(format string, args ...any) {
	if f.Quiet || f.Structured() {
		return
	}
	_, _ = fmt.Fprintf(f.Writer, format+"\n", args...)
}

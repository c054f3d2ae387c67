package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fluxbase-eu/pakto/internal/bundler"
	"github.com/fluxbase-eu/pakto/internal/graph"
	"github.com/fluxbase-eu/pakto/internal/polyfills"
	"github.com/fluxbase-eu/pakto/internal/report"
)

// maxIssues is how many issues DisplayReport lists without detail.
const maxIssues = 20

// DisplayReport prints a compatibility report. Without detail, info-level
// issues are hidden and the list is capped.
func (f *Formatter) DisplayReport(name string, r *report.Report, detailed bool) {
	if f.Quiet {
		return
	}
	w := f.Writer
	_, _ = fmt.Fprintf(w, "\n=== Compatibility: %s ===\n", name)
	verdict := "yes"
	if !r.Feasible {
		verdict = "no"
	}
	_, _ = fmt.Fprintf(w, "Modules: %d  Score: %.2f  Browser-feasible: %s\n", r.Nodes, r.Score, verdict)
	_, _ = fmt.Fprintf(w, "Issues: %d fatal, %d warning, %d info\n", r.Count(report.Fatal), r.Count(report.Warning), r.Count(report.Info))

	if len(r.RequiredPolyfills) > 0 {
		_, _ = fmt.Fprintf(w, "Polyfills: %s\n", strings.Join(r.RequiredPolyfills, ", "))
	}

	issues := r.Filter(report.Warning)
	if detailed {
		issues = r.Filter(report.Info)
	}
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(w)
		return
	}
	sorted := append([]report.Issue(nil), issues...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level > sorted[j].Level })

	_, _ = fmt.Fprintln(w)
	limit := len(sorted)
	if !detailed && limit > maxIssues {
		limit = maxIssues
	}
	rows := make([][]string, 0, limit)
	for _, i := range sorted[:limit] {
		msg := i.Message
		if detailed && i.Suggestion != "" {
			msg += " (" + i.Suggestion + ")"
		}
		rows = append(rows, []string{strings.ToUpper(i.Level.String()), i.Code, truncatePath(i.Module, 40), msg})
	}
	f.PrintTable(TableData{Headers: []string{"LEVEL", "CODE", "MODULE", "MESSAGE"}, Rows: rows})
	if limit < len(sorted) {
		_, _ = fmt.Fprintf(w, "  ... and %d more issues (use --detailed)\n", len(sorted)-limit)
	}
	_, _ = fmt.Fprintln(w)
}

// DisplayPlan prints the bundle plan: every module in emission order with its
// size, followed by the modules left out of the bundle.
func (f *Formatter) DisplayPlan(g *graph.Graph, p *bundler.Plan, showDetails bool) {
	if f.Quiet {
		return
	}
	w := f.Writer
	_, _ = fmt.Fprintf(w, "\n=== Bundle Plan (%s) ===\n", p.Strategy)
	_, _ = fmt.Fprintf(w, "Inlined size: %s", formatBytesHuman(p.Size))
	if p.MaxSize > 0 {
		_, _ = fmt.Fprintf(w, " of %s budget", formatBytesHuman(p.MaxSize))
	}
	_, _ = fmt.Fprintf(w, "\nModules: %d inline, %d externalized, %d excluded\n",
		p.Count(bundler.KindInline), p.Count(bundler.KindExternalized), p.Count(bundler.KindExcluded))

	maxFiles := 10
	if showDetails {
		maxFiles = len(p.Order)
	}
	if len(p.Order) > 0 {
		_, _ = fmt.Fprintln(w, "\nBundle breakdown:")
		rows := make([][]string, 0, maxFiles)
		for i, e := range p.Order {
			if i >= maxFiles {
				break
			}
			size := "stub"
			if !e.Stub {
				size = formatBytesHuman(g.Node(e.ID).Size())
			}
			rows = append(rows, []string{"  " + truncatePath(e.ID, 50), size, percentage(g.Node(e.ID).Size(), p.Size, e.Stub)})
		}
		f.PrintTable(TableData{Rows: rows})
		if len(p.Order) > maxFiles {
			_, _ = fmt.Fprintf(w, "  ... and %d more files\n", len(p.Order)-maxFiles)
		}
	}

	var left []string
	for id, d := range p.Decisions {
		if d.Kind == bundler.KindInline {
			continue
		}
		line := fmt.Sprintf("%s: %s", id, d.Kind)
		if d.Alias != "" {
			line += " as " + d.Alias
		}
		if d.Reason != "" {
			line += " (" + d.Reason + ")"
		}
		left = append(left, line)
	}
	sort.Strings(left)
	if len(left) > 0 {
		_, _ = fmt.Fprintln(w, "\nNot bundled:")
		for _, l := range left {
			_, _ = fmt.Fprintf(w, "  - %s\n", l)
		}
	}
	_, _ = fmt.Fprintln(w)
}

// DisplayPolyfills prints the installed polyfill bindings.
func (f *Formatter) DisplayPolyfills(bindings []polyfills.Binding) {
	if f.Quiet || len(bindings) == 0 {
		return
	}
	rows := make([][]string, 0, len(bindings))
	for _, b := range bindings {
		rows = append(rows, []string{b.Name, strings.Join(b.Satisfies, ", "), b.Origin.String()})
	}
	f.PrintTable(TableData{Headers: []string{"POLYFILL", "PROVIDES", "ORIGIN"}, Rows: rows})
}

func percentage(size, total int64, stub bool) string {
	if stub || total <= 0 {
		return ""
	}
	return fmt.Sprintf("%5.1f%%", float64(size)*100/float64(total))
}

// FormatBytes formats bytes in human-readable format
func FormatBytes(bytes int64) string {
	return formatBytesHuman(bytes)
}

// formatBytesHuman formats bytes in human-readable format
func formatBytesHuman(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)
	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// truncatePath shortens a path if it's too long
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}

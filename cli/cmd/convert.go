package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/pakto/cli/output"
	"github.com/fluxbase-eu/pakto/internal/converter"
	"github.com/fluxbase-eu/pakto/internal/emit"
	"github.com/fluxbase-eu/pakto/internal/observability"
)

var (
	convertOutDir      string
	convertName        string
	convertNamespace   string
	convertMinify      bool
	convertNoBanner    bool
	convertTarget      string
	convertStrategy    string
	convertMaxSize     int64
	convertPolyfills   []string
	convertExclude     []string
	convertForceInline []string
	convertGlobals     []string
	convertDryRun      bool
	convertDetailed    bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <package[@version]|directory>",
	Short: "Convert a package into a browser bundle",
	Long: `Convert an NPM package, or a package directory on disk, into a single
browser script that registers the package as a global.

Examples:
  pakto convert lodash@4.17.21
  pakto convert @scope/pkg --name ScopePkg --namespace Acme.Libs
  pakto convert ./my-lib --strategy hybrid --max-size 200000 --global react=React
  pakto convert uuid --dry-run -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertOutDir, "out-dir", "", "output directory (default from output.directory)")
	f.StringVar(&convertName, "name", "", "global name of the bundle (default derived from the package name)")
	f.StringVar(&convertNamespace, "namespace", "", "dotted namespace the global is attached under")
	f.BoolVar(&convertMinify, "minify", false, "minify the bundle")
	f.BoolVar(&convertNoBanner, "no-banner", false, "omit the header comment")
	f.StringVar(&convertTarget, "target", "", "language level of the output: es5, es2015 ... esnext")
	f.StringVar(&convertStrategy, "strategy", "", "bundling strategy: inline, selective, external, hybrid")
	f.Int64Var(&convertMaxSize, "max-size", 0, "byte budget for inlined sources (0 keeps the configured value)")
	f.StringSliceVar(&convertPolyfills, "include-polyfills", nil, "polyfills to install even when unused")
	f.StringSliceVar(&convertExclude, "exclude-dependencies", nil, "dependencies to leave out of the bundle")
	f.StringSliceVar(&convertForceInline, "force-inline", nil, "dependencies to inline even when excluded")
	f.StringSliceVar(&convertGlobals, "global", nil, "global alias for a dependency, as package=Global")
	f.BoolVar(&convertDryRun, "dry-run", false, "analyze and plan without writing the bundle")
	f.BoolVar(&convertDetailed, "detailed", false, "show every issue and module")
}

// applyConvertFlags layers explicitly set flags over the configuration.
func applyConvertFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("out-dir") {
		cfg.Output.Directory = convertOutDir
	}
	if f.Changed("namespace") {
		cfg.Output.Namespace = convertNamespace
	}
	if f.Changed("minify") {
		cfg.Output.Minify = convertMinify
	}
	if f.Changed("no-banner") {
		cfg.Output.Banner = !convertNoBanner
	}
	if f.Changed("target") {
		cfg.Output.Target = convertTarget
	}
	if f.Changed("strategy") {
		cfg.Bundle.Strategy = convertStrategy
	}
	if f.Changed("max-size") {
		cfg.Bundle.MaxSize = convertMaxSize
	}
	cfg.Bundle.ExcludeDependencies = append(cfg.Bundle.ExcludeDependencies, convertExclude...)
	cfg.Bundle.ForceInline = append(cfg.Bundle.ForceInline, convertForceInline...)
	if len(convertGlobals) > 0 {
		globals, err := parseGlobals(convertGlobals)
		if err != nil {
			return err
		}
		if cfg.Bundle.Globals == nil {
			cfg.Bundle.Globals = make(map[string]string)
		}
		for pkg, global := range globals {
			cfg.Bundle.Globals[pkg] = global
		}
	}
	return cfg.Validate()
}

// convertSummary is the result of convert.
type convertSummary struct {
	converter.Result `yaml:",inline"`
	Name             string `json:"name" yaml:"name"`
	Global           string `json:"global" yaml:"global"`
	File             string `json:"file,omitempty" yaml:"file,omitempty"`
	Bytes            int    `json:"bytes" yaml:"bytes"`
	DryRun           bool   `json:"dry_run" yaml:"dry_run"`
}

// Table implements output.Tabler.
func (s convertSummary) Table() output.TableData {
	st := s.Stats
	rows := [][]string{
		{"Package", s.Package + "@" + s.Version},
		{"Global", s.Global},
		{"Modules", fmt.Sprintf("%d inline, %d externalized, %d excluded", st.Inline, st.Externalized, st.Excluded)},
		{"Sources", fmt.Sprintf("%s of %s", output.FormatBytes(st.SizeAfter), output.FormatBytes(st.SizeBefore))},
		{"Bundle", output.FormatBytes(int64(s.Bytes))},
	}
	if s.File != "" {
		rows = append(rows, []string{"Written", s.File})
	}
	return output.TableData{Rows: rows}
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := applyConvertFlags(cmd); err != nil {
		return err
	}

	start := time.Now()
	pkg, err := loadPackage(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	name := convertName
	if name == "" {
		name = emit.SanitizeGlobalName(pkg.Manifest.Name)
	}
	opts := converterOptions()
	opts.Name = name
	opts.Include = convertPolyfills

	conv, err := converter.New(opts)
	if err != nil {
		return err
	}
	res, err := conv.Convert(pkg)
	recordConversion(res, time.Since(start), err)
	if err != nil {
		if res != nil && res.Report != nil && !formatter.Structured() {
			formatter.DisplayReport(pkg.Manifest.Name, res.Report, convertDetailed)
		}
		return err
	}

	code, err := render(pkg, res)
	if err != nil {
		return err
	}

	summary := convertSummary{
		Result: *res,
		Name:   name,
		Global: strings.TrimPrefix(cfg.Output.Namespace+"."+name, "."),
		Bytes:  len(code),
		DryRun: convertDryRun,
	}
	if !convertDryRun {
		fileName := emit.FileName(cfg.Output.Naming, res.Package, res.Version)
		summary.File, err = emit.NewWriter(fs, cfg.Output.Directory).Write(fileName, []byte(code))
		if err != nil {
			return err
		}
	}

	if !formatter.Structured() {
		if convertDryRun || convertDetailed {
			formatter.DisplayPlan(res.Graph, res.Plan, convertDetailed)
		}
		formatter.DisplayReport(res.Package, res.Report, convertDetailed)
		formatter.DisplayPolyfills(res.Polyfills)
	}
	if err := formatter.Print(summary); err != nil {
		return err
	}
	if convertDryRun {
		formatter.Message("Dry run: nothing was written.")
	}
	return nil
}

func render(pkg *converter.Package, res *converter.Result) (string, error) {
	tmpl := ""
	if cfg.Output.BannerTemplate != "" {
		data, err := afero.ReadFile(fs, cfg.Output.BannerTemplate)
		if err != nil {
			return "", fmt.Errorf("failed to read banner template: %w", err)
		}
		tmpl = string(data)
	}
	emitter, err := emit.New(emit.Options{
		Minify:         cfg.Output.Minify,
		NoBanner:       !cfg.Output.Banner,
		BannerTemplate: tmpl,
	})
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(res.Polyfills))
	for _, b := range res.Polyfills {
		names = append(names, b.Name)
	}
	return emitter.Render(res.Output, emit.Meta{
		Name:        res.Package,
		Version:     res.Version,
		Description: pkg.Manifest.Description,
		License:     pkg.Manifest.License,
		Target:      cfg.Output.ESTarget().String(),
		Strategy:    res.Plan.Strategy.String(),
		Polyfills:   names,
	})
}

func recordConversion(res *converter.Result, d time.Duration, err error) {
	if metrics == nil {
		return
	}
	c := observability.Conversion{Strategy: cfg.Bundle.Strategy, Duration: d, Err: err}
	if res != nil {
		c.Bytes = res.Stats.OutputBytes
		c.Nodes = res.Stats.Nodes
		c.Issues = make(map[[2]string]int)
		for _, i := range res.Report.Issues {
			c.Issues[[2]string{i.Level.String(), i.Code}]++
		}
		for _, b := range res.Polyfills {
			c.Polyfills = append(c.Polyfills, b.Name)
		}
	}
	metrics.RecordConversion(c)
}

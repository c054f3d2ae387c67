package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/pakto/internal/converter"
	"github.com/fluxbase-eu/pakto/internal/report"
)

var (
	analyzeDetailed bool
	analyzeStrategy string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <package[@version]|directory>",
	Short: "Check whether a package can run in the browser",
	Long: `Build the module graph of a package and report Node.js APIs, module
formats, external dependencies and cycles, without producing a bundle.

Examples:
  pakto analyze lodash
  pakto analyze ./my-lib --detailed
  pakto analyze axios -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDetailed, "detailed", false, "show every issue with suggestions")
	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strategy", "", "strategy whose reachability rules apply")
}

// analyzeSummary is the structured output of analyze.
type analyzeSummary struct {
	Package string         `json:"package" yaml:"package"`
	Version string         `json:"version" yaml:"version"`
	Report  *report.Report `json:"report" yaml:"report"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("strategy") {
		cfg.Bundle.Strategy = analyzeStrategy
		if err := cfg.Bundle.Validate(); err != nil {
			return err
		}
	}

	pkg, err := loadPackage(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	conv, err := converter.New(converterOptions())
	if err != nil {
		return err
	}
	a, err := conv.Analyze(pkg)
	if err != nil {
		return err
	}

	if formatter.Structured() {
		return formatter.Print(analyzeSummary{Package: pkg.Manifest.Name, Version: pkg.Manifest.Version, Report: a.Report})
	}
	formatter.DisplayReport(pkg.Manifest.Name, a.Report, analyzeDetailed)
	return nil
}

// Package cmd provides the Cobra commands for the Pakto CLI.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/pakto/cli/output"
	"github.com/fluxbase-eu/pakto/internal/config"
	"github.com/fluxbase-eu/pakto/internal/observability"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile     string
	outputFmt   string
	noHeaders   bool
	quiet       bool
	debug       bool
	metricsFile string

	// Shared across commands
	cfg       *config.Config
	formatter *output.Formatter
	metrics   *observability.Metrics

	// fs is where config, packages on disk and bundles are read and written
	fs = afero.NewOsFs()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pakto",
	Short: "Pakto - Convert NPM packages into browser bundles",
	Long: `Pakto converts an NPM package and its dependencies into one
self-contained script that runs in the browser and exposes the package
as a global.

Get started:
  pakto init                 Write a pakto.toml with the defaults
  pakto analyze lodash       Check whether a package can run in the browser
  pakto convert lodash@4     Write dist/lodash.bundle.js`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize()
	},
}

// Execute runs the CLI
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI with a context that cancels registry work
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if werr := writeMetrics(); werr != nil {
		log.Warn().Err(werr).Msg("Failed to write metrics textfile")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is the nearest pakto.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"only print errors")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"write Prometheus metrics to this textfile")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(cacheCmd)
}

// initialize loads configuration and sets up logging, the formatter and
// metrics for every command.
func initialize() error {
	var err error
	cfg, err = config.Load(fs, cfgFile)
	if err != nil {
		return err
	}

	setupLogging(os.Stderr, cfg.Logging)

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	formatter = output.NewFormatter(format, noHeaders, quiet)
	formatter.Writer = stdout

	if metricsFile == "" {
		metricsFile = cfg.Metrics.Textfile
	}
	if metricsFile != "" {
		metrics = observability.NewMetrics()
	}
	return nil
}

// setupLogging configures the global logger. --debug and --quiet win over
// the configured level.
func setupLogging(w io.Writer, lc config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lc.Format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
	}

	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	switch {
	case debug:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)
}

func writeMetrics() error {
	if metrics == nil {
		return nil
	}
	if err := metrics.WriteTextfile(metricsFile); err != nil {
		return fmt.Errorf("metrics textfile %s: %w", metricsFile, err)
	}
	return nil
}

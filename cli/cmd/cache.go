package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/pakto/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the registry cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached package and metadata document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Cache.Enabled {
			formatter.Message("Cache is disabled; nothing to clear.")
			return nil
		}
		c, err := cache.New(&cfg.Cache)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		if err := c.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		formatter.Message("Cleared %s cache", cfg.Cache.Backend)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

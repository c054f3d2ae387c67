package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/pakto/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a pakto.toml with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		path, err := config.WriteDefault(fs, dir)
		if err != nil {
			return err
		}
		formatter.Message("Created %s", path)
		return nil
	},
}

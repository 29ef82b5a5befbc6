package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastiangx/symbolserve/pkg/config"
)

var rebuildConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the active config path, or rebuild the default config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rebuildConfig {
			if err := config.RebuildConfigFile(); err != nil {
				return fmt.Errorf("rebuilding config: %w", err)
			}
		}
		_, path, err := config.LoadConfigWithPriority(configPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), config.GetActiveConfigPath(path))
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&rebuildConfig, "rebuild", false, "Overwrite the default config file with builtin defaults")
}

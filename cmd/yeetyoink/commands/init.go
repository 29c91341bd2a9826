package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeet-yoink/yeet-yoink/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := GetConfigFile()
		if path == "" {
			path = config.DefaultConfigPath()
		}

		if !initForce && config.DefaultConfigExists() && GetConfigFile() == "" {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		cfg := config.Default()
		if err := config.Save(cfg, path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/gfxlog/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create a gfxlog configuration file with default settings and a generated
API key for the REST server.

Examples:
  gfxlog init
  gfxlog init --config ./gfxlog.yaml --data-dir ./streams
  gfxlog init --force`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		path := configPath(cmd)

		cfg, created, err := initializeConfig(path, dataDir, force)
		if err != nil {
			return err
		}
		if !created {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
			return nil
		}

		cmd.Printf("✅ Configuration created at %s\n", path)
		cmd.Printf("Archive directory: %s\n", cfg.Archive.DataDir)
		cmd.Printf("API key: %s...\n", cfg.Server.APIKey[:8])
		cmd.Printf("\nThe full key is stored in the configuration file. Start the server with:\n")
		cmd.Printf("  gfxlog serve --config %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
}

// initializeConfig writes a new config at path unless one exists and force
// is not set. It reports whether a file was written.
func initializeConfig(path, dataDir string, force bool) (*config.Config, bool, error) {
	if config.ConfigExists(path) && !force {
		return nil, false, nil
	}
	cfg, err := config.BootstrapConfig(path, dataDir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to bootstrap config: %w", err)
	}
	return cfg, true, nil
}

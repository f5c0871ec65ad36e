/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/gfxlog/pkg/config"
	"github.com/ssargent/gfxlog/pkg/di"
)

var container *di.Container

// SetContainer injects the dependency container used by all commands
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gfxlog",
	Short: "gfxlog - GFXAPILOG crash dump decoder",
	Long: `gfxlog finds the graphics API command logs left in a crash dump by the
always-on GfxApiLogger ring buffers, and decodes them into time-ordered
command streams.

Streams can be printed directly, archived for later browsing, or served
over a REST API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return errors.New("dependency container not initialized")
		}
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		return container.Configure(cfg, cmd.ErrOrStderr())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ~/.config/gfxlog/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "Concurrent stream decoders")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the stream archive")
}

// resolveConfig loads the config file and applies flag overrides. An
// explicit --config must exist; the default location is optional.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := config.DefaultConfig()
	switch {
	case configPath != "":
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case config.ConfigExists(config.GetDefaultConfigPath()):
		loaded, err := config.LoadConfig(config.GetDefaultConfigPath())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Decode.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Archive.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

// configPath returns the --config flag or the default location
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// skipConfig replaces the root pre-run for commands that must work without
// a usable config file
func skipConfig(cmd *cobra.Command, args []string) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}
	return nil
}

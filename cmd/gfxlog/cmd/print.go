/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/gfxlog/pkg/dump"
)

// printCmd represents the print command
var printCmd = &cobra.Command{
	Use:   "print <dump>",
	Short: "Print the command streams found in a dump",
	Long: `Scan a crash dump for GFXAPILOG buffers and print every command stream
found, oldest first.

Buffers that cannot be decoded are listed with the reason. A summary line
with the number of commands and interpreter errors ends the report.

Examples:
  gfxlog print crash.dmp
  gfxlog print crash.dmp --format json --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		noSort, _ := cmd.Flags().GetBool("no-sort")

		streams, err := scanDump(cmd, args[0])
		if err != nil {
			return err
		}
		if container.Config().Report.SortByTimestamp && !noSort {
			dump.SortByTimestamp(streams)
		}

		reporter, err := container.NewReporter(format)
		if err != nil {
			return err
		}
		summary, err := reporter.Write(cmd.OutOrStdout(), streams)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		container.Logger().Debug("report written",
			"streams", summary.Streams,
			"commands", summary.Commands,
			"errors", summary.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(printCmd)
	printCmd.Flags().StringP("format", "f", "", "Output format: text or json (default from config)")
	printCmd.Flags().Bool("no-sort", false, "Keep streams in dump order instead of sorting by timestamp")
}

// scanDump decodes every stream in the dump at path
func scanDump(cmd *cobra.Command, path string) ([]dump.Stream, error) {
	streams, err := dump.ScanFile(cmd.Context(), path, container.ScannerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return streams, nil
}

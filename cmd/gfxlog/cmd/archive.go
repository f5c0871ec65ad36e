/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <dump>",
	Short: "Decode a dump and store its streams",
	Long: `Scan a crash dump and store every stream found in the archive under the
data directory, including streams that could not be decoded.

Examples:
  gfxlog archive crash.dmp
  gfxlog archive crash.dmp --data-dir ./streams`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		streams, err := scanDump(cmd, args[0])
		if err != nil {
			return err
		}

		a, err := container.OpenArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Put(filepath.Base(args[0]), streams)
		if err != nil {
			return fmt.Errorf("failed to archive streams: %w", err)
		}

		cmd.Printf("Archived %d streams from %s\n", len(records), args[0])
		for i := range records {
			s := records[i].Summarize()
			if s.Error != "" {
				cmd.Printf("%s  offset %d  error: %s\n", s.ID, s.Offset, s.Error)
				continue
			}
			cmd.Printf("%s  offset %d  %d commands\n", s.ID, s.Offset, s.Commands)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}

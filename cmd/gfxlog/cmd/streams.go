/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/gfxlog/pkg/archive"
	"github.com/ssargent/gfxlog/pkg/dump"
)

// streamsCmd represents the streams command
var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "Browse archived streams",
}

var streamsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived streams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := container.OpenArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.List()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			cmd.Println("No archived streams")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSOURCE\tOFFSET\tTIMESTAMP\tCOMMANDS\tSTATUS")
		for _, s := range summaries {
			status := "ok"
			if s.Error != "" {
				status = s.Error
			}
			ts := time.UnixMicro(int64(s.Timestamp)).Format(time.RFC3339)
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n", s.ID, s.Source, s.Offset, ts, s.Commands, status)
		}
		return tw.Flush()
	},
}

var streamsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one archived stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		id, err := archive.ParseID(args[0])
		if err != nil {
			return err
		}

		a, err := container.OpenArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Get(id)
		if err != nil {
			return err
		}

		reporter, err := container.NewReporter(format)
		if err != nil {
			return err
		}
		cmd.Printf("Stream %s from %s, archived %s\n", rec.ID, rec.Source, rec.ArchivedAt.Format(time.RFC3339))
		_, err = reporter.Write(cmd.OutOrStdout(), []dump.Stream{rec.Stream})
		return err
	},
}

var streamsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := archive.ParseID(args[0])
		if err != nil {
			return err
		}

		a, err := container.OpenArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Delete(id); err != nil {
			if errors.Is(err, archive.ErrNotFound) {
				return fmt.Errorf("no archived stream with id %s", id)
			}
			return err
		}
		cmd.Printf("Deleted stream %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(streamsCmd)
	streamsCmd.AddCommand(streamsListCmd, streamsShowCmd, streamsDeleteCmd)
	streamsShowCmd.Flags().StringP("format", "f", "", "Output format: text or json (default from config)")
}

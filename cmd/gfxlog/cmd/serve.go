/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the gfxlog REST API server over the stream archive.

Archived streams can be listed, fetched and deleted, and dumps can be
uploaded to POST /api/v1/dumps for decoding. All /api/v1 routes need the
X-API-Key header; run 'gfxlog init' to generate a key.

Examples:
  gfxlog serve
  gfxlog serve --port 9000 --bind 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverConfig := container.ServerConfig()
		if cmd.Flags().Changed("port") {
			serverConfig.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			serverConfig.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			serverConfig.APIKey, _ = cmd.Flags().GetString("api-key")
		}

		a, err := container.OpenArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(cmd.Context(), a, serverConfig, container.Logger(), container.Metrics(), container.Registry())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().String("bind", "", "Address to bind (overrides config)")
	serveCmd.Flags().String("api-key", "", "API key for authentication (overrides config)")
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/probeat/beatgrid/api"
)

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversion REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.NewServer(newLogger()).Run(servePort)
	},
}

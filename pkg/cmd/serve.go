package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tvloop/tvloop/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the asset store HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.NewApp(configPath).Run()
	},
}

func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "partychat",
	Short:        "Real-time chat rooms over WebSocket with persistent history and file uploads",
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the command selected on the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sendCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "extprocctl",
	Short: "Debug helpers for the Moesif ext_proc sidecar",
	Long: `extprocctl reconstructs and replays collector deliveries for
human-readable tracing. It never touches the live data path.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moesif/moesif-extproc-go/internal/config"
	"github.com/moesif/moesif-extproc-go/internal/dispatcher"
	"github.com/moesif/moesif-extproc-go/internal/logging"
)

var sendCmd = &cobra.Command{
	Use:   "send <events-file>",
	Short: "Post an event batch by hand",
	Long: `Reads one JSON event object per line from the file and performs a
single batch delivery, printing the collector's response metadata.`,
	Example: `  extprocctl send events.ndjson --app-id $MOESIF_APPLICATION_ID`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("base-url")
		appID, _ := cmd.Flags().GetString("app-id")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if appID == "" {
			return fmt.Errorf("--app-id is required")
		}

		events, err := readEvents(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("no events in %s", args[0])
		}

		client := dispatcher.New(baseURL, appID, timeout, logging.Default())
		result, err := client.SendBatch(cmd.Context(), events)
		if err != nil {
			return fmt.Errorf("delivery failed: %w", err)
		}

		fmt.Printf("delivered %d events: status=%d config_etag=%q rules_etag=%q\n",
			len(events), result.StatusCode, result.ConfigEtag, result.RulesEtag)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().String("base-url", config.DefaultBaseURL, "Collector base URL")
	sendCmd.Flags().String("app-id", "", "Moesif application ID")
	sendCmd.Flags().Duration("timeout", config.DefaultTimeout, "Connection timeout")
}

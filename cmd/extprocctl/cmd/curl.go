package cmd

import (
	"bufio"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	json "github.com/goccy/go-json"

	"github.com/moesif/moesif-extproc-go/internal/config"
	"github.com/moesif/moesif-extproc-go/internal/dispatcher"
)

var curlCmd = &cobra.Command{
	Use:   "curl <events-file>",
	Short: "Reconstruct the curl command for an event batch",
	Long: `Reads one JSON event object per line from the file and prints the
curl command equivalent to the delivery the sidecar would perform.`,
	Example: `  extprocctl curl events.ndjson --app-id $MOESIF_APPLICATION_ID`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("base-url")
		appID, _ := cmd.Flags().GetString("app-id")

		events, err := readEvents(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("no events in %s", args[0])
		}

		payload := dispatcher.BuildPayload(events)
		url := baseURL + dispatcher.EventsBatchPath

		headers := http.Header{}
		headers.Set("Content-Type", "application/json")
		headers.Set("X-Moesif-Application-Id", appID)

		fmt.Println(dispatcher.CurlCommand(http.MethodPost, url, headers, payload))
		return nil
	},
}

// readEvents reads newline-delimited JSON events, validating each line so a
// malformed record cannot corrupt the spliced array payload.
func readEvents(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	var events [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("line %d is not valid JSON: %w", line, err)
		}
		ev := make([]byte, len(raw))
		copy(ev, raw)
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	return events, nil
}

func init() {
	rootCmd.AddCommand(curlCmd)

	curlCmd.Flags().String("base-url", config.DefaultBaseURL, "Collector base URL")
	curlCmd.Flags().String("app-id", "", "Moesif application ID")
}

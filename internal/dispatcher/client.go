package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/moesif/moesif-extproc-go/internal/logging"
)

// EventsBatchPath is the collector endpoint batches are posted to.
const EventsBatchPath = "/v1/events/batch"

const (
	headerApplicationID = "X-Moesif-Application-Id"
	headerConfigEtag    = "X-Moesif-Config-Etag"
	headerRulesEtag     = "X-Moesif-Rules-Etag"
)

// DeliveryResult carries the observable outcome of one batch delivery.
// The etags are cache-validation tokens for the collector's sampling
// configuration; they are surfaced for logging and future use but nothing
// acts on them yet.
type DeliveryResult struct {
	StatusCode int
	ConfigEtag string
	RulesEtag  string
}

// Client posts serialized event batches to the collector. The underlying
// http.Client and its connection pool are shared across all deliveries and
// never mutated after construction.
type Client struct {
	baseURL       string
	applicationID string
	httpClient    *http.Client
	logger        *logging.Logger
}

// New constructs a collector client with the given connection timeout.
func New(baseURL, applicationID string, timeout time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:       baseURL,
		applicationID: applicationID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BuildPayload splices pre-serialized event objects into one JSON array.
// Events are never re-parsed or re-encoded here; each entry must already be
// a self-contained JSON value. The output length is exactly the sum of the
// entry lengths plus one comma between entries plus the two brackets.
func BuildPayload(events [][]byte) []byte {
	total := 0
	for _, ev := range events {
		total += len(ev)
	}
	commas := 0
	if len(events) > 1 {
		commas = len(events) - 1
	}

	payload := make([]byte, 0, total+commas+2)
	payload = append(payload, '[')
	for i, ev := range events {
		if i > 0 {
			payload = append(payload, ',')
		}
		payload = append(payload, ev...)
	}
	payload = append(payload, ']')
	return payload
}

// SendBatch serializes the batch and performs one POST to the collector.
// A transport failure or non-2xx status is returned as an error; the caller
// owns the decision of what to do with the lost batch (currently: nothing).
func (c *Client) SendBatch(ctx context.Context, events [][]byte) (*DeliveryResult, error) {
	payload := BuildPayload(events)
	url := c.baseURL + EventsBatchPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerApplicationID, c.applicationID)

	if c.logger.Enabled(ctx, slog.LevelDebug) {
		// The curl form is expensive to build, so gate it on the level.
		c.logger.Debug("dispatching batch",
			logging.URL(url),
			logging.Events(len(events)),
			slog.String("curl", CurlCommand(http.MethodPost, url, req.Header, payload)),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send batch: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection returns to the pool.
	_, _ = io.Copy(io.Discard, resp.Body)

	result := &DeliveryResult{
		StatusCode: resp.StatusCode,
		ConfigEtag: resp.Header.Get(headerConfigEtag),
		RulesEtag:  resp.Header.Get(headerRulesEtag),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, fmt.Errorf("collector returned status %d", resp.StatusCode)
	}

	return result, nil
}

package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProcessingLogClient posts an empty JSON object to the processing-log endpoint.
type ProcessingLogClient struct {
	httpClient *http.Client
	url        string
}

// NewProcessingLogClient creates a client that posts to url.
func NewProcessingLogClient(url string, timeout time.Duration) *ProcessingLogClient {
	return &ProcessingLogClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

// ProcessingStarted posts `{}`; any non-2xx status is an error.
func (c *ProcessingLogClient) ProcessingStarted(ctx context.Context, _ string, _ time.Time) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("failed to create processing log request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post processing log: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("processing log endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Package upload sends batches of canonical listing records to the catalog
// ingest API and reports per-batch outcome counts.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Record is one normalized, validated listing in the ingest wire format.
// Field names match what the catalog API expects from scraper exports.
type Record struct {
	Title       string `json:"Title"`
	Price       string `json:"Price"`
	TitleURL    string `json:"Title_URL"`
	Market      string `json:"Market"`
	SourceIndex int    `json:"_originalIndex"`
}

// Report carries the per-item counts the catalog API returns for one batch.
type Report struct {
	Processed    int      `json:"processed"`
	Errors       int      `json:"errors"`
	Skipped      int      `json:"skipped"`
	ErrorDetails []string `json:"errorDetails"`
}

// StatusError is returned when the catalog API answers with a non-2xx status.
// The whole file's upload is treated as failed and retried on a later run.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client posts record batches to a single ingest endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds an upload client for the given endpoint.
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Upload sends one file's records as a single JSON array POST. The client
// does not retain the records after the exchange completes.
func (c *Client) Upload(ctx context.Context, records []Record) (Report, error) {
	body, err := json.Marshal(records)
	if err != nil {
		return Report{}, fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Report{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-side close

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Report{}, fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Report{}, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	var report Report
	if err := json.Unmarshal(respBody, &report); err != nil {
		return Report{}, fmt.Errorf("decode upload response: %w", err)
	}

	c.logger.Debug("Batch uploaded",
		zap.Int("records", len(records)),
		zap.Int("processed", report.Processed),
		zap.Int("errors", report.Errors),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// IsConnectionRefused reports whether the error chain contains a refused
// connection. Control flow treats it like any other boundary failure; the CLI
// only uses this to print a hint about the ingest server not running.
func IsConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

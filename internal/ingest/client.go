package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/models"
)

// maxResponseBytes caps the size of a remote record payload.
const maxResponseBytes = 64 << 20

// Client fetches price records from a remote JSON API.
type Client struct {
	HTTPClient *http.Client
	Retry      RetryPolicy
	url        string
	indicator  string
	logger     *logrus.Logger
}

// statusError is a non-2xx answer from the record API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("record API error (%d): %s", e.code, e.body)
}

// NewClient creates a client for cfg.APIURL with cfg.TimeoutSeconds (default
// 30s). Failed downloads are retried cfg.MaxRetries times.
func NewClient(cfg config.IngestionConfig, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	retry := DefaultRetryPolicy()
	retry.MaxRetries = max(cfg.MaxRetries, 0)
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		Retry:      retry,
		url:        cfg.APIURL,
		indicator:  cfg.Indicator,
		logger:     logger,
	}
}

// FetchRecords downloads and parses the record set. Transport failures and
// 5xx answers are retried; malformed payloads are not.
func (c *Client) FetchRecords(ctx context.Context) ([]models.PriceRecord, Report, error) {
	var body []byte
	err := withRetry(ctx, c.Retry, c.logger, isRetryable, func(ctx context.Context) error {
		var err error
		body, err = c.download(ctx)
		return err
	})
	if err != nil {
		return nil, Report{}, err
	}

	records, report, err := ParseJSON(body)
	if err != nil {
		return nil, report, err
	}
	records = FilterIndicator(records, c.indicator)

	c.logger.WithFields(logrus.Fields{
		"url":      c.url,
		"rows":     report.Rows,
		"accepted": report.Accepted,
		"dropped":  report.Dropped,
		"kept":     len(records),
	}).Info("Fetched price records")

	return records, report, nil
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CPI-Insights/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
	}
	return body, nil
}

// Records implements RecordSource by fetching on every call.
func (c *Client) Records(ctx context.Context) ([]models.PriceRecord, error) {
	records, _, err := c.FetchRecords(ctx)
	return records, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

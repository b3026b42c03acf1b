// Package sheets posts submitted reports to the community's spreadsheet
// webhook. The export is best-effort: it runs detached from the submission
// request, is never retried, and its failures are only logged.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	maxReporterNameLen = 200
	maxDescriptionLen  = 2000
	maxLocationLen     = 100
	maxPhotoURLLen     = 500
)

// Row is the payload appended to the spreadsheet.
type Row struct {
	ReporterName string `json:"reporter_name"`
	Description  string `json:"damage_description"`
	Location     string `json:"location"`
	DamageType   string `json:"damage_type"`
	PhotoURL     string `json:"photo_url"`
	CreatedAt    string `json:"created_at"`
	Timestamp    string `json:"timestamp"`
}

// Client posts rows to the configured webhook.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient returns nil when no webhook is configured, which disables the
// export without extra branching at call sites.
func NewClient(webhookURL string) *Client {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return nil
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send appends one row. Fields are trimmed and truncated before leaving the
// service; the webhook is treated as an untrusted sink.
func (c *Client) Send(ctx context.Context, row Row) error {
	if c == nil {
		return nil
	}
	row.ReporterName = truncate(strings.TrimSpace(row.ReporterName), maxReporterNameLen)
	row.Description = truncate(strings.TrimSpace(row.Description), maxDescriptionLen)
	row.Location = truncate(strings.TrimSpace(row.Location), maxLocationLen)
	row.PhotoURL = truncate(row.PhotoURL, maxPhotoURLLen)
	if row.CreatedAt == "" {
		row.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	row.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

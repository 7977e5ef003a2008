// Package clustering calls the external log-clustering service.
package clustering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/causeway-ops/causeway/internal/models"
)

// Client posts raw log batches to the clustering service and returns the
// structural clusters it finds.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a clustering-service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type parseRequest struct {
	Logs        json.RawMessage `json:"logs"`
	SeverityKey string          `json:"severityKey"`
	MessageKey  string          `json:"messageKey"`
}

type parseResponse struct {
	Clusters []models.LogCluster `json:"clusters"`
}

// Parse sends the vendor-native log batch plus the inferred structural keys
// to POST {base}/parse/{vendor}.
func (c *Client) Parse(ctx context.Context, vendor string, logs json.RawMessage, severityKey, messageKey string) ([]models.LogCluster, error) {
	body, err := json.Marshal(parseRequest{
		Logs:        logs,
		SeverityKey: severityKey,
		MessageKey:  messageKey,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal parse request: %w", err)
	}

	url := fmt.Sprintf("%s/parse/%s", c.baseURL, vendor)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("clustering service returned status %d: %s", resp.StatusCode, payload)
	}

	var out parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode parse response: %w", err)
	}
	return out.Clusters, nil
}

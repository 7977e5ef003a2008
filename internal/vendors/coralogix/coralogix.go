// Package coralogix fetches raw logs from the Coralogix DataPrime API and
// implements the log-tool provider used by the investigation pipeline.
package coralogix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/vendors"
)

// Credential and metadata keys on a Coralogix integration.
const (
	CredentialLogsKey = "logs_key"
	MetadataRegion    = "region"
)

const querySyntax = "QUERY_SYNTAX_DATAPRIME"

// regionEndpoints maps the region key stored in integration metadata to the
// DataPrime API endpoint.
var regionEndpoints = map[string]string{
	"EU1": "https://ng-api-http.coralogix.com",
	"EU2": "https://ng-api-http.eu2.coralogix.com",
	"US1": "https://ng-api-http.us.coralogix.com",
	"US2": "https://ng-api-http.cx498.coralogix.com",
	"AP1": "https://ng-api-http.app.coralogix.in",
	"AP2": "https://ng-api-http.coralogixsg.com",
}

// Client calls the Coralogix DataPrime query API.
type Client struct {
	baseURL string
	logsKey string
	client  *http.Client
}

// NewClient creates a Coralogix client for the given region key.
func NewClient(logsKey, region string) (*Client, error) {
	endpoint, ok := regionEndpoints[region]
	if !ok {
		return nil, fmt.Errorf("unknown coralogix region %q", region)
	}
	return &Client{
		baseURL: endpoint,
		logsKey: logsKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// QueryResult is the normalized DataPrime response shape. Each result row
// carries its record as a JSON-encoded string in UserData.
type QueryResult struct {
	Result struct {
		Results []struct {
			UserData string `json:"userData"`
		} `json:"results"`
	} `json:"result"`
}

// GetRawLogs runs a DataPrime query and returns the vendor-native response
// body unmodified.
func (c *Client) GetRawLogs(ctx context.Context, query string, start, end time.Time) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"query": query,
		"metadata": map[string]any{
			"syntax":    querySyntax,
			"startDate": start.UTC().Format(time.RFC3339),
			"endDate":   end.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal dataprime request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/dataprime/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create dataprime request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.logsKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataprime request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dataprime response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("coralogix returned status %d: %s", resp.StatusCode, payload)
	}
	return json.RawMessage(payload), nil
}

// ParseResult decodes the two-level DataPrime shape: the outer transport
// record, then the JSON string inside each row's userData. Rows whose inner
// payload does not decode keep the raw string.
func ParseResult(raw json.RawMessage) ([]vendors.LogRow, error) {
	var result QueryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode dataprime response: %w", err)
	}

	rows := make([]vendors.LogRow, 0, len(result.Result.Results))
	for _, r := range result.Result.Results {
		row := vendors.LogRow{Raw: r.UserData}
		var data map[string]any
		if err := json.Unmarshal([]byte(r.UserData), &data); err == nil {
			row.Data = data
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Provider implements vendors.LogToolProvider backed by the DataPrime API.
type Provider struct {
	// BaseURL overrides the regional endpoint; used in tests.
	BaseURL string
}

// Vendor returns the vendor identifier this provider serves.
func (p *Provider) Vendor() string { return models.VendorCoralogix }

func (p *Provider) clientFor(integration models.Integration) (*Client, error) {
	logsKey, ok := integration.Credentials[CredentialLogsKey]
	if !ok || logsKey == "" {
		return nil, fmt.Errorf("coralogix integration %s has no logs key", integration.ID)
	}
	region := integration.Metadata[MetadataRegion]

	client, err := NewClient(logsKey, region)
	if err != nil {
		return nil, err
	}
	if p.BaseURL != "" {
		client.baseURL = p.BaseURL
	}
	return client, nil
}

// FetchLogs runs the query (or the bounded default when empty) and performs
// the two-level decode.
func (p *Provider) FetchLogs(ctx context.Context, integration models.Integration, query string, start, end time.Time, limit int) (*vendors.LogFetch, error) {
	client, err := p.clientFor(integration)
	if err != nil {
		return nil, err
	}

	if query == "" {
		query = fmt.Sprintf("source logs | limit %d", limit)
	}

	raw, err := client.GetRawLogs(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	rows, err := ParseResult(raw)
	if err != nil {
		return nil, err
	}
	return &vendors.LogFetch{Raw: raw, Rows: rows}, nil
}

// TestConnection verifies the credentials by fetching a single log row over
// the last day.
func (p *Provider) TestConnection(ctx context.Context, integration models.Integration) error {
	now := time.Now().UTC()
	_, err := p.FetchLogs(ctx, integration, "source logs | limit 1", now.Add(-24*time.Hour), now, 1)
	return err
}

// CommonLogFields samples recent logs and returns the set of dotted field
// paths seen across them, sorted.
func (p *Provider) CommonLogFields(ctx context.Context, integration models.Integration, sampleSize int) ([]string, error) {
	now := time.Now().UTC()
	fetch, err := p.FetchLogs(ctx, integration, fmt.Sprintf("source logs | limit %d", sampleSize), now.Add(-7*24*time.Hour), now, sampleSize)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, row := range fetch.Rows {
		if row.Data == nil {
			continue
		}
		for _, key := range flattenKeys(row.Data, nil) {
			seen[key] = struct{}{}
		}
	}

	fields := make([]string, 0, len(seen))
	for key := range seen {
		fields = append(fields, key)
	}
	sort.Strings(fields)
	return fields, nil
}

// CommonLogValues returns distinct values observed for a single field over a
// recent window.
func (p *Provider) CommonLogValues(ctx context.Context, integration models.Integration, field string, limit int) ([]any, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf("source logs | distinct %s | limit %d", field, limit)
	fetch, err := p.FetchLogs(ctx, integration, query, now.Add(-7*24*time.Hour), now, limit)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(fetch.Rows))
	for _, row := range fetch.Rows {
		if v, ok := row.Data[field]; ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// flattenKeys walks nested objects and returns dotted key paths.
func flattenKeys(obj map[string]any, path []string) []string {
	var out []string
	for key, value := range obj {
		current := append(append([]string{}, path...), key)
		if nested, ok := value.(map[string]any); ok {
			out = append(out, flattenKeys(nested, current)...)
			continue
		}
		out = append(out, strings.Join(current, "."))
	}
	return out
}

// The provider carries the explorer capability on top of the log tool.
var (
	_ vendors.LogToolProvider = (*Provider)(nil)
	_ vendors.LogExplorer     = (*Provider)(nil)
)

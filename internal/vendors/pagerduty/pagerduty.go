// Package pagerduty fetches incidents from the PagerDuty REST API and
// normalizes them into alert events.
package pagerduty

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/causeway-ops/causeway/internal/models"
)

const defaultBaseURL = "https://api.pagerduty.com"

// CredentialAccessToken is the credential key holding the API token.
const CredentialAccessToken = "access_token"

// Client calls the PagerDuty REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a PagerDuty client for the given API token.
func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Incident is the subset of the PagerDuty incident payload the pipeline uses.
type Incident struct {
	ID                   string    `json:"id"`
	Description          string    `json:"description"`
	CreatedAt            time.Time `json:"created_at"`
	FirstTriggerLogEntry struct {
		Channel struct {
			Details map[string]any `json:"details"`
		} `json:"channel"`
	} `json:"first_trigger_log_entry"`
}

// GetIncident fetches a single incident by id.
func (c *Client) GetIncident(ctx context.Context, id string) (*Incident, error) {
	url := fmt.Sprintf("%s/incidents/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create incident request: %w", err)
	}
	req.Header.Set("Authorization", "Token token="+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("incident request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("pagerduty returned status %d: %s", resp.StatusCode, payload)
	}

	var out struct {
		Incident Incident `json:"incident"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode incident response: %w", err)
	}
	return &out.Incident, nil
}

// Parser normalizes PagerDuty incidents into alert events.
type Parser struct {
	// BaseURL overrides the PagerDuty API endpoint; used in tests.
	BaseURL string
}

// Source returns the event-source tag this parser handles.
func (p *Parser) Source() string { return models.VendorPagerDuty }

// ParseAlert fetches the incident and maps it into a vendor-neutral event.
func (p *Parser) ParseAlert(ctx context.Context, integration models.Integration, incidentID string) (*models.AlertEvent, error) {
	token, ok := integration.Credentials[CredentialAccessToken]
	if !ok || token == "" {
		return nil, fmt.Errorf("pagerduty integration %s has no access token", integration.ID)
	}

	client := NewClient(token)
	if p.BaseURL != "" {
		client.baseURL = p.BaseURL
	}

	incident, err := client.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("fetch incident %s: %w", incidentID, err)
	}

	return &models.AlertEvent{
		Source:    models.VendorPagerDuty,
		Message:   incident.Description,
		CreatedAt: incident.CreatedAt,
		Data:      incident.FirstTriggerLogEntry.Channel.Details,
	}, nil
}

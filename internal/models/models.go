// Package models defines the domain types shared across the investigation
// pipeline: normalized alert events, retrieved documents, vendor integrations,
// log clusters and the per-run correlation context.
package models

import (
	"encoding/json"
	"time"
)

// Vendor identifiers for supported integrations.
const (
	VendorPagerDuty = "pagerduty"
	VendorCoralogix = "coralogix"
)

// AlertEvent is a vendor-neutral view of an incident. It is produced once by
// an alert parser and consumed once when the incident prompt is built.
type AlertEvent struct {
	Source    string         `json:"source"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
	Data      map[string]any `json:"data,omitempty"`
}

// Document is a knowledge-base snippet returned by the similarity-search
// index. Higher scores mean closer matches.
type Document struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Integration is a configured connection to a third-party vendor. Credentials
// are stored sealed and only populated in memory for the duration of a run.
type Integration struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	Vendor         string            `json:"vendor"`
	Metadata       map[string]string `json:"metadata,omitempty"`

	// SealedCredentials holds encrypted secret values as stored.
	SealedCredentials map[string]string `json:"-"`
	// Credentials holds decrypted secret values, populated by the secret
	// manager before a run and never written back.
	Credentials map[string]string `json:"-"`
}

// Organization is the tenant owning integrations and a knowledge base.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// KnowledgeBaseIndex identifies the similarity-search index configured for an
// organization.
type KnowledgeBaseIndex struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunContext carries correlation fields through a single pipeline run. It is
// never persisted; it only feeds logging and telemetry.
type RunContext struct {
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	Env              string `json:"env"`
	EventID          string `json:"event_id"`
	Context          string `json:"context"`
}

// LogCluster is one group of structurally similar log lines as returned by
// the clustering service. Vendor-specific fields that are not part of the
// stable shape end up in Extra.
type LogCluster struct {
	Level         string         `json:"Level"`
	EventID       string         `json:"EventId"`
	EventTemplate string         `json:"EventTemplate"`
	Occurrences   int            `json:"Occurrences"`
	Percentage    float64        `json:"Percentage"`
	Extra         map[string]any `json:"-"`
}

// knownClusterFields are unmarshalled into struct fields rather than Extra.
var knownClusterFields = map[string]struct{}{
	"Level": {}, "EventId": {}, "EventTemplate": {}, "Occurrences": {}, "Percentage": {},
}

// UnmarshalJSON decodes the stable cluster fields and collects everything
// else into Extra.
func (c *LogCluster) UnmarshalJSON(data []byte) error {
	type alias LogCluster
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownClusterFields {
		delete(raw, k)
	}
	*c = LogCluster(a)
	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

// MarshalJSON restores the flattened wire shape, Extra fields included.
func (c LogCluster) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+5)
	for k, v := range c.Extra {
		out[k] = v
	}
	out["Level"] = c.Level
	out["EventId"] = c.EventID
	out["EventTemplate"] = c.EventTemplate
	out["Occurrences"] = c.Occurrences
	out["Percentage"] = c.Percentage
	return json.Marshal(out)
}

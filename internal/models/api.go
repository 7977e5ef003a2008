package models

// RCARequest triggers an investigation for a single incident.
type RCARequest struct {
	EventID        string `json:"event_id"`
	EventSource    string `json:"event_source"`
	OrganizationID string `json:"organization_id"`
}

// RCAResponse carries the synthesized root-cause analysis.
type RCAResponse struct {
	EventID  string `json:"event_id"`
	Analysis string `json:"analysis"`
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest asks for a completion over a conversation history.
type ChatRequest struct {
	OrganizationID string        `json:"organization_id"`
	Messages       []ChatMessage `json:"messages"`
}

// ChatResponse carries the assistant reply. QuotaRemaining is present only
// when a quota is configured.
type ChatResponse struct {
	Reply          string `json:"reply"`
	QuotaRemaining *int   `json:"quota_remaining,omitempty"`
}

// IntegrationExploreRequest tunes the schema discovery run. Field is
// optional; when set, observed values for that field are returned too.
type IntegrationExploreRequest struct {
	Field      string `json:"field,omitempty"`
	SampleSize int    `json:"sample_size,omitempty"`
}

// IntegrationExploreResponse reports the field paths discovered in recent
// logs, a formatted sample of rows, and, when a field was requested, the
// values observed for it.
type IntegrationExploreResponse struct {
	IntegrationID string   `json:"integration_id"`
	Vendor        string   `json:"vendor"`
	Fields        []string `json:"fields"`
	Values        []any    `json:"values,omitempty"`
	Sample        string   `json:"sample,omitempty"`
}

// IntegrationTestResponse reports the outcome of a connection test.
type IntegrationTestResponse struct {
	IntegrationID string `json:"integration_id"`
	Vendor        string `json:"vendor"`
	OK            bool   `json:"ok"`
	Detail        string `json:"detail,omitempty"`
}

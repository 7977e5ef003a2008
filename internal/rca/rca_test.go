package rca

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causeway-ops/causeway/internal/config"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/repository"
	"github.com/causeway-ops/causeway/internal/vendors"
)

// ============================================================================
// Test Setup
// ============================================================================

// fakeLLM routes prompts to canned handlers keyed by a marker substring.
type fakeLLM struct {
	onQueries     func(prompt string) (string, error)
	onVerify      func(prompt string) (string, error)
	onExtractKeys func(prompt string) (string, error)
	onSummarize   func(prompt string) (string, error)
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "search queries") && f.onQueries != nil:
		return f.onQueries(prompt)
	case strings.Contains(prompt, "strictly true or false") && f.onVerify != nil:
		return f.onVerify(prompt)
	case strings.Contains(prompt, "severityKey") && f.onExtractKeys != nil:
		return f.onExtractKeys(prompt)
	case strings.Contains(prompt, "root-cause analysis") && f.onSummarize != nil:
		return f.onSummarize(prompt)
	}
	return "", errors.New("unexpected prompt")
}

type fakeSearcher struct {
	docs map[string][]models.Document
	err  error
}

func (f *fakeSearcher) Query(_ context.Context, query string, _ int) ([]models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[query], nil
}

type fakeSecrets struct{}

func (fakeSecrets) PopulateCredentials(integrations []models.Integration) ([]models.Integration, error) {
	return integrations, nil
}

type fakeParser struct {
	event          *models.AlertEvent
	err            error
	gotIntegration models.Integration
}

func (p *fakeParser) Source() string { return models.VendorPagerDuty }

func (p *fakeParser) ParseAlert(_ context.Context, integration models.Integration, _ string) (*models.AlertEvent, error) {
	p.gotIntegration = integration
	return p.event, p.err
}

type fakeLogProvider struct {
	fetch    *vendors.LogFetch
	fetchErr error
}

func (p *fakeLogProvider) Vendor() string { return models.VendorCoralogix }

func (p *fakeLogProvider) FetchLogs(_ context.Context, _ models.Integration, _ string, _, _ time.Time, _ int) (*vendors.LogFetch, error) {
	return p.fetch, p.fetchErr
}

func (p *fakeLogProvider) TestConnection(_ context.Context, _ models.Integration) error {
	return p.fetchErr
}

type fakeClusterer struct {
	clusters []models.LogCluster
	err      error
}

func (c *fakeClusterer) Parse(_ context.Context, _ string, _ json.RawMessage, _, _ string) ([]models.LogCluster, error) {
	return c.clusters, c.err
}

const testIncident = "Disk usage at 95% on host web-3"

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		QueryCount:       3,
		TopKPerQuery:     3,
		TopDocuments:     3,
		LogSampleSize:    2,
		LogFetchLimit:    200,
		MaxLogChars:      10000,
		DefaultTimeframe: models.TimeframeLast24H,
		CallTimeout:      10 * time.Second,
	}
}

func newTestEngine(t *testing.T, store repository.Store, llmClient *fakeLLM, searcher DocumentSearcher, registry *vendors.Registry, clusterer Clusterer) *Engine {
	t.Helper()
	if registry == nil {
		registry = vendors.NewRegistry()
	}
	if clusterer == nil {
		clusterer = &fakeClusterer{}
	}
	opener := OpenerFunc(func(_, _ string) DocumentSearcher { return searcher })
	return NewEngine(store, fakeSecrets{}, opener, llmClient, registry, clusterer,
		nil, logging.New(slog.LevelError, "text"), testPipelineConfig(), "test")
}

func seedStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	store.AddOrganization(models.Organization{ID: "org-1", Name: "Acme"})
	store.AddIndex(models.KnowledgeBaseIndex{
		ID: "idx-1", OrganizationID: "org-1", Name: "acme", Type: "runbooks",
	})
	store.AddIntegration(models.Integration{
		ID: "int-pd", OrganizationID: "org-1", Vendor: models.VendorPagerDuty,
	})
	return store
}

// ============================================================================
// Preconditions
// ============================================================================

func TestRunRCA_Preconditions(t *testing.T) {
	llmClient := &fakeLLM{}

	t.Run("unknown organization", func(t *testing.T) {
		engine := newTestEngine(t, repository.NewMemoryStore(), llmClient, &fakeSearcher{}, nil, nil)
		_, err := engine.RunRCA(context.Background(), "evt-1", models.VendorPagerDuty, "org-missing")
		assert.ErrorIs(t, err, ErrOrganizationNotFound)
	})

	t.Run("no knowledge base", func(t *testing.T) {
		store := repository.NewMemoryStore()
		store.AddOrganization(models.Organization{ID: "org-1", Name: "Acme"})
		engine := newTestEngine(t, store, llmClient, &fakeSearcher{}, nil, nil)
		_, err := engine.RunRCA(context.Background(), "evt-1", models.VendorPagerDuty, "org-1")
		assert.ErrorIs(t, err, ErrKnowledgeBaseNotConfigured)
	})

	t.Run("no integrations", func(t *testing.T) {
		store := repository.NewMemoryStore()
		store.AddOrganization(models.Organization{ID: "org-1", Name: "Acme"})
		store.AddIndex(models.KnowledgeBaseIndex{ID: "idx-1", OrganizationID: "org-1", Name: "acme", Type: "runbooks"})
		engine := newTestEngine(t, store, llmClient, &fakeSearcher{}, nil, nil)
		_, err := engine.RunRCA(context.Background(), "evt-1", models.VendorPagerDuty, "org-1")
		assert.ErrorIs(t, err, ErrNoIntegrations)
	})

	t.Run("unknown event source", func(t *testing.T) {
		engine := newTestEngine(t, seedStore(t), llmClient, &fakeSearcher{}, vendors.NewRegistry(), nil)
		_, err := engine.RunRCA(context.Background(), "evt-1", "opsgenie", "org-1")
		assert.ErrorIs(t, err, ErrUnknownEventSource)
	})

	t.Run("no integration for event source", func(t *testing.T) {
		store := repository.NewMemoryStore()
		store.AddOrganization(models.Organization{ID: "org-1", Name: "Acme"})
		store.AddIndex(models.KnowledgeBaseIndex{ID: "idx-1", OrganizationID: "org-1", Name: "acme", Type: "runbooks"})
		store.AddIntegration(models.Integration{ID: "int-cx", OrganizationID: "org-1", Vendor: models.VendorCoralogix})

		registry := vendors.NewRegistry()
		registry.RegisterAlertParser(&fakeParser{})

		engine := newTestEngine(t, store, llmClient, &fakeSearcher{}, registry, nil)
		_, err := engine.RunRCA(context.Background(), "evt-1", models.VendorPagerDuty, "org-1")
		assert.ErrorIs(t, err, ErrNoVendorIntegration)
	})
}

func TestFetchAlert_UsesVendorIntegration(t *testing.T) {
	store := seedStore(t)
	store.AddIntegration(models.Integration{
		ID: "int-cx", OrganizationID: "org-1", Vendor: models.VendorCoralogix,
	})

	parser := &fakeParser{event: &models.AlertEvent{Source: models.VendorPagerDuty, Message: testIncident}}
	registry := vendors.NewRegistry()
	registry.RegisterAlertParser(parser)

	engine := newTestEngine(t, store, &fakeLLM{}, &fakeSearcher{}, registry, nil)

	event, err := engine.fetchAlert(context.Background(), "evt-1", models.VendorPagerDuty, "org-1")
	require.NoError(t, err)
	assert.Equal(t, testIncident, event.Message)
	assert.Equal(t, "int-pd", parser.gotIntegration.ID,
		"the parser receives the organization's integration for the event source")
}

// ============================================================================
// Query generation
// ============================================================================

func TestGenerateQueries(t *testing.T) {
	tests := []struct {
		name       string
		completion string
		want       []string
		wantErr    error
	}{
		{
			name:       "plain JSON object",
			completion: `{"queries": ["disk usage host web-3", "web-3 alerts", "disk space incidents"]}`,
			want:       []string{"disk usage host web-3", "web-3 alerts", "disk space incidents"},
		},
		{
			name:       "fenced JSON",
			completion: "```json\n{\"queries\": [\"disk usage host web-3\"]}\n```",
			want:       []string{"disk usage host web-3"},
		},
		{
			name:       "empty query list",
			completion: `{"queries": []}`,
			wantErr:    ErrNoQueries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llmClient := &fakeLLM{
				onQueries: func(string) (string, error) { return tt.completion, nil },
			}
			engine := newTestEngine(t, seedStore(t), llmClient, &fakeSearcher{}, nil, nil)

			queries, err := engine.generateQueries(context.Background(), testIncident)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, queries)
		})
	}
}

func TestGenerateQueries_UnparseableResponse(t *testing.T) {
	llmClient := &fakeLLM{
		onQueries: func(string) (string, error) { return "I could not think of any queries.", nil },
	}
	engine := newTestEngine(t, seedStore(t), llmClient, &fakeSearcher{}, nil, nil)

	_, err := engine.generateQueries(context.Background(), testIncident)
	assert.Error(t, err)
}

func TestGenerateQueries_IncidentInPrompt(t *testing.T) {
	var captured string
	llmClient := &fakeLLM{
		onQueries: func(prompt string) (string, error) {
			captured = prompt
			return `{"queries": ["disk usage host web-3"]}`, nil
		},
	}
	engine := newTestEngine(t, seedStore(t), llmClient, &fakeSearcher{}, nil, nil)

	_, err := engine.generateQueries(context.Background(), testIncident)
	require.NoError(t, err)
	assert.Contains(t, captured, testIncident)
}

// ============================================================================
// End to end
// ============================================================================

func TestRunRCA_EndToEnd(t *testing.T) {
	const analysis = "Root cause: the nightly backup filled /var on web-3."

	store := seedStore(t)
	store.AddIntegration(models.Integration{
		ID: "int-cx", OrganizationID: "org-1", Vendor: models.VendorCoralogix,
	})

	registry := vendors.NewRegistry()
	registry.RegisterAlertParser(&fakeParser{event: &models.AlertEvent{
		Source:    models.VendorPagerDuty,
		Message:   testIncident,
		CreatedAt: time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC),
	}})
	registry.RegisterLogTool(&fakeLogProvider{fetch: &vendors.LogFetch{
		Raw: json.RawMessage(`{"result":{"results":[]}}`),
		Rows: []vendors.LogRow{
			{Data: map[string]any{"severity": "error", "message": "disk full"}, Raw: `{"severity":"error","message":"disk full"}`},
		},
	}})

	var summarizePrompt string
	llmClient := &fakeLLM{
		onQueries: func(string) (string, error) {
			return `{"queries": ["disk usage host web-3", "web-3 alerts", "disk space incidents"]}`, nil
		},
		onVerify: func(string) (string, error) { return "true", nil },
		onExtractKeys: func(string) (string, error) {
			return `{"severityKey": "severity", "messageKey": "message"}`, nil
		},
		onSummarize: func(prompt string) (string, error) {
			summarizePrompt = prompt
			return analysis, nil
		},
	}

	searcher := &fakeSearcher{docs: map[string][]models.Document{
		"disk usage host web-3": {{Text: "Runbook: clear /var on web hosts", Score: 0.92}},
		"web-3 alerts":          {{Text: "Postmortem: web-3 disk alerts in June", Score: 0.81}},
		"disk space incidents":  nil,
	}}

	clusterer := &fakeClusterer{clusters: []models.LogCluster{
		{Level: "error", EventTemplate: "disk full on <*>", Occurrences: 40, Percentage: 80},
	}}

	engine := newTestEngine(t, store, llmClient, searcher, registry, clusterer)

	got, err := engine.RunRCA(context.Background(), "evt-1", models.VendorPagerDuty, "org-1")
	require.NoError(t, err)
	assert.Equal(t, analysis, got, "the summarizer output is returned verbatim")

	// The summarization prompt carries all three phases.
	assert.Contains(t, summarizePrompt, testIncident)
	assert.Contains(t, summarizePrompt, "Runbook: clear /var on web hosts")
	assert.Contains(t, summarizePrompt, "disk full on <*>")
}

func TestRunRCA_NoLogCapableVendor(t *testing.T) {
	const analysis = "analysis text"

	registry := vendors.NewRegistry()
	registry.RegisterAlertParser(&fakeParser{event: &models.AlertEvent{
		Source:  models.VendorPagerDuty,
		Message: testIncident,
	}})

	var summarizePrompt string
	llmClient := &fakeLLM{
		onQueries: func(string) (string, error) {
			return `{"queries": ["disk usage host web-3"]}`, nil
		},
		onVerify: func(string) (string, error) { return "true", nil },
		onSummarize: func(prompt string) (string, error) {
			summarizePrompt = prompt
			return analysis, nil
		},
	}
	searcher := &fakeSearcher{docs: map[string][]models.Document{
		"disk usage host web-3": {{Text: "doc", Score: 1}},
	}}

	engine := newTestEngine(t, seedStore(t), llmClient, searcher, registry, nil)

	got, err := engine.RunRCA(context.Background(), "evt-1", models.VendorPagerDuty, "org-1")
	require.NoError(t, err)
	assert.Equal(t, analysis, got)
	assert.Contains(t, summarizePrompt, "no additional information",
		"missing log analysis is replaced by the placeholder")
}

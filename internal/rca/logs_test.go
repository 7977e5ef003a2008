package rca

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/vendors"
)

func logFetchFixture() *vendors.LogFetch {
	return &vendors.LogFetch{
		Raw: json.RawMessage(`{"result":{"results":[{"userData":"{}"}]}}`),
		Rows: []vendors.LogRow{
			{Data: map[string]any{"severity": "error", "message": "disk full"}, Raw: `{"severity":"error","message":"disk full"}`},
			{Data: map[string]any{"severity": "info", "message": "backup started"}, Raw: `{"severity":"info","message":"backup started"}`},
			{Data: map[string]any{"severity": "error", "message": "disk full"}, Raw: `{"severity":"error","message":"disk full"}`},
		},
	}
}

func logRun() models.RunContext {
	return models.RunContext{OrganizationID: "org-1", EventID: "evt-1"}
}

func TestAnalyzeLogs_Clusters(t *testing.T) {
	registry := vendors.NewRegistry()
	registry.RegisterLogTool(&fakeLogProvider{fetch: logFetchFixture()})

	llmClient := &fakeLLM{
		onExtractKeys: func(string) (string, error) {
			return `{"severityKey": "severity", "messageKey": "message"}`, nil
		},
	}
	clusterer := &fakeClusterer{clusters: []models.LogCluster{
		{Level: "error", EventTemplate: "disk full", Occurrences: 2, Percentage: 66.7},
		{Level: "info", EventTemplate: "backup started", Occurrences: 1, Percentage: 33.3,
			Extra: map[string]any{"ParameterList": []any{"nightly"}}},
	}}
	engine := newTestEngine(t, seedStore(t), llmClient, &fakeSearcher{}, registry, clusterer)

	integrations := []models.Integration{{ID: "int-cx", Vendor: models.VendorCoralogix}}
	out := engine.analyzeLogs(context.Background(), integrations, logRun(), models.TimeframeLast24H)

	assert.Contains(t, out, "Log aggregation/cluster analysis:")
	assert.Contains(t, out, "Cluster: 1")
	assert.Contains(t, out, "Log level: error")
	assert.Contains(t, out, "Log template: disk full")
	assert.Contains(t, out, "Occurrences: 2")
	assert.Contains(t, out, "Cluster: 2")
	assert.Contains(t, out, "Additional cluster info")
	assert.Contains(t, out, "ParameterList")
}

func TestAnalyzeLogs_NoLogCapableVendor(t *testing.T) {
	engine := newTestEngine(t, seedStore(t), &fakeLLM{}, &fakeSearcher{}, vendors.NewRegistry(), nil)

	integrations := []models.Integration{{ID: "int-pd", Vendor: models.VendorPagerDuty}}
	out := engine.analyzeLogs(context.Background(), integrations, logRun(), models.TimeframeLast24H)
	assert.Empty(t, out)
}

func TestAnalyzeLogs_FetchFailureSkipsAnalysis(t *testing.T) {
	registry := vendors.NewRegistry()
	registry.RegisterLogTool(&fakeLogProvider{fetchErr: errors.New("dataprime timed out")})

	engine := newTestEngine(t, seedStore(t), &fakeLLM{}, &fakeSearcher{}, registry, nil)

	integrations := []models.Integration{{ID: "int-cx", Vendor: models.VendorCoralogix}}
	out := engine.analyzeLogs(context.Background(), integrations, logRun(), models.TimeframeLast24H)
	assert.Empty(t, out, "a fetch failure degrades to no analysis")
}

func TestAnalyzeLogs_NoRows(t *testing.T) {
	registry := vendors.NewRegistry()
	registry.RegisterLogTool(&fakeLogProvider{fetch: &vendors.LogFetch{
		Raw: json.RawMessage(`{"result":{"results":[]}}`),
	}})

	engine := newTestEngine(t, seedStore(t), &fakeLLM{}, &fakeSearcher{}, registry, nil)

	integrations := []models.Integration{{ID: "int-cx", Vendor: models.VendorCoralogix}}
	out := engine.analyzeLogs(context.Background(), integrations, logRun(), models.TimeframeLast24H)
	assert.Empty(t, out)
}

func TestAnalyzeLogs_RawFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		llmClient *fakeLLM
		clusterer Clusterer
	}{
		{
			name: "clustering service failure",
			llmClient: &fakeLLM{
				onExtractKeys: func(string) (string, error) {
					return `{"severityKey": "severity", "messageKey": "message"}`, nil
				},
			},
			clusterer: &fakeClusterer{err: errors.New("clustering unavailable")},
		},
		{
			name: "missing structural keys",
			llmClient: &fakeLLM{
				onExtractKeys: func(string) (string, error) {
					return `{"severityKey": "", "messageKey": ""}`, nil
				},
			},
			clusterer: &fakeClusterer{},
		},
		{
			name: "unparseable key extraction",
			llmClient: &fakeLLM{
				onExtractKeys: func(string) (string, error) {
					return "the severity field looks like `severity`", nil
				},
			},
			clusterer: &fakeClusterer{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := vendors.NewRegistry()
			registry.RegisterLogTool(&fakeLogProvider{fetch: logFetchFixture()})
			engine := newTestEngine(t, seedStore(t), tt.llmClient, &fakeSearcher{}, registry, tt.clusterer)

			integrations := []models.Integration{{ID: "int-cx", Vendor: models.VendorCoralogix}}
			out := engine.analyzeLogs(context.Background(), integrations, logRun(), models.TimeframeLast24H)

			assert.True(t, strings.HasPrefix(out, "Could not run log clustering. Here are the raw logs instead:\n"))
			assert.Contains(t, out, "disk full")
		})
	}
}

func TestAnalyzeLogs_FallbackRespectsCharLimit(t *testing.T) {
	fetch := &vendors.LogFetch{Raw: json.RawMessage(`{}`)}
	for i := 0; i < 500; i++ {
		fetch.Rows = append(fetch.Rows, vendors.LogRow{
			Data: map[string]any{"message": strings.Repeat("x", 100)},
		})
	}

	registry := vendors.NewRegistry()
	registry.RegisterLogTool(&fakeLogProvider{fetch: fetch})
	llmClient := &fakeLLM{
		onExtractKeys: func(string) (string, error) { return `{"severityKey":"","messageKey":""}`, nil },
	}
	engine := newTestEngine(t, seedStore(t), llmClient, &fakeSearcher{}, registry, &fakeClusterer{})

	integrations := []models.Integration{{ID: "int-cx", Vendor: models.VendorCoralogix}}
	out := engine.analyzeLogs(context.Background(), integrations, logRun(), models.TimeframeLast24H)

	const prefix = "Could not run log clustering. Here are the raw logs instead:\n"
	require.True(t, strings.HasPrefix(out, prefix))
	assert.LessOrEqual(t, len(out)-len(prefix), 10000)
}

func TestLimitLogs(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		maxChars int
		want     string
	}{
		{name: "under the limit", payload: "short", maxChars: 10, want: "short"},
		{name: "no limit", payload: "anything", maxChars: 0, want: "anything"},
		{name: "exact ascii cut", payload: "abcdef", maxChars: 4, want: "abcd"},
		{name: "cut inside a rune backs off", payload: "abécd", maxChars: 3, want: "ab"},
		{name: "cut on a rune boundary", payload: "abécd", maxChars: 4, want: "abé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := limitLogs(tt.payload, tt.maxChars)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestSampleRecords(t *testing.T) {
	rows := []vendors.LogRow{
		{Data: map[string]any{"message": "first"}},
		{Data: map[string]any{"message": "second"}},
		{Data: map[string]any{"message": "third"}},
	}

	sample := sampleRecords(rows, 2)
	require.Len(t, sample, 2)
	assert.Contains(t, sample[0], "first")
	assert.Contains(t, sample[1], "second")
}

func TestSampleRecords_RawRowsKeptVerbatim(t *testing.T) {
	rows := []vendors.LogRow{
		{Raw: "plain text log line"},
		{Data: map[string]any{"message": "structured"}},
	}

	sample := sampleRecords(rows, 5)
	require.Len(t, sample, 2)
	assert.Equal(t, "plain text log line", sample[0])
}

func TestBuildIncidentPrompt(t *testing.T) {
	event := &models.AlertEvent{
		Source:  models.VendorPagerDuty,
		Message: testIncident,
		Data:    map[string]any{"host": "web-3"},
	}

	prompt := buildIncidentPrompt(event)
	assert.Contains(t, prompt, "Source: pagerduty")
	assert.Contains(t, prompt, "Message: "+testIncident)
	assert.Contains(t, prompt, `"host": "web-3"`)
	assert.NotContains(t, prompt, "Created at:", "zero timestamps are omitted")
}

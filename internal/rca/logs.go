package rca

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/causeway-ops/causeway/internal/llm"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/metrics"
	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/vendors"
)

// analyzeLogs runs the log-clustering sub-pipeline. Unlike the RAG phase it
// degrades instead of aborting: structural-key extraction or clustering
// failures fall back to the size-limited raw logs, and a fetch failure
// returns no analysis at all. An empty string means "no log analysis".
func (e *Engine) analyzeLogs(ctx context.Context, integrations []models.Integration, run models.RunContext, timeframe models.Timeframe) string {
	defer stage("analyze-logs")()

	integration, provider, ok := e.registry.FirstLogCapable(integrations)
	if !ok {
		return ""
	}

	if !timeframe.Valid() {
		timeframe = models.TimeframeLast24H
	}
	start, end, err := timeframe.Range(time.Now().UTC())
	if err != nil {
		e.log.WarnContext(ctx, "invalid log timeframe", logging.Error(err))
		return ""
	}

	callCtx, cancel := e.callCtx(ctx)
	fetch, err := provider.FetchLogs(callCtx, integration, "", start, end, e.cfg.LogFetchLimit)
	cancel()
	if err != nil {
		e.log.WarnContext(ctx, "log fetch failed, skipping log analysis",
			logging.Stage("analyze-logs"), logging.Vendor(integration.Vendor),
			logging.EventID(run.EventID), logging.Error(err))
		return ""
	}
	if len(fetch.Rows) == 0 {
		return ""
	}

	analysis, err := e.clusterLogs(ctx, integration.Vendor, fetch)
	if err != nil {
		metrics.LogAnalysisFallbacks.Inc()
		e.log.WarnContext(ctx, "log clustering failed, falling back to raw logs",
			logging.Stage("analyze-logs"), logging.Vendor(integration.Vendor),
			logging.EventID(run.EventID), logging.Error(err))
		return rawLogFallback(fetch.Rows, e.cfg.MaxLogChars)
	}
	return analysis
}

// clusterLogs infers the structural keys from a small sample and sends the
// full raw batch to the clustering service.
func (e *Engine) clusterLogs(ctx context.Context, vendor string, fetch *vendors.LogFetch) (string, error) {
	sample := sampleRecords(fetch.Rows, e.cfg.LogSampleSize)

	severityKey, messageKey, err := e.extractLogKeys(ctx, sample)
	if err != nil {
		return "", err
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()
	clusters, err := e.clusterer.Parse(callCtx, vendor, fetch.Raw, severityKey, messageKey)
	if err != nil {
		return "", fmt.Errorf("cluster logs: %w", err)
	}
	return formatClusters(clusters), nil
}

// extractLogKeys asks the completion service which fields hold severity and
// message. Empty keys are a contract violation, not a soft miss.
func (e *Engine) extractLogKeys(ctx context.Context, sample []string) (string, string, error) {
	prompt, err := llm.RenderExtractLogKeys(sample)
	if err != nil {
		return "", "", err
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()
	content, err := e.llm.Complete(callCtx, prompt)
	if err != nil {
		return "", "", fmt.Errorf("extract log keys: %w", err)
	}

	var parsed struct {
		SeverityKey string `json:"severityKey"`
		MessageKey  string `json:"messageKey"`
	}
	if err := json.Unmarshal(extractJSONObject(content), &parsed); err != nil {
		return "", "", fmt.Errorf("parse log keys: %w", err)
	}
	if parsed.SeverityKey == "" || parsed.MessageKey == "" {
		return "", "", ErrMissingLogKeys
	}
	return parsed.SeverityKey, parsed.MessageKey, nil
}

// sampleRecords serializes up to n decoded rows as compact JSON strings.
func sampleRecords(rows []vendors.LogRow, n int) []string {
	if n <= 0 {
		n = 2
	}
	if n > len(rows) {
		n = len(rows)
	}

	sample := make([]string, 0, n)
	for _, row := range rows[:n] {
		if row.Data == nil {
			sample = append(sample, row.Raw)
			continue
		}
		if data, err := json.Marshal(row.Data); err == nil {
			sample = append(sample, string(data))
		}
	}
	return sample
}

// formatClusters renders clusters as prose blocks for the summarization
// prompt.
func formatClusters(clusters []models.LogCluster) string {
	blocks := make([]string, 0, len(clusters))
	for i, cluster := range clusters {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Cluster: %d\n", i+1)
		fmt.Fprintf(&sb, "Log level: %s\n", cluster.Level)
		fmt.Fprintf(&sb, "Log template: %s\n", cluster.EventTemplate)
		fmt.Fprintf(&sb, "Occurrences: %d\n", cluster.Occurrences)
		fmt.Fprintf(&sb, "Percentage: %g\n", cluster.Percentage)
		if len(cluster.Extra) > 0 {
			if extra, err := json.MarshalIndent(cluster.Extra, "", "  "); err == nil {
				fmt.Fprintf(&sb, "Additional cluster info: %s\n", extra)
			}
		}
		blocks = append(blocks, sb.String())
	}
	return "Log aggregation/cluster analysis:\n" + strings.Join(blocks, "\n----------------\n")
}

// rawLogFallback serializes the decoded rows, bounded to maxChars.
func rawLogFallback(rows []vendors.LogRow, maxChars int) string {
	records := make([]any, 0, len(rows))
	for _, row := range rows {
		if row.Data != nil {
			records = append(records, row.Data)
			continue
		}
		records = append(records, row.Raw)
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return ""
	}
	return "Could not run log clustering. Here are the raw logs instead:\n" +
		limitLogs(string(payload), maxChars)
}

// limitLogs truncates a log payload to at most maxChars bytes, without
// splitting a multibyte rune.
func limitLogs(payload string, maxChars int) string {
	if maxChars <= 0 || len(payload) <= maxChars {
		return payload
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(payload[cut]) {
		cut--
	}
	return payload[:cut]
}

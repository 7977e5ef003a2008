package rca

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/causeway-ops/causeway/internal/llm"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/metrics"
	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/repository"
	"github.com/causeway-ops/causeway/internal/telemetry"
)

// noAdditionalInfo is embedded in the summarization prompt when the log
// phase produced nothing.
const noAdditionalInfo = "no additional information"

// RunRCA investigates a single incident end to end and returns the
// root-cause analysis text. Stages run strictly in sequence; only the
// log-analysis stage recovers from its own failures.
func (e *Engine) RunRCA(ctx context.Context, eventID, eventSource, organizationID string) (string, error) {
	ctx = logging.ContextWithRunID(ctx, uuid.NewString())
	start := time.Now()

	analysis, run, err := e.runPipeline(ctx, eventID, eventSource, organizationID)
	if err != nil {
		metrics.RCARunsTotal.WithLabelValues("failed").Inc()
		e.publisher.Publish(ctx, telemetry.SubjectRCAFailed, run, map[string]any{
			"error": err.Error(),
		})
		return "", err
	}

	metrics.RCARunsTotal.WithLabelValues("completed").Inc()
	e.publisher.Publish(ctx, telemetry.SubjectRCACompleted, run, map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return analysis, nil
}

func (e *Engine) runPipeline(ctx context.Context, eventID, eventSource, organizationID string) (string, models.RunContext, error) {
	run := models.RunContext{
		OrganizationID: organizationID,
		Env:            e.env,
		EventID:        eventID,
		Context:        "trigger-" + eventSource,
	}

	// Preconditions: organization, knowledge base, integrations.
	org, err := e.store.GetOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", run, ErrOrganizationNotFound
		}
		return "", run, fmt.Errorf("fetch organization: %w", err)
	}
	run.OrganizationName = org.Name

	index, err := e.store.GetIndex(ctx, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", run, ErrKnowledgeBaseNotConfigured
		}
		return "", run, fmt.Errorf("fetch knowledge-base index: %w", err)
	}

	integrations, err := e.store.ListIntegrations(ctx, organizationID)
	if err != nil {
		return "", run, fmt.Errorf("list integrations: %w", err)
	}
	if len(integrations) == 0 {
		return "", run, ErrNoIntegrations
	}

	populated, err := e.secrets.PopulateCredentials(integrations)
	if err != nil {
		return "", run, fmt.Errorf("populate credentials: %w", err)
	}

	event, err := e.fetchAlert(ctx, eventID, eventSource, organizationID)
	if err != nil {
		return "", run, err
	}
	incidentText := buildIncidentPrompt(event)

	e.log.InfoContext(ctx, "starting investigation",
		logging.OrgID(organizationID), logging.EventID(eventID), "source", eventSource)

	// Phase 1 - information retrieval from the knowledge base.
	queries, err := e.generateQueries(ctx, incidentText)
	if err != nil {
		return "", run, err
	}

	searcher := e.indices.Open(index.Name, index.Type)
	documents, err := e.runQueries(ctx, searcher, queries)
	if err != nil {
		return "", run, err
	}

	filtered, err := e.filterDocuments(ctx, incidentText, documents)
	if err != nil {
		return "", run, err
	}
	contextText := rankDocuments(filtered, e.cfg.TopDocuments)

	// Phase 2 - log analysis; degrades, never aborts.
	logsText := e.analyzeLogs(ctx, populated, run, e.cfg.DefaultTimeframe)

	// Phase 3 - summarization.
	analysis, err := e.summarize(ctx, incidentText, contextText, logsText)
	if err != nil {
		return "", run, err
	}
	return analysis, run, nil
}

// summarize renders the final investigation prompt and returns the completion
// verbatim.
func (e *Engine) summarize(ctx context.Context, incidentText, contextText, logsText string) (string, error) {
	defer stage("summarize")()

	if logsText == "" {
		logsText = noAdditionalInfo
	}

	prompt, err := llm.RenderInvestigation(incidentText, contextText, logsText)
	if err != nil {
		return "", err
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()
	analysis, err := e.llm.Complete(callCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return analysis, nil
}

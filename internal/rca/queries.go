package rca

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/causeway-ops/causeway/internal/llm"
	"github.com/causeway-ops/causeway/internal/logging"
)

// generateQueries asks the completion service for search queries covering the
// incident. An unparseable or empty response fails the run.
func (e *Engine) generateQueries(ctx context.Context, incidentText string) ([]string, error) {
	defer stage("generate-queries")()

	nQueries := e.cfg.QueryCount
	if nQueries <= 0 {
		nQueries = 3
	}

	prompt, err := llm.RenderGenerateQueries(incidentText, nQueries)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()
	content, err := e.llm.Complete(callCtx, prompt)
	if err != nil {
		e.log.ErrorContext(ctx, "error generating queries",
			logging.Stage("generate-queries"), logging.Error(err), "incident", incidentText)
		return nil, fmt.Errorf("generate queries: %w", err)
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal(extractJSONObject(content), &parsed); err != nil {
		e.log.ErrorContext(ctx, "error parsing generated queries",
			logging.Stage("generate-queries"), logging.Error(err), "incident", incidentText)
		return nil, fmt.Errorf("parse generated queries: %w", err)
	}
	if len(parsed.Queries) == 0 {
		e.log.ErrorContext(ctx, "no queries generated",
			logging.Stage("generate-queries"), "incident", incidentText)
		return nil, ErrNoQueries
	}
	return parsed.Queries, nil
}

// extractJSONObject strips markdown fences and any surrounding prose from a
// completion, keeping the outermost JSON object. Completion services wrap
// JSON in ```json blocks often enough that this cannot be skipped.
func extractJSONObject(content string) []byte {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return []byte(content)
	}
	return []byte(content[start : end+1])
}

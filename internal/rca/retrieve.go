package rca

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/causeway-ops/causeway/internal/llm"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/metrics"
	"github.com/causeway-ops/causeway/internal/models"
)

// runQueries executes every query against the index concurrently and joins
// the results in query-submission order.
func (e *Engine) runQueries(ctx context.Context, index DocumentSearcher, queries []string) ([]models.Document, error) {
	defer stage("retrieve")()

	topK := e.cfg.TopKPerQuery
	if topK <= 0 {
		topK = 3
	}

	results := make([][]models.Document, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			callCtx, cancel := e.callCtx(ctx)
			defer cancel()
			results[i], errs[i] = index.Query(callCtx, query, topK)
		}(i, query)
	}
	wg.Wait()

	var docs []models.Document
	for i := range queries {
		if errs[i] != nil {
			return nil, fmt.Errorf("query %q: %w", queries[i], errs[i])
		}
		docs = append(docs, results[i]...)
	}

	metrics.DocumentsRetrieved.Add(float64(len(docs)))
	return docs, nil
}

// verifyDocument asks the completion service whether a single document is
// relevant. The service is instructed to answer strictly true or false; an
// answer that is neither fails the run.
func (e *Engine) verifyDocument(ctx context.Context, incidentText, document string) (bool, error) {
	prompt, err := llm.RenderVerifyDocument(incidentText, document)
	if err != nil {
		return false, err
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()
	content, err := e.llm.Complete(callCtx, prompt)
	if err != nil {
		return false, fmt.Errorf("verify document: %w", err)
	}

	answer, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(content)))
	if err != nil {
		e.log.ErrorContext(ctx, "error parsing relevance verification",
			logging.Stage("filter"), logging.Error(err), "answer", content)
		return false, fmt.Errorf("parse relevance verification %q: %w", content, err)
	}
	return answer, nil
}

// filterDocuments verifies every document concurrently and keeps the relevant
// ones, preserving the input order. One failed verification fails the whole
// run; there is no partial-result fallback.
func (e *Engine) filterDocuments(ctx context.Context, incidentText string, docs []models.Document) ([]models.Document, error) {
	defer stage("filter")()

	keep := make([]bool, len(docs))
	errs := make([]error, len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			keep[i], errs[i] = e.verifyDocument(ctx, incidentText, text)
		}(i, doc.Text)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	filtered := make([]models.Document, 0, len(docs))
	for i, doc := range docs {
		if keep[i] {
			filtered = append(filtered, doc)
		}
	}

	metrics.DocumentsKept.Add(float64(len(filtered)))
	return filtered, nil
}

// Package rca implements the incident-investigation pipeline: alert
// normalization, retrieval-augmented context building, log clustering and
// final summarization.
package rca

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/causeway-ops/causeway/internal/config"
	"github.com/causeway-ops/causeway/internal/llm"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/metrics"
	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/repository"
	"github.com/causeway-ops/causeway/internal/telemetry"
	"github.com/causeway-ops/causeway/internal/vendors"
)

// Pipeline precondition and stage errors.
var (
	ErrOrganizationNotFound       = errors.New("organization not found")
	ErrKnowledgeBaseNotConfigured = errors.New("knowledge base is not set up, analysis cannot be done")
	ErrNoIntegrations             = errors.New("no integrations found")
	ErrUnknownEventSource         = errors.New("unknown event source")
	ErrNoVendorIntegration        = errors.New("no integration for event source")
	ErrNoQueries                  = errors.New("no queries generated")
	ErrMissingLogKeys             = errors.New("failed to extract log structure keys")
)

// DocumentSearcher runs similarity queries against one knowledge-base index.
type DocumentSearcher interface {
	Query(ctx context.Context, query string, topK int) ([]models.Document, error)
}

// IndexOpener hands out search handles keyed by index name and type.
type IndexOpener interface {
	Open(name, indexType string) DocumentSearcher
}

// OpenerFunc adapts a function to IndexOpener.
type OpenerFunc func(name, indexType string) DocumentSearcher

// Open implements IndexOpener.
func (f OpenerFunc) Open(name, indexType string) DocumentSearcher {
	return f(name, indexType)
}

// SecretManager populates integration credentials before a run.
type SecretManager interface {
	PopulateCredentials(integrations []models.Integration) ([]models.Integration, error)
}

// Clusterer groups a raw log batch into structural clusters.
type Clusterer interface {
	Parse(ctx context.Context, vendor string, logs json.RawMessage, severityKey, messageKey string) ([]models.LogCluster, error)
}

// Engine owns the end-to-end investigation control flow. All collaborators
// are injected so stages can be exercised with test doubles.
type Engine struct {
	store     repository.Store
	secrets   SecretManager
	indices   IndexOpener
	llm       llm.Client
	registry  *vendors.Registry
	clusterer Clusterer
	publisher *telemetry.Publisher
	log       *logging.Logger
	cfg       config.PipelineConfig
	env       string
}

// NewEngine wires the pipeline collaborators together.
func NewEngine(
	store repository.Store,
	secretMgr SecretManager,
	indices IndexOpener,
	llmClient llm.Client,
	registry *vendors.Registry,
	clusterer Clusterer,
	publisher *telemetry.Publisher,
	log *logging.Logger,
	cfg config.PipelineConfig,
	env string,
) *Engine {
	return &Engine{
		store:     store,
		secrets:   secretMgr,
		indices:   indices,
		llm:       llmClient,
		registry:  registry,
		clusterer: clusterer,
		publisher: publisher,
		log:       log,
		cfg:       cfg,
		env:       env,
	}
}

// callCtx bounds a single external call with the configured per-call timeout.
func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.CallTimeout)
}

// stage times one pipeline stage; the returned func records the duration.
func stage(name string) func() {
	start := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

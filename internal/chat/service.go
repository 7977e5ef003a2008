// Package chat provides the conversational completion endpoint with a
// per-organization query quota.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/causeway-ops/causeway/internal/llm"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/metrics"
	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/repository"
	"github.com/causeway-ops/causeway/internal/telemetry"
)

// Chat request validation errors.
var (
	ErrNoMessages     = errors.New("no messages provided")
	ErrNoIntegrations = errors.New("no integrations found")
)

// Service answers conversational requests scoped to an organization.
type Service struct {
	llm          llm.Client
	integrations repository.Integrations
	quota        *Quota
	publisher    *telemetry.Publisher
	log          *logging.Logger
	env          string
}

// NewService wires the chat collaborators together.
func NewService(llmClient llm.Client, integrations repository.Integrations, quota *Quota, publisher *telemetry.Publisher, log *logging.Logger, env string) *Service {
	return &Service{
		llm:          llmClient,
		integrations: integrations,
		quota:        quota,
		publisher:    publisher,
		log:          log,
		env:          env,
	}
}

// Complete validates the request, charges the quota and returns the
// assistant reply for the conversation. The second return value is the
// organization's remaining window budget; nil when no quota is configured.
func (s *Service) Complete(ctx context.Context, organizationID string, messages []models.ChatMessage) (string, *int, error) {
	if len(messages) == 0 {
		return "", nil, ErrNoMessages
	}

	integrations, err := s.integrations.ListIntegrations(ctx, organizationID)
	if err != nil {
		return "", nil, fmt.Errorf("list integrations: %w", err)
	}
	if len(integrations) == 0 {
		return "", nil, ErrNoIntegrations
	}

	if err := s.quota.Allow(ctx, organizationID); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			metrics.QuotaRejections.Inc()
		}
		return "", nil, err
	}

	prompt, err := llm.RenderConversation(messages)
	if err != nil {
		return "", nil, err
	}

	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		metrics.ChatCompletionsTotal.WithLabelValues("failed").Inc()
		return "", nil, fmt.Errorf("chat completion: %w", err)
	}

	var remaining *int
	if s.quota != nil {
		if left, err := s.quota.Remaining(ctx, organizationID); err == nil {
			remaining = &left
		}
	}

	metrics.ChatCompletionsTotal.WithLabelValues("completed").Inc()
	s.publisher.Publish(ctx, telemetry.SubjectChatCompleted, models.RunContext{
		OrganizationID: organizationID,
		Env:            s.env,
		Context:        "chat",
	}, map[string]any{
		"messages": len(messages),
	})
	return reply, remaining, nil
}

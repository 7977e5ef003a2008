// Package telemetry publishes fire-and-forget service events on NATS.
// Publishing is best effort: failures are counted and logged, never surfaced
// to the pipeline.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/metrics"
	"github.com/causeway-ops/causeway/internal/models"
)

// Subject constants for the telemetry bus.
// Follow the pattern: {service}.{domain}.{action}
const (
	SubjectRCACompleted  = "causeway.rca.completed"
	SubjectRCAFailed     = "causeway.rca.failed"
	SubjectChatCompleted = "causeway.chat.completed"
	SubjectAppError      = "causeway.errors.app"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "causeway",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Publisher publishes service events. A nil Publisher is valid and drops all
// events, so wiring stays unconditional.
type Publisher struct {
	conn *nats.Conn
	log  *logging.Logger
}

// NewPublisher connects to NATS with the given configuration.
func NewPublisher(cfg Config, log *logging.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Publisher{conn: conn, log: log}, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// Event is the envelope published on every subject.
type Event struct {
	ID         string            `json:"id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Run        models.RunContext `json:"run"`
	Properties map[string]any    `json:"properties,omitempty"`
}

// Publish sends an event on the subject. Errors are logged and counted, not
// returned.
func (p *Publisher) Publish(ctx context.Context, subject string, run models.RunContext, properties map[string]any) {
	if p == nil || p.conn == nil {
		return
	}

	payload, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Run:        run,
		Properties: properties,
	})
	if err != nil {
		metrics.TelemetryPublishErrors.Inc()
		p.log.ErrorContext(ctx, "marshal telemetry event", logging.Error(err))
		return
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		metrics.TelemetryPublishErrors.Inc()
		p.log.ErrorContext(ctx, "publish telemetry event",
			logging.Error(err), "subject", subject)
	}
}

// Package vendors defines the vendor provider interfaces and the registry
// that dispatches pipeline work to them. Adding a vendor means adding an
// implementation and registering it, nothing else.
package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/causeway-ops/causeway/internal/models"
)

// AlertParser fetches an incident from an alert vendor and normalizes it into
// an AlertEvent. The integration passed in already has populated credentials.
type AlertParser interface {
	Source() string
	ParseAlert(ctx context.Context, integration models.Integration, incidentID string) (*models.AlertEvent, error)
}

// LogRow is one log record after the two-level decode. Rows whose inner
// payload is not valid JSON keep the raw string and a nil Data map.
type LogRow struct {
	Data map[string]any
	Raw  string
}

// LogFetch is the result of a raw log fetch: the vendor-native response body
// (forwarded verbatim to the clustering service) plus the decoded rows.
type LogFetch struct {
	Raw  json.RawMessage
	Rows []LogRow
}

// LogToolProvider fetches raw logs from a log vendor. The integration passed
// in already has populated credentials.
type LogToolProvider interface {
	Vendor() string
	// FetchLogs runs the vendor query over [start, end]. An empty query means
	// the vendor default (all sources, bounded by limit).
	FetchLogs(ctx context.Context, integration models.Integration, query string, start, end time.Time, limit int) (*LogFetch, error)
	// TestConnection verifies the integration credentials with a minimal call.
	TestConnection(ctx context.Context, integration models.Integration) error
}

// LogExplorer is an optional log provider capability: schema discovery over
// recent logs, used by the integration exploration endpoint.
type LogExplorer interface {
	// CommonLogFields samples recent logs and returns the dotted field paths
	// seen across them, sorted.
	CommonLogFields(ctx context.Context, integration models.Integration, sampleSize int) ([]string, error)
	// CommonLogValues returns values observed for one field over a recent
	// window, in row order.
	CommonLogValues(ctx context.Context, integration models.Integration, field string, limit int) ([]any, error)
}

// PrettySample formats decoded rows as key/value blocks separated by rules,
// for human inspection. Rows without decoded data keep their raw payload.
func PrettySample(rows []LogRow) string {
	blocks := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Data == nil {
			blocks = append(blocks, row.Raw)
			continue
		}
		keys := make([]string, 0, len(row.Data))
		for k := range row.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", k, row.Data[k]))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n--------------------------------------\n\n")
}

// Registry maps vendor identifiers to their providers.
type Registry struct {
	logTools map[string]LogToolProvider
	alerts   map[string]AlertParser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		logTools: make(map[string]LogToolProvider),
		alerts:   make(map[string]AlertParser),
	}
}

// RegisterLogTool adds a log provider keyed by its vendor name.
func (r *Registry) RegisterLogTool(p LogToolProvider) {
	r.logTools[p.Vendor()] = p
}

// RegisterAlertParser adds an alert parser keyed by its source name.
func (r *Registry) RegisterAlertParser(p AlertParser) {
	r.alerts[p.Source()] = p
}

// LogTool returns the log provider for the vendor, if registered.
func (r *Registry) LogTool(vendor string) (LogToolProvider, bool) {
	p, ok := r.logTools[vendor]
	return p, ok
}

// AlertParser returns the alert parser for the source, if registered.
func (r *Registry) AlertParser(source string) (AlertParser, bool) {
	p, ok := r.alerts[source]
	return p, ok
}

// FirstLogCapable returns the first integration whose vendor has a registered
// log provider, preserving the order of the input list.
func (r *Registry) FirstLogCapable(integrations []models.Integration) (models.Integration, LogToolProvider, bool) {
	for _, integ := range integrations {
		if p, ok := r.logTools[integ.Vendor]; ok {
			return integ, p, true
		}
	}
	return models.Integration{}, nil, false
}

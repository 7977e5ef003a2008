package pagerduty

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causeway-ops/causeway/internal/models"
)

const incidentBody = `{
	"incident": {
		"id": "PT4KHLK",
		"description": "Disk usage at 95% on host web-3",
		"created_at": "2026-08-21T10:00:00Z",
		"first_trigger_log_entry": {
			"channel": {
				"details": {"host": "web-3", "check": "disk_usage"}
			}
		}
	}
}`

func testIntegration() models.Integration {
	return models.Integration{
		ID:          "int-pd",
		Vendor:      models.VendorPagerDuty,
		Credentials: map[string]string{CredentialAccessToken: "pd-token"},
	}
}

func TestParseAlert(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(incidentBody))
	}))
	defer server.Close()

	parser := &Parser{BaseURL: server.URL}
	event, err := parser.ParseAlert(context.Background(), testIntegration(), "PT4KHLK")
	require.NoError(t, err)

	assert.Equal(t, "Token token=pd-token", gotAuth)
	assert.Equal(t, "/incidents/PT4KHLK", gotPath)

	assert.Equal(t, models.VendorPagerDuty, event.Source)
	assert.Equal(t, "Disk usage at 95% on host web-3", event.Message)
	assert.Equal(t, time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC), event.CreatedAt)
	assert.Equal(t, "web-3", event.Data["host"])
	assert.Equal(t, "disk_usage", event.Data["check"])
}

func TestParseAlert_MissingToken(t *testing.T) {
	parser := &Parser{}
	integration := testIntegration()
	integration.Credentials = nil

	_, err := parser.ParseAlert(context.Background(), integration, "PT4KHLK")
	assert.ErrorContains(t, err, "no access token")
}

func TestParseAlert_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Incident not found"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	parser := &Parser{BaseURL: server.URL}
	_, err := parser.ParseAlert(context.Background(), testIntegration(), "NOPE")
	assert.ErrorContains(t, err, "status 404")
}

func TestParserSource(t *testing.T) {
	parser := &Parser{}
	assert.Equal(t, models.VendorPagerDuty, parser.Source())
}

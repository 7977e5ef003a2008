package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService  = "service"
	FieldOrgID    = "organization_id"
	FieldEventID  = "event_id"
	FieldVendor   = "vendor"
	FieldStage    = "stage"
	FieldQuery    = "query"
	FieldError    = "error"
	FieldDuration = "duration_ms"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// OrgID returns a slog attribute for the organization ID.
func OrgID(id string) slog.Attr {
	return slog.String(FieldOrgID, id)
}

// EventID returns a slog attribute for the incident event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// Vendor returns a slog attribute for the integration vendor.
func Vendor(name string) slog.Attr {
	return slog.String(FieldVendor, name)
}

// Stage returns a slog attribute for the pipeline stage.
func Stage(name string) slog.Attr {
	return slog.String(FieldStage, name)
}

// Query returns a slog attribute for a search or log query.
func Query(q string) slog.Attr {
	return slog.String(FieldQuery, q)
}

// Error returns a slog attribute for an error value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService    = "service"
	FieldStreamID   = "stream_id"
	FieldBatchSize  = "batch_size"
	FieldQueueDepth = "queue_depth"
	FieldStatus     = "status"
	FieldURL        = "url"
	FieldError      = "error"
	FieldEvents     = "events"
	FieldConfigEtag = "config_etag"
	FieldRulesEtag  = "rules_etag"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// StreamID returns a slog attribute for a processing stream ID.
func StreamID(id string) slog.Attr {
	return slog.String(FieldStreamID, id)
}

// BatchSize returns a slog attribute for a batch size.
func BatchSize(n int) slog.Attr {
	return slog.Int(FieldBatchSize, n)
}

// QueueDepth returns a slog attribute for the ingestion queue depth.
func QueueDepth(n int) slog.Attr {
	return slog.Int(FieldQueueDepth, n)
}

// Status returns a slog attribute for an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// URL returns a slog attribute for a request URL.
func URL(url string) slog.Attr {
	return slog.String(FieldURL, url)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Events returns a slog attribute for an event count.
func Events(n int) slog.Attr {
	return slog.Int(FieldEvents, n)
}

// ConfigEtag returns a slog attribute for the collector config etag.
func ConfigEtag(etag string) slog.Attr {
	return slog.String(FieldConfigEtag, etag)
}

// RulesEtag returns a slog attribute for the collector rules etag.
func RulesEtag(etag string) slog.Attr {
	return slog.String(FieldRulesEtag, etag)
}

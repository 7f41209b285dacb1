// Package meta provides process-wide service identity and request metadata
// carried through context. The logger enriches entries with this metadata,
// and alert emails stamp the service name into their summary block.
package meta

import "context"

// ContextKey is a type for keys used in context values for metadata.
type ContextKey string

const (
	// TraceID represents a unique identifier for tracing a unit of work
	// across log entries and alerts.
	TraceID ContextKey = "trace_id"

	// JobID identifies the batch job or script run that produced the
	// current unit of work.
	JobID ContextKey = "job_id"
)

// contextKeys lists every key Extract inspects.
//
//nolint:gochecknoglobals // static key list shared by Inject/Extract
var contextKeys = []ContextKey{
	TraceID,
	JobID,
}

// InjectMetaToContext adds metadata from the provided map to the context.
// It only adds values that are not empty strings and returns a new context
// with the added values.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // allow due to finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext extracts all metadata from the provided context.
// It retrieves values for all predefined context keys and returns them in
// a map. Only non-empty string values are included.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range contextKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	return data
}

// Find returns the metadata value for the given key, or an empty string
// when the key is absent.
func Find(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

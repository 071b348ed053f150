// Package tracing tags every API request with a trace id, propagates it
// through the request context and logs one line per request.
//
// Clients may supply their own id in the X-Trace-ID header; otherwise a
// new one is generated. The id is echoed in the response.
package tracing

import (
	"context"

	"github.com/google/uuid"
)

// Header carries the trace id in both directions.
const Header = "X-Trace-ID"

// TraceID identifies one request across log lines.
type TraceID string

type traceKey struct{}

// NewTraceID returns a random trace id.
func NewTraceID() TraceID {
	return TraceID(uuid.NewString())
}

// WithTraceID returns ctx carrying id.
func WithTraceID(ctx context.Context, id TraceID) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext returns the trace id in ctx, or "".
func FromContext(ctx context.Context) TraceID {
	id, _ := ctx.Value(traceKey{}).(TraceID)
	return id
}

package observability

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.opentelemetry.io/otel/trace"
)

const traceIDByteLen = 16

func TraceID(str string) (trace.TraceID, error) {
	traceStrSha := sha256.Sum256([]byte(str))

	var traceID trace.TraceID
	traceID, err := trace.TraceIDFromHex(hex.EncodeToString(traceStrSha[:traceIDByteLen]))
	if err != nil {
		return trace.TraceID{}, err
	}

	return traceID, nil
}

// TraceContext seeds ctx with a deterministic trace ID derived from id, so
// spans started by different goroutines for the same unit of work share a
// trace. The ctx is returned unchanged when derivation fails.
func TraceContext(ctx context.Context, id string) context.Context {
	traceID, err := TraceID(id)
	if err != nil {
		return ctx
	}

	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
	}))
}

package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "customerapi"

// StartStoreSpan starts a span for an entity store operation.
// id is omitted from the attributes when zero.
func StartStoreSpan(ctx context.Context, op string, id int64) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("store.op", op)}
	if id != 0 {
		attrs = append(attrs, attribute.Int64("customer.id", id))
	}
	return otel.Tracer(tracerName).Start(ctx, "store."+op, trace.WithAttributes(attrs...))
}

// StartServiceSpan starts a span for a customer service call.
func StartServiceSpan(ctx context.Context, op string, id int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "customers."+op,
		trace.WithAttributes(attribute.Int64("customer.id", id)),
	)
}

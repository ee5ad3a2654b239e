package decorators

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/core/entities"
)

const tracerName = "github.com/Widerk/shapesbonding/profile-store"

// TracingCollection records a span around every collection call
type TracingCollection struct {
	inner  ports.RemoteCollection
	tracer trace.Tracer
}

// NewTracingCollection wraps inner using the global tracer provider
func NewTracingCollection(inner ports.RemoteCollection) *TracingCollection {
	return &TracingCollection{inner: inner, tracer: otel.Tracer(tracerName)}
}

func (t *TracingCollection) Subscribe(ctx context.Context, onSnapshot func([]ports.Document), onError func(error)) (ports.Unsubscribe, error) {
	ctx, span := t.tracer.Start(ctx, "profiles.subscribe")
	defer span.End()

	unsubscribe, err := t.inner.Subscribe(ctx, onSnapshot, onError)
	finish(span, err)
	return unsubscribe, err
}

func (t *TracingCollection) Upsert(ctx context.Context, id string, record entities.ProfileRecord) error {
	ctx, span := t.tracer.Start(ctx, "profiles.upsert", trace.WithAttributes(
		attribute.String("profile.id", id),
		attribute.Int64("profile.timestamp_ms", record.TimestampMs),
	))
	defer span.End()

	err := t.inner.Upsert(ctx, id, record)
	finish(span, err)
	return err
}

func (t *TracingCollection) Delete(ctx context.Context, id string) error {
	ctx, span := t.tracer.Start(ctx, "profiles.delete", trace.WithAttributes(attribute.String("profile.id", id)))
	defer span.End()

	err := t.inner.Delete(ctx, id)
	finish(span, err)
	return err
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

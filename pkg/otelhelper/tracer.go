// Package otelhelper provides distributed tracing for sequence compilation and device calls.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	SequenceIDKey       = "farmbot_school.sequence.id"
	SequenceStatusKey   = "farmbot_school.sequence.status"
	DeviceSequenceIDKey = "farmbot_school.device.sequence_id"
	ActionTypeKey       = "farmbot_school.action.type"
	ActionPositionKey   = "farmbot_school.action.position"
	PinActionKey        = "farmbot_school.pin.action"
	PinKindKey          = "farmbot_school.pin.kind"
	DeviceOperationKey  = "farmbot_school.device.operation"
	UserIDKey           = "farmbot_school.user.id"
)

// InstrumentationName is the tracer name used by every package of the service.
const InstrumentationName = "github.com/incaya/farmbot-school-backend"

// Tracer returns the service tracer from the global provider. It is a no-op tracer until
// NewTracerProvider has been installed.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// NewTracerProvider exports spans over OTLP/HTTP and installs the provider globally. The exporter is
// configured from the standard OTEL_EXPORTER_OTLP_* environment variables.
func NewTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}

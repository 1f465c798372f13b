package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/voyagent/voyagent/voyagent"
)

var globalTracerProvider *sdktrace.TracerProvider

// InitTracing initializes OpenTelemetry tracing. With consoleExport set,
// spans are pretty-printed to stdout; otherwise spans are recorded but not
// exported, which keeps trace IDs flowing into logs without output noise.
func InitTracing(serviceName string, consoleExport bool) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)

	if consoleExport {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		tp.RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	globalTracerProvider = tp
	return tp, nil
}

// GetTracer returns a tracer from the current global tracer provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// TracingMiddleware wraps an agent so every Process call runs inside a span.
type TracingMiddleware struct {
	agent    voyagent.Agent
	tracer   trace.Tracer
	spanName string
}

var _ voyagent.Agent = (*TracingMiddleware)(nil)

// NewTracingMiddleware creates a tracing wrapper around agent. An empty
// spanName defaults to "agent.process".
func NewTracingMiddleware(agent voyagent.Agent, spanName string) *TracingMiddleware {
	if spanName == "" {
		spanName = "agent.process"
	}
	return &TracingMiddleware{
		agent:    agent,
		tracer:   GetTracer("voyagent.observability"),
		spanName: spanName,
	}
}

// Name returns the name of the underlying agent.
func (t *TracingMiddleware) Name() string {
	return t.agent.Name()
}

// Capabilities returns the capabilities of the underlying agent.
func (t *TracingMiddleware) Capabilities() []string {
	return t.agent.Capabilities()
}

// Process runs the wrapped agent inside a span, recording the message role
// and size and marking the span on error.
func (t *TracingMiddleware) Process(ctx context.Context, message *voyagent.Message) (*voyagent.Message, error) {
	ctx, span := t.tracer.Start(ctx, t.spanName,
		trace.WithAttributes(
			attribute.String("agent.name", t.agent.Name()),
			attribute.String("message.role", message.Role),
			attribute.Int("message.size", len(message.Content)),
		))
	defer span.End()

	response, err := t.agent.Process(ctx, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.size", len(response.Content)))
	span.SetStatus(codes.Ok, "")
	return response, nil
}

// Shutdown gracefully shuts down the tracer provider.
func Shutdown(ctx context.Context) error {
	if globalTracerProvider != nil {
		return globalTracerProvider.Shutdown(ctx)
	}
	return nil
}

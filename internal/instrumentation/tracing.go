package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name used for all graphreports spans.
const TracerName = "github.com/teemow/graphreports"

// Span attribute keys.
const (
	SpanAttrTool          = "mcp.tool"
	SpanAttrService       = "graph.service"
	SpanAttrOperation     = "graph.operation"
	SpanAttrMailboxDomain = "graph.mailbox_domain"
	SpanAttrPattern       = "graph.subject_pattern"
	SpanAttrLimit         = "graph.limit"
	SpanAttrResultCount   = "graph.result_count"
	SpanAttrReportID      = "reports.dro_id"
)

// SpanAttributeBuilder helps construct span attributes with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 6)}
}

// WithMailbox adds the mailbox domain. The full address is never recorded.
func (b *SpanAttributeBuilder) WithMailbox(mailbox string) *SpanAttributeBuilder {
	if mailbox != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrMailboxDomain, ExtractUserDomain(mailbox)))
	}
	return b
}

// WithPattern adds the subject search pattern.
func (b *SpanAttributeBuilder) WithPattern(pattern string) *SpanAttributeBuilder {
	if pattern != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrPattern, pattern))
	}
	return b
}

// WithLimit adds the result limit.
func (b *SpanAttributeBuilder) WithLimit(limit int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrLimit, limit))
	return b
}

// WithReportID adds the workforce report identifier.
func (b *SpanAttributeBuilder) WithReportID(id string) *SpanAttributeBuilder {
	if id != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrReportID, id))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new internal span. The caller must end it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGraphAPISpan starts a client span named graph.<service>.<operation>.
func StartGraphAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "graph."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SetResultCount records how many items an operation returned.
func SetResultCount(span trace.Span, n int) {
	span.SetAttributes(attribute.Int(SpanAttrResultCount, n))
}

// GetTraceID returns the trace ID from the current span in context, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

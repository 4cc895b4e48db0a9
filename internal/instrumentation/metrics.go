package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrDomain    = "mailbox_domain"
)

// Metrics records graphreports metrics. The zero value is a no-op recorder,
// as is a nil *Metrics.
type Metrics struct {
	graphOperationsTotal   metric.Int64Counter
	graphOperationDuration metric.Float64Histogram

	oauthAuthTotal         metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	reportsFetchedTotal     metric.Int64Counter
	attachmentsDecodedTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates a Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error

	m.graphOperationsTotal, err = meter.Int64Counter(
		"graph_api_operations_total",
		metric.WithDescription("Total number of Microsoft Graph API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph_api_operations_total counter: %w", err)
	}

	m.graphOperationDuration, err = meter.Float64Histogram(
		"graph_api_operation_duration_seconds",
		metric.WithDescription("Microsoft Graph API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph_api_operation_duration_seconds histogram: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.reportsFetchedTotal, err = meter.Int64Counter(
		"workforce_reports_fetched_total",
		metric.WithDescription("Total number of workforce report fetches by result"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workforce_reports_fetched_total counter: %w", err)
	}

	m.attachmentsDecodedTotal, err = meter.Int64Counter(
		"attachments_decoded_total",
		metric.WithDescription("Total number of attachments decoded into reports"),
		metric.WithUnit("{attachment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachments_decoded_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordGraphAPIOperation records a Graph API call.
//
// Parameters:
//   - service: Graph area (mail, oauth)
//   - operation: Operation type (list, exchange, refresh)
//   - status: "success" or "error"
//   - mailbox: mailbox address; only its domain is recorded, and only with detailed labels
//   - duration: Time taken for the operation
func (m *Metrics) RecordGraphAPIOperation(ctx context.Context, service, operation, status, mailbox string, duration time.Duration) {
	if m == nil || m.graphOperationsTotal == nil || m.graphOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && mailbox != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(mailbox)))
	}

	m.graphOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.graphOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records an authentication attempt. Result is "success" or "failure".
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}
	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh records a token refresh attempt. Result is "success" or "failure".
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}
	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordReportsFetched records the outcome of a workforce report fetch.
func (m *Metrics) RecordReportsFetched(ctx context.Context, status string, reports int) {
	if m == nil || m.reportsFetchedTotal == nil {
		return
	}
	m.reportsFetchedTotal.Add(ctx, int64(reports), metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordAttachmentsDecoded adds n decoded attachments.
func (m *Metrics) RecordAttachmentsDecoded(ctx context.Context, n int) {
	if m == nil || m.attachmentsDecodedTotal == nil {
		return
	}
	m.attachmentsDecodedTotal.Add(ctx, int64(n))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// Package instrumentation provides OpenTelemetry metrics and tracing for graphreports.
//
// # Metrics
//
// Microsoft Graph:
//   - graph_api_operations_total: Counter of Graph operations by service, operation, status
//   - graph_api_operation_duration_seconds: Histogram of Graph operation durations
//
// OAuth:
//   - oauth_auth_total: Counter of authentication attempts by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Reports:
//   - workforce_reports_fetched_total: Counter of fetched reports by status
//   - attachments_decoded_total: Counter of decoded attachments
//
// MCP tools:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Spans are created for Graph calls (graph.<service>.<operation>), the report
// extractor (reports.fetch_workforce) and MCP tool invocations (tool.<name>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: graphreports)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordGraphAPIOperation(ctx, instrumentation.ServiceMail,
//		instrumentation.OperationList, instrumentation.StatusSuccess, mailbox, time.Since(start))
package instrumentation

package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestMetrics(t *testing.T, detailed bool) (context.Context, *Metrics) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
		DetailedLabels:  detailed,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}
	return ctx, metrics
}

func TestMetrics_RecordGraphAPIOperation(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		ctx, metrics := newTestMetrics(t, detailed)

		// Should not panic
		metrics.RecordGraphAPIOperation(ctx, ServiceMail, OperationList, StatusSuccess, "reports@example.org", 200*time.Millisecond)
		metrics.RecordGraphAPIOperation(ctx, ServiceMail, OperationList, StatusError, "", 500*time.Millisecond)
		metrics.RecordGraphAPIOperation(ctx, ServiceOAuth, OperationExchange, StatusSuccess, "", 100*time.Millisecond)
	}
}

func TestMetrics_RecordOAuth(t *testing.T) {
	ctx, metrics := newTestMetrics(t, false)

	metrics.RecordOAuthAuth(ctx, OAuthResultSuccess)
	metrics.RecordOAuthAuth(ctx, OAuthResultFailure)
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
}

func TestMetrics_RecordReports(t *testing.T) {
	ctx, metrics := newTestMetrics(t, false)

	metrics.RecordReportsFetched(ctx, StatusSuccess, 3)
	metrics.RecordReportsFetched(ctx, StatusError, 1)
	metrics.RecordAttachmentsDecoded(ctx, 4)
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, metrics := newTestMetrics(t, false)

	metrics.RecordToolInvocation(ctx, "mail_search", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "reports_fetch_workforce", StatusError, 50*time.Millisecond)
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	nilMetrics.RecordGraphAPIOperation(ctx, ServiceMail, OperationList, StatusSuccess, "", time.Second)
	nilMetrics.RecordOAuthAuth(ctx, OAuthResultSuccess)
	nilMetrics.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	nilMetrics.RecordReportsFetched(ctx, StatusSuccess, 1)
	nilMetrics.RecordAttachmentsDecoded(ctx, 1)
	nilMetrics.RecordToolInvocation(ctx, "mail_search", StatusSuccess, time.Second)

	zero := &Metrics{}
	zero.RecordGraphAPIOperation(ctx, ServiceMail, OperationList, StatusSuccess, "", time.Second)
	zero.RecordReportsFetched(ctx, StatusSuccess, 1)
	zero.RecordToolInvocation(ctx, "mail_search", StatusSuccess, time.Second)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/graphreports/internal/instrumentation"
	"github.com/teemow/graphreports/internal/reports"
	"github.com/teemow/graphreports/internal/resources"
	"github.com/teemow/graphreports/internal/server"
	"github.com/teemow/graphreports/internal/tools/report_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Addr is the address for the metrics server (e.g., ":9090"). Empty disables it.
	Addr string
}

func newServeCmd() *cobra.Command {
	var metricsConfig MetricsConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

The server exposes the mail_search and reports_fetch_workforce tools. A token
must already be stored (see "graphreports auth"); the server never prompts,
since stdio carries the protocol.

Set INSTRUMENTATION_ENABLED=true and --metrics-addr (or METRICS_ADDR) to
serve Prometheus metrics on a separate port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), metricsConfig)
		},
	}

	cmd.Flags().StringVar(&metricsConfig.Addr, "metrics-addr", "", "Address for the Prometheus metrics server (e.g. :9090)")

	return cmd
}

func runServe(ctx context.Context, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if metricsConfig.Addr == "" {
		metricsConfig.Addr = os.Getenv("METRICS_ADDR")
	}

	provider, err := newInstrumentationProvider(shutdownCtx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(shutdownCtx)); err != nil {
			slog.Error("error during instrumentation shutdown", slog.String("error", err.Error()))
		}
	}()

	if metricsConfig.Addr != "" && provider.Enabled() {
		metricsServer, err := startMetricsServer(metricsConfig, provider)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				slog.Error("error during metrics server shutdown", slog.String("error", err.Error()))
			}
		}()
	}

	serverContext, err := server.NewServerContext(shutdownCtx,
		func(ctx context.Context) (*reports.Session, error) {
			return openSession(ctx, reports.WithMetrics(provider.Metrics()))
		},
		server.WithMetrics(provider.Metrics()),
		server.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("graphreports", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	return runStdioServer(shutdownCtx, mcpSrv)
}

func startMetricsServer(metricsConfig MetricsConfig, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    metricsConfig.Addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		slog.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down MCP server")
	}
	return nil
}

// registerAllTools registers every MCP tool group and resource.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := report_tools.RegisterReportTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register report tools: %w", err)
	}
	if err := resources.RegisterSessionResources(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register session resources: %w", err)
	}
	return nil
}

// Package server holds the state behind the graphreports MCP server.
//
// ServerContext lazily creates the reports session on the first tool call,
// so the server can start before a token exists and report the problem
// through the tool result instead.
//
// MetricsServer exposes the Prometheus registry fed by the instrumentation
// package on its own port, since the MCP transport itself is stdio.
package server

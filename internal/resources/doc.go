// Package resources provides MCP resources describing the reports session.
// Resources are read-only data sources that MCP clients can fetch; secrets
// and tokens are never part of them.
package resources

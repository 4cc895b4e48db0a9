// Package common provides shared helpers for the MCP tool packages:
// argument extraction and the instrumentation wrapper every tool is
// registered through.
package common

// Package cmd implements the command-line interface for graphreports.
//
// This package provides the following commands:
//   - auth: Authenticate with Microsoft Graph and store the token
//   - search: Search a mailbox by subject pattern
//   - fetch: Fetch and decode the latest workforce report for a DRO
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Every command reads its settings from the dotenv file given by --config
// (default .env), overridable through the environment.
package cmd

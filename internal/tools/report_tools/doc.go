// Package report_tools provides the MCP tools over the reports mailbox.
//
// Available tools:
//   - mail_search: Search a mailbox by subject pattern, newest first
//   - reports_fetch_workforce: Fetch the latest workforce report for a DRO
//
// Results are JSON text. Attachment content is only included in
// reports_fetch_workforce results when include_content is set.
package report_tools

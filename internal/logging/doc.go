// Package logging provides structured logging utilities for graphreports.
//
// All components log through log/slog. This package keeps attribute names
// consistent and keeps PII out of log output.
//
// # Usage Patterns
//
// Create a logger scoped to an operation:
//
//	logger := logging.WithOperation(slog.Default(), "reports.search_mail")
//	logger.Debug("found messages", logging.Count(n), logging.Mailbox(address))
//
// # Security Considerations
//
//   - Mailbox addresses are hashed before they reach a log line
//   - Tokens are never logged directly, only their length
package logging

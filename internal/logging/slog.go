package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyMailbox   = "mailbox"
	KeyDomain    = "mailbox_domain"
	KeyPattern   = "pattern"
	KeyScopes    = "scopes"
	KeyTokenFile = "token_file"
	KeyCount     = "count"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
)

// Status values for consistent logging.
// The same values label instrumentation metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New returns a text logger writing to w. Debug output is enabled when debug is true.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Mailbox returns a slog attribute with the anonymized mailbox address.
// Mailbox addresses are PII; the hash still allows correlating log lines.
func Mailbox(address string) slog.Attr {
	return slog.String(KeyMailbox, AnonymizeEmail(address))
}

// Domain returns a slog attribute for the mailbox domain (lower cardinality than the address).
func Domain(address string) slog.Attr {
	return slog.String(KeyDomain, ExtractDomain(address))
}

// Pattern returns a slog attribute for a subject search pattern.
func Pattern(pattern string) slog.Attr {
	return slog.String(KeyPattern, pattern)
}

// Scopes returns a slog attribute listing permission scopes.
func Scopes(scopes []string) slog.Attr {
	return slog.String(KeyScopes, strings.Join(scopes, " "))
}

// TokenFile returns a slog attribute for the token file name.
func TokenFile(name string) slog.Attr {
	return slog.String(KeyTokenFile, name)
}

// Count returns a slog attribute for a result count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging purposes.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(email)))
	return "mailbox:" + hex.EncodeToString(hash[:8])
}

// SanitizeToken returns a masked version of a token for logging.
// Only the length is kept; even a token prefix can aid an attacker.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// ExtractDomain extracts the domain part from an email address.
func ExtractDomain(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

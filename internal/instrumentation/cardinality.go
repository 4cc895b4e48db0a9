package instrumentation

import "strings"

// ExtractUserDomain extracts the domain part from an email address so that
// metric labels never carry a full mailbox address.
//
// Example:
//
//	ExtractUserDomain("reports@example.org")  // "example.org"
//	ExtractUserDomain("invalid")              // "unknown"
//	ExtractUserDomain("")                     // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

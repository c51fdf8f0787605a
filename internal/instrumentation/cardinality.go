package instrumentation

import "strings"

// ExtractUserDomain extracts the domain part from an email address.
// Sender filters are recorded by domain only to keep label and log cardinality bounded.
//
// Example:
//
//	ExtractUserDomain("info@bank.example")  // "bank.example"
//	ExtractUserDomain("invalid")            // "unknown"
//	ExtractUserDomain("")                   // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// Google API operation types.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationRead   = "read"
	OperationSign   = "sign"
)

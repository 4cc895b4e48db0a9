package mail

import (
	"strings"
	"time"
)

// Message fields usable in queries.
const (
	FieldSentDateTime     = "sentDateTime"
	FieldReceivedDateTime = "receivedDateTime"
	FieldSubject          = "subject"
)

// OrderBySentDesc returns the newest sent message first.
const OrderBySentDesc = FieldSentDateTime + " desc"

// Epoch is the lower bound used to match every message by date.
var Epoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Query is an immutable conjunction of OData $filter predicates.
type Query struct {
	predicates []string
}

// Greater matches messages whose field is after t.
func Greater(field string, t time.Time) Query {
	return Query{predicates: []string{field + " gt " + t.UTC().Format(time.RFC3339)}}
}

// Contains matches messages whose field contains value.
func Contains(field, value string) Query {
	return Query{predicates: []string{"contains(" + field + "," + quote(value) + ")"}}
}

// Equals matches messages whose field equals value.
func Equals(field, value string) Query {
	return Query{predicates: []string{field + " eq " + quote(value)}}
}

// And combines queries; every predicate must hold.
func And(queries ...Query) Query {
	var predicates []string
	for _, q := range queries {
		predicates = append(predicates, q.predicates...)
	}
	return Query{predicates: predicates}
}

// IsZero reports whether the query has no predicates.
func (q Query) IsZero() bool {
	return len(q.predicates) == 0
}

// String renders the $filter expression.
func (q Query) String() string {
	return strings.Join(q.predicates, " and ")
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

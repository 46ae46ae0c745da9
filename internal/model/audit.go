package model

import "time"

// Audit verdicts recorded for every query that passes through the guard.
const (
	VerdictAccepted = "accepted"
	VerdictRejected = "rejected"
)

// AuditRecord is one guard decision: which language, what was asked, and
// whether it was let through. Rejected queries keep the rejection kind so
// operators can see what callers are probing for.
type AuditRecord struct {
	ID         int64     `json:"id" db:"id"`
	Language   string    `json:"language" db:"language"` // "jql" or "graphql"
	Connection string    `json:"connection" db:"connection"`
	Query      string    `json:"query" db:"query"`
	Verdict    string    `json:"verdict" db:"verdict"`
	Reason     string    `json:"reason,omitempty" db:"reason"` // rejection kind, empty when accepted
	Source     string    `json:"source" db:"source"`           // "http", "mcp", or "cli"
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

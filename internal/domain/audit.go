package domain

import "time"

// AuditEntry records one security-relevant action.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Principal string    `json:"principal"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit statuses.
const (
	AuditOK     = "ok"
	AuditDenied = "denied"
)

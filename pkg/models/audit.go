package models

import (
	"encoding/json"
	"time"
)

// AuditAction is derived purely from the HTTP verb of the audited request.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

// AuditEntityUnknown is the sentinel entity id recorded when no id could be
// determined for the request.
const AuditEntityUnknown = "unknown"

// AuditLogEntry is one append-only record of a mutating request. Rows are
// never updated or deleted by application code.
type AuditLogEntry struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"userId" db:"user_id"`
	EntityType string          `json:"entityType" db:"entity_type"`
	EntityID   string          `json:"entityId" db:"entity_id"`
	Action     AuditAction     `json:"action" db:"action"`
	OldData    json.RawMessage `json:"oldData,omitempty" db:"old_data"`
	NewData    json.RawMessage `json:"newData,omitempty" db:"new_data"`
	IPAddress  *string         `json:"ipAddress,omitempty" db:"ip_address"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`

	User *UserRef `json:"user,omitempty" db:"-"`
}

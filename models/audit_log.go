package models

import (
	"time"
	"unicode/utf8"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
	AuditActionLogin  AuditAction = "LOGIN"
	AuditActionImport AuditAction = "IMPORT"
)

// IsValid reports whether a is a known audit action
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete, AuditActionLogin, AuditActionImport:
		return true
	}
	return false
}

// MaxAuditDetailsLength bounds the stored details text, in characters
const MaxAuditDetailsLength = 500

// Entity types recorded in the audit trail
const (
	EntityContact = "contact"
	EntityUser    = "user"
	EntityLicense = "license"
	EntityFile    = "file"
)

// AuditLog is an immutable audit trail entry
type AuditLog struct {
	ID         int64       `json:"id" db:"id"`
	UserID     *int64      `json:"user_id" db:"user_id"`
	Action     AuditAction `json:"action" db:"action"`
	EntityType string      `json:"entity_type" db:"entity_type"`
	EntityID   *int64      `json:"entity_id" db:"entity_id"`
	Details    string      `json:"details" db:"details"`
	Timestamp  time.Time   `json:"timestamp" db:"timestamp"`

	// Populated on reads by joining users
	UserEmail *string `json:"user_email" db:"user_email"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance.
// Timestamp is left zero; the recorder stamps it at write time.
func NewAuditLog(action AuditAction, entityType string) *AuditLog {
	return &AuditLog{
		Action:     action,
		EntityType: entityType,
	}
}

// WithUser sets the acting user ID
func (a *AuditLog) WithUser(userID int64) *AuditLog {
	a.UserID = &userID
	return a
}

// WithEntity sets the affected entity ID
func (a *AuditLog) WithEntity(entityID int64) *AuditLog {
	a.EntityID = &entityID
	return a
}

// WithDetails sets the details, truncated to MaxAuditDetailsLength characters
func (a *AuditLog) WithDetails(details string) *AuditLog {
	a.Details = TruncateDetails(details)
	return a
}

// TruncateDetails cuts s to MaxAuditDetailsLength characters without splitting a rune
func TruncateDetails(s string) string {
	if utf8.RuneCountInString(s) <= MaxAuditDetailsLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxAuditDetailsLength {
			return s[:i]
		}
		n++
	}
	return s
}

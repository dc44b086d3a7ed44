package models

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditEvent names the auth operation a login_audit row records.
type AuditEvent string

const (
	AuditEventSignup         AuditEvent = "signup"
	AuditEventLogin          AuditEvent = "login"
	AuditEventPasswordChange AuditEvent = "password_change"
)

type AuditRecord struct {
	ID        string
	UserID    string
	Email     string
	Event     AuditEvent
	Success   bool
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

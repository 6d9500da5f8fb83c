package entity

import "time"

// Audit actions recorded for the auth flow
const (
	AuditRegister     = "register"
	AuditLoginSuccess = "login_success"
	AuditLoginFailed  = "login_failed"
)

// AuditLog is an append-only record of an authentication event.
// UserID is empty when the event could not be tied to a user (e.g. unknown email).
type AuditLog struct {
	UserID    string
	Email     string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}

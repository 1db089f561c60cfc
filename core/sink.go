package core

import "context"

// Audit action tags. Closed enumeration; new tags are added here, never
// inlined at call sites.
const (
	AuditLoginSuccess           = "LOGIN_SUCCESS"
	AuditLoginFailed            = "LOGIN_FAILED"
	AuditPasswordChanged        = "PASSWORD_CHANGED"
	AuditPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	AuditTwoFactorEnabled       = "TWO_FACTOR_ENABLED"
	AuditTwoFactorDisabled      = "TWO_FACTOR_DISABLED"
	AuditSessionRevoked         = "SESSION_REVOKED"
	AuditUserApproved           = "USER_APPROVED"
	AuditUserRejected           = "USER_REJECTED"
	AuditUnauthorizedAccess     = "UNAUTHORIZED_ACCESS_ATTEMPT"
)

type (
	AuditEntry struct {
		UserID    string
		Action    string
		Details   string
		IP        string
		UserAgent string
	}

	Note struct {
		UserID string
		Kind   string
		Title  string
		Body   string
	}

	// AuditSink records security events. Best-effort: implementations must
	// never fail the caller; a lost entry is logged server-side and dropped.
	AuditSink interface {
		Record(ctx context.Context, entry AuditEntry)
	}

	// NotificationSink delivers in-app notifications. Same best-effort
	// contract as AuditSink.
	NotificationSink interface {
		Notify(ctx context.Context, notes ...Note)
	}
)

// NopAuditSink discards entries. Used in tests and the admin CLI.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, AuditEntry) {}

type NopNotificationSink struct{}

func (NopNotificationSink) Notify(context.Context, ...Note) {}

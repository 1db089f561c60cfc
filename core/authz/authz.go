// Package authz holds the access-control policy applied by every handler:
// role gates, subject ownership/enrollment checks, the student approval
// gate and the message edit window. All checks are pure functions of the
// caller's identity and a snapshot of the target resource; they never touch
// storage themselves.
package authz

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Role is a closed enumeration. Raw strings from storage or tokens must go
// through ParseRole so a typo can never silently grant or deny access.
type Role string

const (
	RoleStudent       Role = "student"
	RoleTeacher       Role = "teacher"
	RoleAdmin         Role = "admin"
	RoleAdminDirector Role = "admin_director"
)

var allRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin, RoleAdminDirector}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", errors.Errorf("unknown role %q", s)
	}
	return r, nil
}

func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleAdminDirector:
		return true
	}
	return false
}

// Satisfies reports whether the role passes a gate restricted to `allowed`.
// RoleAdmin is a superset role and passes every gate. RoleAdminDirector is
// not; the few student-management gates that accept it list it explicitly.
func (r Role) Satisfies(allowed ...Role) bool {
	if r == RoleAdmin {
		return true
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// ApprovalStatus applies to students only.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Identity is the resolved caller: what access decisions depend on, nothing
// more.
type Identity struct {
	ID       string
	Role     Role
	Year     int
	Division string
	Approval ApprovalStatus
}

// ErrNotAuthenticated maps to HTTP 401. The message is surfaced verbatim by
// the UI.
var ErrNotAuthenticated = errors.New("No autenticado")

// PermissionError maps to HTTP 403 with its Reason as the response body.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string { return e.Reason }

func Forbidden(reason string) error { return &PermissionError{Reason: reason} }

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// Denial messages. The approval messages must stay distinguishable: the UI
// shows them verbatim.
const (
	MsgForbidden       = "Permiso denegado"
	MsgPendingApproval = "Tu cuenta está pendiente de aprobación"
	MsgRejected        = "Tu cuenta fue rechazada por la administración"
)

// RequireRole is the Role Gate. A zero Identity (no session) yields
// ErrNotAuthenticated; a valid identity with a role outside `allowed` yields
// a PermissionError.
func RequireRole(ident Identity, allowed ...Role) error {
	if ident.ID == "" {
		return ErrNotAuthenticated
	}
	if !ident.Role.Valid() {
		return Forbidden(MsgForbidden)
	}
	if !ident.Role.Satisfies(allowed...) {
		return Forbidden(MsgForbidden)
	}
	return nil
}

// RequireApproved is the student approval gate: a student may read but not
// write anywhere in the system until an admin approves them. Non-students
// always pass.
func RequireApproved(ident Identity) error {
	if ident.Role != RoleStudent {
		return nil
	}
	switch ident.Approval {
	case ApprovalApproved:
		return nil
	case ApprovalRejected:
		return Forbidden(MsgRejected)
	default:
		return Forbidden(MsgPendingApproval)
	}
}

// SubjectGrant is the ownership/enrollment snapshot of one subject, looked
// up by the service layer before deciding.
type SubjectGrant struct {
	SubjectID string
	TeacherID string // empty when the subject is unassigned
	Enrolled  bool   // active enrollment row exists for the caller
}

// CanReadSubject decides read eligibility on a subject or anything nested
// under it. Rule order: admin, teacher ownership, student enrollment.
func CanReadSubject(ident Identity, grant SubjectGrant) error {
	if ident.ID == "" {
		return ErrNotAuthenticated
	}
	switch ident.Role {
	case RoleAdmin, RoleAdminDirector:
		return nil
	case RoleTeacher:
		if grant.TeacherID == ident.ID {
			return nil
		}
		return Forbidden(MsgForbidden)
	case RoleStudent:
		if grant.Enrolled {
			return nil
		}
		return Forbidden(MsgForbidden)
	}
	return Forbidden(MsgForbidden)
}

// CanWriteSubject decides write eligibility on a subject or anything nested
// under it. Students additionally pass the approval gate. An optional custom
// denial message replaces MsgForbidden (approval messages are never
// overridden).
func CanWriteSubject(ident Identity, grant SubjectGrant, msg ...string) error {
	denial := MsgForbidden
	if len(msg) > 0 {
		denial = msg[0]
	}
	if ident.ID == "" {
		return ErrNotAuthenticated
	}
	switch ident.Role {
	case RoleAdmin:
		return nil
	case RoleTeacher:
		if grant.TeacherID == ident.ID {
			return nil
		}
		return Forbidden(denial)
	case RoleStudent:
		if !grant.Enrolled {
			return Forbidden(denial)
		}
		return RequireApproved(ident)
	}
	return Forbidden(denial)
}

// ConversationGrant is the membership snapshot of one conversation.
type ConversationGrant struct {
	ConversationID string
	Participant    bool // active conversation_participant row exists for the caller
}

// CanUseConversation decides read and send eligibility. Sending additionally
// goes through RequireApproved at the service layer.
func CanUseConversation(ident Identity, grant ConversationGrant) error {
	if ident.ID == "" {
		return ErrNotAuthenticated
	}
	if ident.Role == RoleAdmin {
		return nil
	}
	if grant.Participant {
		return nil
	}
	return Forbidden(MsgForbidden)
}

// MessageEditWindow bounds message edit/delete after creation. The boundary
// is exclusive: an action at exactly CreatedAt+15m is denied.
const MessageEditWindow = 15 * time.Minute

// CanModifyMessage decides edit/delete eligibility on a message: sender only,
// within the edit window.
func CanModifyMessage(ident Identity, senderID string, createdAt, now time.Time) error {
	if ident.ID == "" {
		return ErrNotAuthenticated
	}
	if ident.ID != senderID {
		return Forbidden("Solo podés modificar tus propios mensajes")
	}
	if now.Sub(createdAt) >= MessageEditWindow {
		return Forbidden(fmt.Sprintf("El mensaje ya no puede modificarse (límite de %d minutos)", int(MessageEditWindow.Minutes())))
	}
	return nil
}

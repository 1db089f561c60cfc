package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	student = Identity{ID: "stu-1", Role: RoleStudent, Year: 3, Division: "A", Approval: ApprovalApproved}
	pending = Identity{ID: "stu-2", Role: RoleStudent, Year: 1, Division: "B", Approval: ApprovalPending}
	reject  = Identity{ID: "stu-3", Role: RoleStudent, Year: 2, Division: "A", Approval: ApprovalRejected}
	teacher = Identity{ID: "tea-1", Role: RoleTeacher}
	admin   = Identity{ID: "adm-1", Role: RoleAdmin}
	direct  = Identity{ID: "dir-1", Role: RoleAdminDirector}
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"student", "teacher", "admin", "admin_director"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q) failed: %v", s, err)
		}
	}
	for _, s := range []string{"", "Admin", "admins", "root", "admin "} {
		if _, err := ParseRole(s); err == nil {
			t.Errorf("ParseRole(%q) should have failed", s)
		}
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		ident   Identity
		allowed []Role
		wantErr error
	}{
		{name: "no session", ident: Identity{}, allowed: []Role{RoleStudent}, wantErr: ErrNotAuthenticated},
		{name: "student on student gate", ident: student, allowed: []Role{RoleStudent}},
		{name: "student on teacher gate", ident: student, allowed: []Role{RoleTeacher}, wantErr: Forbidden(MsgForbidden)},
		{name: "teacher on teacher gate", ident: teacher, allowed: []Role{RoleTeacher}},
		{name: "admin satisfies every gate", ident: admin, allowed: []Role{RoleStudent}},
		{name: "admin on teacher gate", ident: admin, allowed: []Role{RoleTeacher}},
		{name: "director is not a superset", ident: direct, allowed: []Role{RoleTeacher}, wantErr: Forbidden(MsgForbidden)},
		{name: "director on explicit gate", ident: direct, allowed: []Role{RoleAdminDirector}},
		{name: "invalid role denied", ident: Identity{ID: "x", Role: Role("root")}, allowed: []Role{RoleStudent}, wantErr: Forbidden(MsgForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.ident, tt.allowed...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr.Error())
		})
	}
}

func TestRequireApproved(t *testing.T) {
	if err := RequireApproved(student); err != nil {
		t.Errorf("approved student should pass: %v", err)
	}
	if err := RequireApproved(teacher); err != nil {
		t.Errorf("teachers are not subject to approval: %v", err)
	}
	if err := RequireApproved(pending); err == nil || err.Error() != MsgPendingApproval {
		t.Errorf("pending student: got %v; want %q", err, MsgPendingApproval)
	}
	if err := RequireApproved(reject); err == nil || err.Error() != MsgRejected {
		t.Errorf("rejected student: got %v; want %q", err, MsgRejected)
	}
	// the two denial messages must remain distinguishable
	assert.NotEqual(t, MsgPendingApproval, MsgRejected)
}

func TestCanWriteSubject(t *testing.T) {
	owned := SubjectGrant{SubjectID: "sub-1", TeacherID: teacher.ID}
	foreign := SubjectGrant{SubjectID: "sub-2", TeacherID: "tea-other"}
	enrolled := SubjectGrant{SubjectID: "sub-1", Enrolled: true}

	tests := []struct {
		name    string
		ident   Identity
		grant   SubjectGrant
		wantMsg string // "" = allowed
	}{
		{name: "owning teacher", ident: teacher, grant: owned},
		{name: "foreign teacher", ident: teacher, grant: foreign, wantMsg: MsgForbidden},
		{name: "admin bypasses ownership", ident: admin, grant: foreign},
		{name: "enrolled approved student", ident: student, grant: enrolled},
		{name: "enrolled pending student", ident: pending, grant: enrolled, wantMsg: MsgPendingApproval},
		{name: "enrolled rejected student", ident: reject, grant: enrolled, wantMsg: MsgRejected},
		{name: "unenrolled student", ident: student, grant: foreign, wantMsg: MsgForbidden},
		{name: "director cannot write content", ident: direct, grant: owned, wantMsg: MsgForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanWriteSubject(tt.ident, tt.grant)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestCanWriteSubject_customMessage(t *testing.T) {
	msg := "No tienes permiso para crear foros en esta materia"
	err := CanWriteSubject(teacher, SubjectGrant{TeacherID: "someone-else"}, msg)
	assert.EqualError(t, err, msg)

	// approval denials keep their own message
	err = CanWriteSubject(pending, SubjectGrant{Enrolled: true}, msg)
	assert.EqualError(t, err, MsgPendingApproval)
}

func TestCanReadSubject(t *testing.T) {
	owned := SubjectGrant{TeacherID: teacher.ID}
	enrolled := SubjectGrant{Enrolled: true}

	if err := CanReadSubject(pending, enrolled); err != nil {
		t.Errorf("pending students may read: %v", err)
	}
	if err := CanReadSubject(student, SubjectGrant{}); err == nil {
		t.Error("unenrolled student read should be denied")
	}
	if err := CanReadSubject(teacher, owned); err != nil {
		t.Errorf("owning teacher read: %v", err)
	}
	if err := CanReadSubject(teacher, SubjectGrant{TeacherID: "other"}); err == nil {
		t.Error("foreign teacher read should be denied")
	}
	if err := CanReadSubject(direct, SubjectGrant{}); err != nil {
		t.Errorf("director reads everything: %v", err)
	}
}

func TestCanUseConversation(t *testing.T) {
	if err := CanUseConversation(student, ConversationGrant{Participant: true}); err != nil {
		t.Errorf("participant: %v", err)
	}
	if err := CanUseConversation(student, ConversationGrant{}); err == nil {
		t.Error("non-participant should be denied")
	}
	if err := CanUseConversation(admin, ConversationGrant{}); err != nil {
		t.Errorf("admin bypasses membership: %v", err)
	}
}

func TestCanModifyMessage_window(t *testing.T) {
	created := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		now     time.Time
		wantErr bool
	}{
		{name: "right away", now: created},
		{name: "at 14:59", now: created.Add(15*time.Minute - time.Second)},
		{name: "at exactly 15:00 (exclusive)", now: created.Add(15 * time.Minute), wantErr: true},
		{name: "after 15:00", now: created.Add(16 * time.Minute), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanModifyMessage(student, student.ID, created, tt.now)
			if (err != nil) != tt.wantErr {
				t.Errorf("CanModifyMessage() = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanModifyMessage_senderOnly(t *testing.T) {
	created := time.Now()
	if err := CanModifyMessage(student, "someone-else", created, created); err == nil {
		t.Error("non-sender edit should be denied")
	}
	// even the admin cannot edit another user's message
	if err := CanModifyMessage(admin, student.ID, created, created); err == nil {
		t.Error("admin editing a foreign message should be denied")
	}
}

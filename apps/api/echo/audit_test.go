package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/audit"
	"github.com/aulanet/campus/core/authz"
)

func Test_auditAPI_query(t *testing.T) {
	admin := createUser(t, "Admin Aud", "admin-aud@test.edu", authz.RoleAdmin, "", true)
	teacher := createUser(t, "Profe Aud", "profe-aud@test.edu", authz.RoleTeacher, "", true)

	auditSvc.Record(context.Background(), core.AuditEntry{
		UserID: teacher.ID, Action: "login", Details: "ok", IP: "127.0.0.1",
	})
	// the sink drains on a background worker
	waitForLog(t, teacher.ID)

	t.Run("admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/audit-logs", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("filter by user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/audit-logs?user_id="+teacher.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var logs []audit.Log
		if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(logs) == 0 {
			t.Fatal("no logs for teacher")
		}
		for _, l := range logs {
			if l.UserID != teacher.ID {
				t.Errorf("filter leaked log for %s", l.UserID)
			}
		}
	})
	t.Run("denials are recorded", func(t *testing.T) {
		student := createUser(t, "Alumna Aud", "alumna-aud@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)
		req, rec := newAuthRequest(http.MethodGet, "/v1/audit-logs", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		logs := waitForLog(t, student.ID)
		found := false
		for _, l := range logs {
			if l.Action == core.AuditUnauthorizedAccess {
				found = true
			}
		}
		if !found {
			t.Errorf("no %s entry in %+v", core.AuditUnauthorizedAccess, logs)
		}
	})
}

// waitForLog polls until the async audit worker has flushed an entry for the
// given user.
func waitForLog(t *testing.T, userID string) []audit.Log {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		logs, err := auditSvc.Query(context.Background(), audit.QueryFilter{UserID: userID})
		if err != nil {
			t.Fatalf("Query(): %v", err)
		}
		if len(logs) > 0 {
			return logs
		}
		if time.Now().After(deadline) {
			t.Fatal("audit entry never arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

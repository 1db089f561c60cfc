package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/settings"
)

func Test_settingsAPI(t *testing.T) {
	admin := createUser(t, "Admin Set", "admin-set@test.edu", authz.RoleAdmin, "", true)
	teacher := createUser(t, "Profe Set", "profe-set@test.edu", authz.RoleTeacher, "", true)

	t.Run("admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/settings", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("admin reads and updates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/settings", getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		body := marchallObj(t, settings.UpdateSettings{TeacherAllowList: []string{"Profes@Test.EDU "}})
		req, rec = newAuthRequest(http.MethodPut, "/v1/settings", getToken(t, admin), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var sett settings.Settings
		if err := json.Unmarshal(rec.Body.Bytes(), &sett); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		// entries come back cleaned and lowercased
		if len(sett.TeacherAllowList) != 1 || sett.TeacherAllowList[0] != "profes@test.edu" {
			t.Errorf("teacher_allow_list = %v", sett.TeacherAllowList)
		}

		// clear the list so later tests are unaffected
		if _, err := settingsSvc.Update(context.Background(), settings.UpdateSettings{TeacherAllowList: []string{}}); err != nil {
			t.Fatalf("Update(): %v", err)
		}
	})
}

func Test_settingsAPI_maintenanceMode(t *testing.T) {
	admin := createUser(t, "Admin Mant", "admin-mant@test.edu", authz.RoleAdmin, "", true)
	student := createUser(t, "Alumna Mant", "alumna-mant@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)

	on, off := true, false
	secs := 120
	if _, err := settingsSvc.Update(context.Background(), settings.UpdateSettings{MaintenanceMode: &on, RetryAfterSecs: &secs}); err != nil {
		t.Fatalf("Update(): %v", err)
	}
	defer func() {
		if _, err := settingsSvc.Update(context.Background(), settings.UpdateSettings{MaintenanceMode: &off}); err != nil {
			t.Fatalf("Update(): %v", err)
		}
	}()

	t.Run("api responds 503 with Retry-After", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/subjects", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Retry-After"); got != "120" {
			t.Errorf("Retry-After = %q; want 120", got)
		}
	})
	t.Run("settings stays reachable to turn it off", func(t *testing.T) {
		body := marchallObj(t, settings.UpdateSettings{MaintenanceMode: &off})
		req, rec := newAuthRequest(http.MethodPut, "/v1/settings", getToken(t, admin), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/subjects", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v after disabling maintenance; body %s", rec.Code, rec.Body.String())
		}
	})
}

package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aulanet/campus/core/assignment"
	"github.com/aulanet/campus/core/authz"
)

func Test_assignmentAPI_create(t *testing.T) {
	teacherA := createUser(t, "Profe TA", "profe-ta@test.edu", authz.RoleTeacher, "", true)
	teacherB := createUser(t, "Profe TB", "profe-tb@test.edu", authz.RoleTeacher, "", true)
	student := createUser(t, "Alumna T", "alumna-t@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)

	subj := createSubject(t, "Biología", "bio3a", teacherA.ID)
	enroll(t, student.ID, subj.ID)

	body := marchallObj(t, assignment.NewAssignment{Title: "TP 1", Description: "Células"})

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthed)},
		{name: "owner teacher", token: getToken(t, teacherA), wantCode: http.StatusCreated},
		{name: "foreign teacher denied", token: getToken(t, teacherB), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "student denied", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/subjects/"+subj.ID+"/assignments", tt.token, body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_assignmentAPI_submit(t *testing.T) {
	teacher := createUser(t, "Profe Sub", "profe-sub@test.edu", authz.RoleTeacher, "", true)
	approved := createUser(t, "Aprobada", "aprobada@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)
	pending := createUser(t, "Pendiente", "pendiente-sub@test.edu", authz.RoleStudent, authz.ApprovalPending, true)
	rejected := createUser(t, "Rechazada", "rechazada@test.edu", authz.RoleStudent, authz.ApprovalRejected, true)
	outsider := createUser(t, "Afuera Sub", "afuera-sub@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)

	subj := createSubject(t, "Geografía", "geo3a", teacher.ID)
	for _, usr := range []string{approved.ID, pending.ID, rejected.ID} {
		enroll(t, usr, subj.ID)
	}

	asg, err := assignmentSvc.Create(context.Background(), subj.ID, assignment.NewAssignment{
		Title: "Mapa", DueAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	submit := func(token string) *httpTestResult {
		req, rec := newUploadRequest(t, http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions",
			token, "mapa.pdf", "mi mapa", map[string]string{"comment": "listo"})
		app.ServeHTTP(rec, req)
		return &httpTestResult{code: rec.Code, body: rec.Body.Bytes()}
	}

	t.Run("pending student blocked by approval gate", func(t *testing.T) {
		res := submit(getToken(t, pending))
		if res.code != http.StatusForbidden {
			t.Fatalf("code = %v; body %s", res.code, res.body)
		}
		var e httpErr
		if err := json.Unmarshal(res.body, &e); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if e.Error != authz.MsgPendingApproval {
			t.Errorf("error = %q; want %q", e.Error, authz.MsgPendingApproval)
		}
	})
	t.Run("rejected student blocked with distinct message", func(t *testing.T) {
		res := submit(getToken(t, rejected))
		if res.code != http.StatusForbidden {
			t.Fatalf("code = %v; body %s", res.code, res.body)
		}
		var e httpErr
		if err := json.Unmarshal(res.body, &e); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if e.Error != authz.MsgRejected {
			t.Errorf("error = %q; want %q", e.Error, authz.MsgRejected)
		}
	})
	t.Run("unenrolled student denied", func(t *testing.T) {
		res := submit(getToken(t, outsider))
		if res.code != http.StatusForbidden {
			t.Errorf("code = %v; body %s", res.code, res.body)
		}
	})
	t.Run("teacher cannot submit", func(t *testing.T) {
		res := submit(getToken(t, teacher))
		if res.code != http.StatusForbidden {
			t.Errorf("code = %v; body %s", res.code, res.body)
		}
	})
	t.Run("approved enrolled student submits, resubmit replaces", func(t *testing.T) {
		res := submit(getToken(t, approved))
		if res.code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", res.code, res.body)
		}
		var first assignment.Submission
		if err := json.Unmarshal(res.body, &first); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}

		res = submit(getToken(t, approved))
		if res.code != http.StatusCreated {
			t.Fatalf("resubmit code = %v; body %s", res.code, res.body)
		}
		subs, err := assignmentSvc.QuerySubmissions(context.Background(), asg.ID)
		if err != nil {
			t.Fatalf("QuerySubmissions(): %v", err)
		}
		if len(subs) != 1 {
			t.Errorf("submissions = %d; want 1 (resubmit must replace)", len(subs))
		}
	})
	t.Run("past-due rejected", func(t *testing.T) {
		pastDue, err := assignmentSvc.Create(context.Background(), subj.ID, assignment.NewAssignment{
			Title: "Viejo", DueAt: time.Now().Add(-time.Hour),
		})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		req, rec := newUploadRequest(t, http.MethodPost, "/v1/assignments/"+pastDue.ID+"/submissions",
			getToken(t, approved), "tarde.pdf", "tarde", nil)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

type httpTestResult struct {
	code int
	body []byte
}

func Test_assignmentAPI_grade(t *testing.T) {
	teacher := createUser(t, "Profe Nota", "profe-nota@test.edu", authz.RoleTeacher, "", true)
	student := createUser(t, "Alumna Nota", "alumna-nota@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)

	subj := createSubject(t, "Arte", "art3a", teacher.ID)
	enroll(t, student.ID, subj.ID)

	asg, err := assignmentSvc.Create(context.Background(), subj.ID, assignment.NewAssignment{Title: "Collage"})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	req, rec := newUploadRequest(t, http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions",
		getToken(t, student), "collage.png", "img", nil)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit code = %v; body %s", rec.Code, rec.Body.String())
	}
	var sub assignment.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}

	gradeBody := marchallObj(t, assignment.NewGrade{Grade: 8.5, Feedback: "Muy bien"})

	t.Run("student cannot grade", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/grade", getToken(t, student), gradeBody)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("owner teacher grades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/grade", getToken(t, teacher), gradeBody)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var graded assignment.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &graded); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if graded.Grade == nil || *graded.Grade != 8.5 {
			t.Errorf("grade = %v; want 8.5", graded.Grade)
		}
	})
	t.Run("student reads own submission", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assignments/"+asg.ID+"/submissions/mine", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
	t.Run("student cannot list all submissions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/assignments/"+asg.ID+"/submissions", getToken(t, student))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})
}

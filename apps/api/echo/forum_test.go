package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/forum"
)

func Test_forumAPI_create(t *testing.T) {
	admin := createUser(t, "Admin F", "admin-f@test.edu", authz.RoleAdmin, "", true)
	teacherA := createUser(t, "Profe FA", "profe-fa@test.edu", authz.RoleTeacher, "", true)
	teacherB := createUser(t, "Profe FB", "profe-fb@test.edu", authz.RoleTeacher, "", true)
	student := createUser(t, "Alumna F", "alumna-f@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)

	subjB := createSubject(t, "Música", "mus3a", teacherB.ID)
	enroll(t, student.ID, subjB.ID)

	body := marchallObj(t, forum.NewForum{Title: "Dudas del TP"})
	noPerm := marchallObj(t, httpErr{Error: "No tienes permiso para crear foros en esta materia"})

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthed)},
		{
			name: "teacher cannot post on another teacher's subject", token: getToken(t, teacherA),
			wantCode: http.StatusForbidden, wantData: noPerm,
		},
		{
			name: "enrolled student cannot create forums", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: noPerm,
		},
		{name: "owner teacher", token: getToken(t, teacherB), wantCode: http.StatusCreated},
		{name: "admin on any subject", token: getToken(t, admin), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/subjects/"+subjB.ID+"/forums", tt.token, body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_forumAPI_questionsAndAnswers(t *testing.T) {
	teacher := createUser(t, "Profe QA", "profe-qa@test.edu", authz.RoleTeacher, "", true)
	asker := createUser(t, "Alumna QA", "alumna-qa@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)
	helper := createUser(t, "Alumno QB", "alumno-qb@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)
	outsider := createUser(t, "Afuera QA", "afuera-qa@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)

	subj := createSubject(t, "Informática", "inf3a", teacher.ID)
	enroll(t, asker.ID, subj.ID)
	enroll(t, helper.ID, subj.ID)

	frm, err := forumSvc.CreateForum(context.Background(), subj.ID, forum.NewForum{Title: "General"})
	if err != nil {
		t.Fatalf("CreateForum(): %v", err)
	}

	var q forum.Question
	t.Run("enrolled student posts question", func(t *testing.T) {
		body := marchallObj(t, forum.NewQuestion{Title: "¿Qué es un puntero?", Body: "No entiendo el apunte."})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forums/"+frm.ID+"/questions", getToken(t, asker), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if q.AuthorID != asker.ID {
			t.Errorf("author_id = %s; want %s", q.AuthorID, asker.ID)
		}
	})
	t.Run("unenrolled student cannot post", func(t *testing.T) {
		body := marchallObj(t, forum.NewQuestion{Title: "Hola", Body: "Me colé."})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forums/"+frm.ID+"/questions", getToken(t, outsider), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	var ans forum.Answer
	t.Run("classmate answers", func(t *testing.T) {
		body := marchallObj(t, forum.NewAnswer{Body: "Es una dirección de memoria."})
		req, rec := newAuthRequest(http.MethodPost, "/v1/questions/"+q.ID+"/answers", getToken(t, helper), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &ans); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		// the question's author gets a notification, the answerer does not
		notifSvc.Flush()
		notes, err := notifSvc.Query(context.Background(), asker.ID)
		if err != nil {
			t.Fatalf("Query(): %v", err)
		}
		if len(notes) == 0 {
			t.Error("question author should have been notified")
		}
	})
	t.Run("student cannot accept an answer", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/answers/"+ans.ID+"/accept", getToken(t, asker))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("teacher accepts the answer", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/answers/"+ans.ID+"/accept", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var accepted forum.Answer
		if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !accepted.IsAccepted {
			t.Error("answer should be accepted")
		}
	})
	t.Run("unknown forum is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/forums/desconocido/questions", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

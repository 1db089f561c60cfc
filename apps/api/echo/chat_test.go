package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/chat"
)

func Test_chatAPI_conversations(t *testing.T) {
	teacher := createUser(t, "Profe Chat", "profe-chat@test.edu", authz.RoleTeacher, "", true)
	student := createUser(t, "Alumna Chat", "alumna-chat@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)
	pending := createUser(t, "Pendiente Chat", "pendiente-chat@test.edu", authz.RoleStudent, authz.ApprovalPending, true)
	stranger := createUser(t, "Extraño Chat", "extranio-chat@test.edu", authz.RoleStudent, authz.ApprovalApproved, true)

	t.Run("pending student cannot start a conversation", func(t *testing.T) {
		body := marchallObj(t, chat.NewConversation{ParticipantIDs: []string{teacher.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/conversations", getToken(t, pending), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: authz.MsgPendingApproval})}
		checkCodeAndData(t, tt, rec)
	})

	var conv chat.Conversation
	t.Run("student starts a conversation with the teacher", func(t *testing.T) {
		body := marchallObj(t, chat.NewConversation{Topic: "Consulta TP", ParticipantIDs: []string{teacher.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/conversations", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
	})
	t.Run("both participants list it", func(t *testing.T) {
		for _, usr := range []string{getToken(t, student), getToken(t, teacher)} {
			req, rec := newAuthRequest(http.MethodGet, "/v1/conversations", usr)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
			}
			var convs []chat.Conversation
			if err := json.Unmarshal(rec.Body.Bytes(), &convs); err != nil {
				t.Fatalf("json.Unmarshal(): %v", err)
			}
			found := false
			for _, c := range convs {
				if c.ID == conv.ID {
					found = true
				}
			}
			if !found {
				t.Errorf("conversation %s missing from list %+v", conv.ID, convs)
			}
		}
	})

	msgBody := marchallObj(t, chat.NewMessage{Body: "Hola, tengo una duda."})

	t.Run("non-participant cannot send", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", getToken(t, stranger), msgBody)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("non-participant cannot read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", getToken(t, stranger))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	var msg chat.Message
	t.Run("participant sends and reads back", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", getToken(t, student), msgBody)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("send code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("read code = %v; body %s", rec.Code, rec.Body.String())
		}
		var msgs []chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(msgs) != 1 || msgs[0].Body != "Hola, tengo una duda." {
			t.Errorf("messages = %+v", msgs)
		}
	})
	t.Run("sender edits inside the window", func(t *testing.T) {
		body := marchallObj(t, chat.EditMessage{Body: "Hola, ya lo resolví."})
		req, rec := newAuthRequest(http.MethodPut, "/v1/messages/"+msg.ID, getToken(t, student), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var edited chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &edited); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if edited.Body != "Hola, ya lo resolví." || edited.EditedAt.IsZero() {
			t.Errorf("edited = %+v", edited)
		}
	})
	t.Run("another participant cannot edit someone else's message", func(t *testing.T) {
		body := marchallObj(t, chat.EditMessage{Body: "hackeado"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/messages/"+msg.ID, getToken(t, teacher), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "Solo podés modificar tus propios mensajes"}),
		}
		checkCodeAndData(t, tt, rec)
	})
	t.Run("sender deletes, body is blanked", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/messages/"+msg.ID, getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", getToken(t, student))
		app.ServeHTTP(rec, req)
		var msgs []chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(msgs) != 1 || !msgs[0].IsDeleted || msgs[0].Body != "" {
			t.Errorf("messages after delete = %+v", msgs)
		}
	})
	t.Run("attachment upload", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, "/v1/conversations/"+conv.ID+"/attachments",
			getToken(t, student), "foto.png", "bytes", nil)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var att chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if att.AttachmentURL == "" {
			t.Error("attachment_url is empty")
		}
	})
	t.Run("unknown conversation is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/conversations/desconocida/messages", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

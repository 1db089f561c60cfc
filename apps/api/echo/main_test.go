package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/go-playground/locales/es"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/assignment"
	"github.com/aulanet/campus/core/audit"
	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/chat"
	"github.com/aulanet/campus/core/forum"
	"github.com/aulanet/campus/core/notification"
	"github.com/aulanet/campus/core/school"
	"github.com/aulanet/campus/core/settings"
	"github.com/aulanet/campus/core/support"
	"github.com/aulanet/campus/core/user"
	emailsvc "github.com/aulanet/campus/services/email"
	logsvc "github.com/aulanet/campus/services/logger"
	filestore "github.com/aulanet/campus/services/storage"
	dummydb "github.com/aulanet/campus/storage/database/dummy"
)

var (
	conf *core.Config
	app  Server

	usrRepo user.Repository
	usrSvc  *user.Service

	schoolSvc     *school.Service
	assignmentSvc *assignment.Service
	forumSvc      *forum.Service
	chatSvc       *chat.Service
	notifSvc      *notification.Service
	auditSvc      *audit.Service
	settingsSvc   *settings.Service
	supportSvc    *support.Service

	errNotAuthed = httpErr{Error: "No autenticado"}
	errForbidden = httpErr{Error: "Permiso denegado"}
)

func TestMain(m *testing.M) {
	uploadDir, err := os.MkdirTemp("", "campus-test-media")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(uploadDir) }()

	conf = &core.Config{
		Debug:     true,
		TestMode:  true,
		AppName:   "Campus Virtual",
		SecretKey: []byte("secreto-de-prueba"),
		UploadDir: uploadDir,
		Server: core.ServerConfig{
			JWTExpirationDelta:        1 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetTimeoutDelta: 1 * time.Hour,
		},
	}

	esLocale := es.New()
	uni := ut.New(esLocale, esLocale)
	translator, _ := uni.GetTranslator("es")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	files := filestore.NewLocalStorage(conf)

	db := dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)

	auditSvc = audit.NewService(dummydb.NewAuditRepository(db), logger)
	notifSvc = notification.NewService(dummydb.NewNotificationRepository(db), logger)

	usrSvc = user.NewService(usrRepo, mailSvc, conf, logger, auditSvc, notifSvc)
	settingsSvc = settings.NewService(dummydb.NewSettingsRepository(db))
	schoolSvc = school.NewService(dummydb.NewSchoolRepository(db), settingsSvc, dummydb.NewUserRepository(db), files, notifSvc)
	assignmentSvc = assignment.NewService(dummydb.NewAssignmentRepository(db), files, notifSvc)
	forumSvc = forum.NewService(dummydb.NewForumRepository(db), notifSvc)
	chatSvc = chat.NewService(dummydb.NewChatRepository(db), files, notifSvc)
	supportSvc = support.NewService(dummydb.NewSupportRepository(db), notifSvc)

	app = NewServer(&Options{
		Conf:            conf,
		Logger:          logger,
		DisableReqLogs:  true,
		UserSvc:         usrSvc,
		SchoolSvc:       schoolSvc,
		AssignmentSvc:   assignmentSvc,
		ForumSvc:        forumSvc,
		ChatSvc:         chatSvc,
		NotificationSvc: notifSvc,
		AuditSvc:        auditSvc,
		SettingsSvc:     settingsSvc,
		SupportSvc:      supportSvc,
		Audit:           auditSvc,
		Validate:        validate,
		Translator:      translator,
	})

	code := m.Run()
	notifSvc.Flush()
	auditSvc.Close()
	os.Exit(code)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request with one file part plus extra
// form fields.
func newUploadRequest(t *testing.T, method, path, token, filename, content string, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(): %v", err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile(): %v", err)
	}
	if _, err = part.Write([]byte(content)); err != nil {
		t.Fatalf("part.Write(): %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("multipart.Close(): %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createUser(t *testing.T, name, email string, role authz.Role, approval authz.ApprovalStatus, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:           name,
		Email:          email,
		Role:           role,
		ApprovalStatus: approval,
		IsActive:       isActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if role == authz.RoleStudent {
		usr.Year = 3
		usr.Division = "A"
	}
	if err := usr.SetPassword("clave-segura"); err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func createSubject(t *testing.T, name, code string, teacherID string) school.Subject {
	t.Helper()
	subj, err := schoolSvc.CreateSubject(context.Background(), school.NewSubject{
		Name: name, Code: code, Year: 3, Division: "A", TeacherID: teacherID,
	})
	if err != nil {
		t.Fatalf("createSubject(): %v", err)
	}
	return subj
}

func enroll(t *testing.T, studentID, subjectID string) {
	t.Helper()
	if err := schoolSvc.Enroll(context.Background(), studentID, subjectID); err != nil {
		t.Fatalf("enroll(): %v", err)
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(tt.wantData)),
			B:        difflib.SplitLines(rec.Body.String()),
			FromFile: "want",
			ToFile:   "got",
		})
		t.Errorf("failed! body mismatch:\n%s", diff)
	}
}

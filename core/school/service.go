package school

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/authz"
)

var (
	ErrSubjectNotFound  = errors.New("materia no encontrada")
	ErrUnitNotFound     = errors.New("unidad no encontrada")
	ErrContentNotFound  = errors.New("contenido no encontrado")
	ErrDocumentNotFound = errors.New("documento no encontrado")
	ErrCodeExists       = errors.New("ya existe una materia con este código")
	ErrTeacherNotListed = errors.New("el docente no está en la lista habilitada")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		QuerySubjectsByTeacher(ctx context.Context, teacherID string) ([]Subject, error)
		QuerySubjectsByStudent(ctx context.Context, studentID string) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		DeactivateSubject(ctx context.Context, id string) error

		// UpsertEnrollment is idempotent: enrolling twice neither duplicates
		// nor errors, and re-enrolling reactivates a removed enrollment.
		UpsertEnrollment(ctx context.Context, studentID, subjectID string) error
		RemoveEnrollment(ctx context.Context, studentID, subjectID string) error
		IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error)
		QueryEnrolledStudentIDs(ctx context.Context, subjectID string) ([]string, error)

		CreateUnit(ctx context.Context, u Unit) (Unit, error)
		GetUnitByID(ctx context.Context, id string) (Unit, error)
		QueryUnits(ctx context.Context, subjectID string) ([]Unit, error)
		UpdateUnit(ctx context.Context, u Unit) (Unit, error)
		DeactivateUnit(ctx context.Context, id string) error

		CreateContent(ctx context.Context, c Content) (Content, error)
		GetContentByID(ctx context.Context, id string) (Content, error)
		QueryContents(ctx context.Context, unitID string) ([]Content, error)
		DeactivateContent(ctx context.Context, id string) error

		CreateDocument(ctx context.Context, d Document) (Document, error)
		GetDocumentByID(ctx context.Context, id string) (Document, error)
		QueryDocuments(ctx context.Context, subjectID string) ([]Document, error)
		DeactivateDocument(ctx context.Context, id string) error
	}

	// TeacherAllowList is the persisted list of emails allowed to be assigned
	// as subject teachers (see core/settings).
	TeacherAllowList interface {
		TeacherAllowed(ctx context.Context, email string) (bool, error)
	}

	// TeacherDirectory resolves a teacher id to their email for the
	// allow-list check without importing core/user.
	TeacherDirectory interface {
		TeacherEmail(ctx context.Context, teacherID string) (string, error)
	}

	Service struct {
		repo      Repository
		allowList TeacherAllowList
		directory TeacherDirectory
		files     core.FileStorage
		notify    core.NotificationSink
	}
)

func NewService(
	repo Repository,
	allowList TeacherAllowList,
	directory TeacherDirectory,
	files core.FileStorage,
	notify core.NotificationSink,
) *Service {
	return &Service{
		repo:      repo,
		allowList: allowList,
		directory: directory,
		files:     files,
		notify:    notify,
	}
}

// Grant resolves the ownership/enrollment snapshot the authz policy needs
// for a subject. Nested resources (units, contents, documents, assignments,
// forums) always resolve their grant by walking up to the owning subject.
func (svc *Service) Grant(ctx context.Context, ident authz.Identity, subjectID string) (authz.SubjectGrant, error) {
	subj, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return authz.SubjectGrant{}, err
	}
	grant := authz.SubjectGrant{SubjectID: subj.ID, TeacherID: subj.TeacherID}
	if ident.Role == authz.RoleStudent {
		enrolled, err := svc.repo.IsEnrolled(ctx, ident.ID, subj.ID)
		if err != nil {
			return authz.SubjectGrant{}, err
		}
		grant.Enrolled = enrolled
	}
	return grant, nil
}

// GrantForUnit walks a unit up to its subject before applying the policy.
func (svc *Service) GrantForUnit(ctx context.Context, ident authz.Identity, unitID string) (Unit, authz.SubjectGrant, error) {
	unit, err := svc.repo.GetUnitByID(ctx, unitID)
	if err != nil {
		return Unit{}, authz.SubjectGrant{}, err
	}
	grant, err := svc.Grant(ctx, ident, unit.SubjectID)
	return unit, grant, err
}

// GrantForContent walks a content item up to its subject via the owning unit.
func (svc *Service) GrantForContent(ctx context.Context, ident authz.Identity, contentID string) (Content, authz.SubjectGrant, error) {
	content, err := svc.repo.GetContentByID(ctx, contentID)
	if err != nil {
		return Content{}, authz.SubjectGrant{}, err
	}
	unit, err := svc.repo.GetUnitByID(ctx, content.UnitID)
	if err != nil {
		return Content{}, authz.SubjectGrant{}, err
	}
	grant, err := svc.Grant(ctx, ident, unit.SubjectID)
	return content, grant, err
}

// GrantForDocument walks a document up to its subject.
func (svc *Service) GrantForDocument(ctx context.Context, ident authz.Identity, documentID string) (Document, authz.SubjectGrant, error) {
	doc, err := svc.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return Document{}, authz.SubjectGrant{}, err
	}
	grant, err := svc.Grant(ctx, ident, doc.SubjectID)
	return doc, grant, err
}

func (svc *Service) checkTeacherAllowed(ctx context.Context, teacherID string) error {
	if teacherID == "" {
		return nil
	}
	email, err := svc.directory.TeacherEmail(ctx, teacherID)
	if err != nil {
		return err
	}
	ok, err := svc.allowList.TeacherAllowed(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewValidationError(ErrTeacherNotListed, core.FieldError{Field: "teacher_id", Error: ErrTeacherNotListed.Error()})
	}
	return nil
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.checkTeacherAllowed(ctx, ns.TeacherID); err != nil {
		return Subject{}, err
	}
	now := time.Now().UTC()
	subj, err := svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		Code:      ns.Code,
		Year:      ns.Year,
		Division:  ns.Division,
		TeacherID: ns.TeacherID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Subject{}, core.NewConflictError(ErrCodeExists.Error())
		}
		return Subject{}, err
	}
	return subj, nil
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

// QuerySubjects returns the subjects visible to the caller: all for admins,
// owned for teachers, enrolled for students.
func (svc *Service) QuerySubjects(ctx context.Context, ident authz.Identity) ([]Subject, error) {
	switch ident.Role {
	case authz.RoleAdmin, authz.RoleAdminDirector:
		return svc.repo.QuerySubjects(ctx)
	case authz.RoleTeacher:
		return svc.repo.QuerySubjectsByTeacher(ctx, ident.ID)
	default:
		return svc.repo.QuerySubjectsByStudent(ctx, ident.ID)
	}
}

func (svc *Service) UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	subj, err := svc.repo.GetSubjectByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if us.Name != "" {
		subj.Name = core.CleanString(us.Name)
	}
	if us.TeacherID != nil {
		if err := svc.checkTeacherAllowed(ctx, *us.TeacherID); err != nil {
			return Subject{}, err
		}
		subj.TeacherID = *us.TeacherID
	}
	subj.UpdatedAt = time.Now().UTC()
	subj, err = svc.repo.UpdateSubject(ctx, subj)
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Subject{}, core.NewConflictError(ErrCodeExists.Error())
		}
		return Subject{}, err
	}
	return subj, nil
}

func (svc *Service) DeactivateSubject(ctx context.Context, id string) error {
	if _, err := svc.repo.GetSubjectByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeactivateSubject(ctx, id)
}

func (svc *Service) Enroll(ctx context.Context, studentID, subjectID string) error {
	subj, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return err
	}
	if err := svc.repo.UpsertEnrollment(ctx, studentID, subjectID); err != nil {
		return err
	}
	svc.notify.Notify(ctx, core.Note{
		UserID: studentID,
		Kind:   "enrollment",
		Title:  "Nueva materia",
		Body:   "Fuiste inscripto en " + subj.Name + ".",
	})
	return nil
}

func (svc *Service) Unenroll(ctx context.Context, studentID, subjectID string) error {
	return svc.repo.RemoveEnrollment(ctx, studentID, subjectID)
}

func (svc *Service) EnrolledStudentIDs(ctx context.Context, subjectID string) ([]string, error) {
	return svc.repo.QueryEnrolledStudentIDs(ctx, subjectID)
}

func (svc *Service) CreateUnit(ctx context.Context, subjectID string, nu NewUnit) (Unit, error) {
	now := time.Now().UTC()
	return svc.repo.CreateUnit(ctx, Unit{
		SubjectID: subjectID,
		Title:     nu.Title,
		Position:  nu.Position,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryUnits(ctx context.Context, subjectID string) ([]Unit, error) {
	return svc.repo.QueryUnits(ctx, subjectID)
}

func (svc *Service) UpdateUnit(ctx context.Context, unit Unit) (Unit, error) {
	unit.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUnit(ctx, unit)
}

func (svc *Service) DeactivateUnit(ctx context.Context, id string) error {
	return svc.repo.DeactivateUnit(ctx, id)
}

func (svc *Service) CreateContent(ctx context.Context, unitID string, nc NewContent) (Content, error) {
	now := time.Now().UTC()
	return svc.repo.CreateContent(ctx, Content{
		UnitID:    unitID,
		Kind:      nc.Kind,
		Title:     nc.Title,
		Body:      nc.Body,
		URL:       nc.URL,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryContents(ctx context.Context, unitID string) ([]Content, error) {
	return svc.repo.QueryContents(ctx, unitID)
}

func (svc *Service) DeactivateContent(ctx context.Context, id string) error {
	return svc.repo.DeactivateContent(ctx, id)
}

// UploadDocument stores the file externally and persists only URL + metadata.
func (svc *Service) UploadDocument(ctx context.Context, subjectID, uploaderID string, nd NewDocument, filename string, r io.Reader) (Document, error) {
	url, err := svc.files.Save(ctx, "documents/"+subjectID, filename, r)
	if err != nil {
		return Document{}, errors.Wrap(err, "storing document")
	}
	return svc.repo.CreateDocument(ctx, Document{
		SubjectID:  subjectID,
		UploaderID: uploaderID,
		Title:      nd.Title,
		URL:        url,
		IsPublic:   nd.IsPublic,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	})
}

func (svc *Service) QueryDocuments(ctx context.Context, subjectID string) ([]Document, error) {
	return svc.repo.QueryDocuments(ctx, subjectID)
}

func (svc *Service) DeactivateDocument(ctx context.Context, id string) error {
	return svc.repo.DeactivateDocument(ctx, id)
}

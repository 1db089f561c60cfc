package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/school"
)

func (s *server) registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	sg := g.Group("/subjects", jwt)

	sg.GET("", s.subjectQuery)
	sg.POST("", s.subjectCreate, s.roleMiddleware())
	sg.GET("/:id", s.subjectGet)
	sg.PUT("/:id", s.subjectUpdate, s.roleMiddleware())
	sg.DELETE("/:id", s.subjectDeactivate, s.roleMiddleware())

	// enrollment is managed by the administration, not self-service
	sg.GET("/:id/students", s.subjectStudents)
	sg.POST("/:id/enrollments", s.subjectEnroll, s.roleMiddleware())
	sg.DELETE("/:id/enrollments/:studentID", s.subjectUnenroll, s.roleMiddleware())

	sg.GET("/:id/units", s.unitQuery)
	sg.POST("/:id/units", s.unitCreate)
	sg.GET("/:id/documents", s.documentQuery)
	sg.POST("/:id/documents", s.documentUpload)

	ung := g.Group("/units", jwt)
	ung.PUT("/:id", s.unitUpdate)
	ung.DELETE("/:id", s.unitDeactivate)
	ung.GET("/:id/contents", s.contentQuery)
	ung.POST("/:id/contents", s.contentCreate)

	cg := g.Group("/contents", jwt)
	cg.DELETE("/:id", s.contentDeactivate)

	dg := g.Group("/documents", jwt)
	dg.DELETE("/:id", s.documentDeactivate)
}

// subjectGrant resolves the caller's identity plus the ownership/enrollment
// snapshot of the subject in :param. Shared by every nested handler.
func (s *server) subjectGrant(ctx echo.Context, subjectID string) (authz.Identity, authz.SubjectGrant, error) {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return authz.Identity{}, authz.SubjectGrant{}, err
	}
	grant, err := s.opts.SchoolSvc.Grant(ctx.Request().Context(), ident, subjectID)
	if err != nil {
		return authz.Identity{}, authz.SubjectGrant{}, err
	}
	return ident, grant, nil
}

// Subject handlers

func (s *server) subjectQuery(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	subjects, err := s.opts.SchoolSvc.QuerySubjects(ctx.Request().Context(), ident)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (s *server) subjectCreate(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	subj, err := s.opts.SchoolSvc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (s *server) subjectGet(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	subj, err := s.opts.SchoolSvc.GetSubject(ctx.Request().Context(), grant.SubjectID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (s *server) subjectUpdate(ctx echo.Context) error {
	var data school.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	subj, err := s.opts.SchoolSvc.UpdateSubject(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (s *server) subjectDeactivate(ctx echo.Context) error {
	if err := s.opts.SchoolSvc.DeactivateSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enrollment handlers

func (s *server) subjectStudents(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	// the roster is for staff eyes only; enrolled students don't see each other
	if err := authz.RequireRole(ident, authz.RoleAdminDirector); err != nil {
		if ident.Role != authz.RoleTeacher || grant.TeacherID != ident.ID {
			return err
		}
	}
	ids, err := s.opts.SchoolSvc.EnrolledStudentIDs(ctx.Request().Context(), grant.SubjectID)
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"student_ids": ids})
}

func (s *server) subjectEnroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := s.opts.Validate.Struct(&data); err != nil {
		return err
	}
	if err := s.opts.SchoolSvc.Enroll(ctx.Request().Context(), data.StudentID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) subjectUnenroll(ctx echo.Context) error {
	err := s.opts.SchoolSvc.Unenroll(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Unit handlers

func (s *server) unitQuery(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	units, err := s.opts.SchoolSvc.QueryUnits(ctx.Request().Context(), grant.SubjectID)
	if err != nil {
		return err
	}
	if units == nil {
		units = []school.Unit{}
	}
	return ctx.JSON(http.StatusOK, units)
}

func (s *server) unitCreate(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	var data school.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	unit, err := s.opts.SchoolSvc.CreateUnit(ctx.Request().Context(), grant.SubjectID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, unit)
}

func (s *server) unitUpdate(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	unit, grant, err := s.opts.SchoolSvc.GrantForUnit(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	var data school.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	unit.Title = data.Title
	unit.Position = data.Position

	unit, err = s.opts.SchoolSvc.UpdateUnit(ctx.Request().Context(), unit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, unit)
}

func (s *server) unitDeactivate(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	unit, grant, err := s.opts.SchoolSvc.GrantForUnit(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}
	if err := s.opts.SchoolSvc.DeactivateUnit(ctx.Request().Context(), unit.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Content handlers

func (s *server) contentQuery(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	unit, grant, err := s.opts.SchoolSvc.GrantForUnit(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	contents, err := s.opts.SchoolSvc.QueryContents(ctx.Request().Context(), unit.ID)
	if err != nil {
		return err
	}
	if contents == nil {
		contents = []school.Content{}
	}
	return ctx.JSON(http.StatusOK, contents)
}

func (s *server) contentCreate(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	unit, grant, err := s.opts.SchoolSvc.GrantForUnit(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	var data school.NewContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContent")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	content, err := s.opts.SchoolSvc.CreateContent(ctx.Request().Context(), unit.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, content)
}

func (s *server) contentDeactivate(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	content, grant, err := s.opts.SchoolSvc.GrantForContent(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}
	if err := s.opts.SchoolSvc.DeactivateContent(ctx.Request().Context(), content.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Document handlers

func (s *server) documentQuery(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	docs, err := s.opts.SchoolSvc.QueryDocuments(ctx.Request().Context(), grant.SubjectID)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []school.Document{}
	}
	return ctx.JSON(http.StatusOK, docs)
}

func (s *server) documentUpload(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	data := school.NewDocument{
		Title:    ctx.FormValue("title"),
		IsPublic: ctx.FormValue("is_public") == "true",
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "falta el archivo")
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	doc, err := s.opts.SchoolSvc.UploadDocument(
		ctx.Request().Context(), grant.SubjectID, ident.ID, data, fileHdr.Filename, file)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (s *server) documentDeactivate(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	doc, grant, err := s.opts.SchoolSvc.GrantForDocument(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}
	if err := s.opts.SchoolSvc.DeactivateDocument(ctx.Request().Context(), doc.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

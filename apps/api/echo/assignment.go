package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/assignment"
	"github.com/aulanet/campus/core/authz"
)

func (s *server) registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	sg := g.Group("/subjects/:id/assignments", jwt)
	sg.GET("", s.assignmentQuery)
	sg.POST("", s.assignmentCreate)

	ag := g.Group("/assignments", jwt)
	ag.GET("/:id", s.assignmentGet)
	ag.DELETE("/:id", s.assignmentDeactivate)
	ag.POST("/:id/submissions", s.submissionSubmit)
	ag.GET("/:id/submissions", s.submissionQuery)
	ag.GET("/:id/submissions/mine", s.submissionMine)

	smg := g.Group("/submissions", jwt)
	smg.PUT("/:id/grade", s.submissionGrade)
}

// assignmentGrant resolves the identity and the owning subject's grant for the
// assignment in :param.
func (s *server) assignmentGrant(ctx echo.Context, id string) (assignment.Assignment, authz.Identity, authz.SubjectGrant, error) {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return assignment.Assignment{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	asg, err := s.opts.AssignmentSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return assignment.Assignment{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	grant, err := s.opts.SchoolSvc.Grant(ctx.Request().Context(), ident, asg.SubjectID)
	if err != nil {
		return assignment.Assignment{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	return asg, ident, grant, nil
}

func (s *server) assignmentQuery(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	asgs, err := s.opts.AssignmentSvc.Query(ctx.Request().Context(), grant.SubjectID)
	if err != nil {
		return err
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (s *server) assignmentCreate(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	// students never create assignments, regardless of enrollment
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	asg, err := s.opts.AssignmentSvc.Create(ctx.Request().Context(), grant.SubjectID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (s *server) assignmentGet(ctx echo.Context) error {
	asg, ident, grant, err := s.assignmentGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (s *server) assignmentDeactivate(ctx echo.Context) error {
	asg, ident, grant, err := s.assignmentGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}
	if err := s.opts.AssignmentSvc.Deactivate(ctx.Request().Context(), asg.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// submissionSubmit lets an enrolled, approved student hand in their work. A
// second submission before the deadline replaces the first.
func (s *server) submissionSubmit(ctx echo.Context) error {
	asg, ident, grant, err := s.assignmentGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role != authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
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

	sub, err := s.opts.AssignmentSvc.Submit(
		ctx.Request().Context(), asg, ident.ID, ctx.FormValue("comment"), fileHdr.Filename, file)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (s *server) submissionQuery(ctx echo.Context) error {
	asg, ident, grant, err := s.assignmentGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	// the full list exposes every student's work: staff only
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	subs, err := s.opts.AssignmentSvc.QuerySubmissions(ctx.Request().Context(), asg.ID)
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (s *server) submissionMine(ctx echo.Context) error {
	asg, ident, grant, err := s.assignmentGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	sub, err := s.opts.AssignmentSvc.GetOwnSubmission(ctx.Request().Context(), asg.ID, ident.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (s *server) submissionGrade(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	sub, err := s.opts.AssignmentSvc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	asg, err := s.opts.AssignmentSvc.GetByID(ctx.Request().Context(), sub.AssignmentID)
	if err != nil {
		return err
	}
	grant, err := s.opts.SchoolSvc.Grant(ctx.Request().Context(), ident, asg.SubjectID)
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	var data assignment.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sub, err = s.opts.AssignmentSvc.Grade(ctx.Request().Context(), sub, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

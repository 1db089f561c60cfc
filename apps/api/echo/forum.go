package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/forum"
)

func (s *server) registerForumAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	sg := g.Group("/subjects/:id/forums", jwt)
	sg.GET("", s.forumQuery)
	sg.POST("", s.forumCreate)

	fg := g.Group("/forums", jwt)
	fg.DELETE("/:id", s.forumDeactivate)
	fg.GET("/:id/questions", s.questionQuery)
	fg.POST("/:id/questions", s.questionPost)

	qg := g.Group("/questions", jwt)
	qg.GET("/:id/answers", s.answerQuery)
	qg.POST("/:id/answers", s.answerPost)

	ang := g.Group("/answers", jwt)
	ang.PUT("/:id/accept", s.answerAccept)
}

// forumGrant resolves the identity and the owning subject's grant for the
// forum in :param.
func (s *server) forumGrant(ctx echo.Context, id string) (forum.Forum, authz.Identity, authz.SubjectGrant, error) {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return forum.Forum{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	frm, err := s.opts.ForumSvc.GetForum(ctx.Request().Context(), id)
	if err != nil {
		return forum.Forum{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	grant, err := s.opts.SchoolSvc.Grant(ctx.Request().Context(), ident, frm.SubjectID)
	if err != nil {
		return forum.Forum{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	return frm, ident, grant, nil
}

// questionGrant walks a question up to its subject via the forum.
func (s *server) questionGrant(ctx echo.Context, id string) (forum.Question, authz.Identity, authz.SubjectGrant, error) {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return forum.Question{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	q, err := s.opts.ForumSvc.GetQuestion(ctx.Request().Context(), id)
	if err != nil {
		return forum.Question{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	frm, err := s.opts.ForumSvc.GetForum(ctx.Request().Context(), q.ForumID)
	if err != nil {
		return forum.Question{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	grant, err := s.opts.SchoolSvc.Grant(ctx.Request().Context(), ident, frm.SubjectID)
	if err != nil {
		return forum.Question{}, authz.Identity{}, authz.SubjectGrant{}, err
	}
	return q, ident, grant, nil
}

func (s *server) forumQuery(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	forums, err := s.opts.ForumSvc.QueryForums(ctx.Request().Context(), grant.SubjectID)
	if err != nil {
		return err
	}
	if forums == nil {
		forums = []forum.Forum{}
	}
	return ctx.JSON(http.StatusOK, forums)
}

// forumCreate is teacher/admin only. A teacher on a foreign subject gets the
// forum-specific denial.
func (s *server) forumCreate(ctx echo.Context) error {
	ident, grant, err := s.subjectGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(forum.MsgNoForumPerm)
	}
	if err := authz.CanWriteSubject(ident, grant, forum.MsgNoForumPerm); err != nil {
		return err
	}

	var data forum.NewForum
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForum")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	frm, err := s.opts.ForumSvc.CreateForum(ctx.Request().Context(), grant.SubjectID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, frm)
}

func (s *server) forumDeactivate(ctx echo.Context) error {
	frm, ident, grant, err := s.forumGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}
	if err := s.opts.ForumSvc.DeactivateForum(ctx.Request().Context(), frm.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) questionQuery(ctx echo.Context) error {
	frm, ident, grant, err := s.forumGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	questions, err := s.opts.ForumSvc.QueryQuestions(ctx.Request().Context(), frm.ID)
	if err != nil {
		return err
	}
	if questions == nil {
		questions = []forum.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (s *server) questionPost(ctx echo.Context) error {
	frm, ident, grant, err := s.forumGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	var data forum.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	q, err := s.opts.ForumSvc.PostQuestion(ctx.Request().Context(), frm.ID, ident.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (s *server) answerQuery(ctx echo.Context) error {
	q, ident, grant, err := s.questionGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanReadSubject(ident, grant); err != nil {
		return err
	}
	answers, err := s.opts.ForumSvc.QueryAnswers(ctx.Request().Context(), q.ID)
	if err != nil {
		return err
	}
	if answers == nil {
		answers = []forum.Answer{}
	}
	return ctx.JSON(http.StatusOK, answers)
}

func (s *server) answerPost(ctx echo.Context) error {
	q, ident, grant, err := s.questionGrant(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	var data forum.NewAnswer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnswer")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	ans, err := s.opts.ForumSvc.PostAnswer(ctx.Request().Context(), q, ident.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ans)
}

// answerAccept is reserved to the subject's teacher (or an admin).
func (s *server) answerAccept(ctx echo.Context) error {
	ans, err := s.opts.ForumSvc.GetAnswer(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	_, ident, grant, err := s.questionGrant(ctx, ans.QuestionID)
	if err != nil {
		return err
	}
	if ident.Role == authz.RoleStudent {
		return authz.Forbidden(authz.MsgForbidden)
	}
	if err := authz.CanWriteSubject(ident, grant); err != nil {
		return err
	}

	ans, err = s.opts.ForumSvc.AcceptAnswer(ctx.Request().Context(), ans.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ans)
}

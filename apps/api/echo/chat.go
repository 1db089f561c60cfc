package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/chat"
)

func (s *server) registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	cg := g.Group("/conversations", jwt)
	cg.GET("", s.conversationQuery)
	cg.POST("", s.conversationCreate)
	cg.GET("/:id/messages", s.messageQuery)
	cg.POST("/:id/messages", s.messageSend)
	cg.POST("/:id/attachments", s.messageSendAttachment)

	mg := g.Group("/messages", jwt)
	mg.PUT("/:id", s.messageEdit)
	mg.DELETE("/:id", s.messageDelete)
}

// conversationGrant resolves the identity and the membership snapshot of the
// conversation in :param.
func (s *server) conversationGrant(ctx echo.Context) (authz.Identity, authz.ConversationGrant, error) {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return authz.Identity{}, authz.ConversationGrant{}, err
	}
	grant, err := s.opts.ChatSvc.Grant(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return authz.Identity{}, authz.ConversationGrant{}, err
	}
	return ident, grant, nil
}

func (s *server) conversationQuery(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	convs, err := s.opts.ChatSvc.QueryConversations(ctx.Request().Context(), ident.ID)
	if err != nil {
		return err
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	return ctx.JSON(http.StatusOK, convs)
}

func (s *server) conversationCreate(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	if err := authz.RequireApproved(ident); err != nil {
		return err
	}

	var data chat.NewConversation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConversation")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	conv, err := s.opts.ChatSvc.CreateConversation(ctx.Request().Context(), ident.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, conv)
}

func (s *server) messageQuery(ctx echo.Context) error {
	ident, grant, err := s.conversationGrant(ctx)
	if err != nil {
		return err
	}
	if err := authz.CanUseConversation(ident, grant); err != nil {
		return err
	}
	msgs, err := s.opts.ChatSvc.QueryMessages(ctx.Request().Context(), grant.ConversationID)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (s *server) messageSend(ctx echo.Context) error {
	ident, grant, err := s.conversationGrant(ctx)
	if err != nil {
		return err
	}
	if err := authz.CanUseConversation(ident, grant); err != nil {
		return err
	}
	if err := authz.RequireApproved(ident); err != nil {
		return err
	}

	var data chat.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	msg, err := s.opts.ChatSvc.Send(ctx.Request().Context(), grant.ConversationID, ident.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (s *server) messageSendAttachment(ctx echo.Context) error {
	ident, grant, err := s.conversationGrant(ctx)
	if err != nil {
		return err
	}
	if err := authz.CanUseConversation(ident, grant); err != nil {
		return err
	}
	if err := authz.RequireApproved(ident); err != nil {
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

	msg, err := s.opts.ChatSvc.SendAttachment(
		ctx.Request().Context(), grant.ConversationID, ident.ID, fileHdr.Filename, file)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

// messageEdit and messageDelete delegate the sender/edit-window policy to the
// chat service.

func (s *server) messageEdit(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data chat.EditMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditMessage")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	msg, err := s.opts.ChatSvc.Edit(ctx.Request().Context(), ident, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (s *server) messageDelete(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	if err := s.opts.ChatSvc.Delete(ctx.Request().Context(), ident, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

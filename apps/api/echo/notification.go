package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aulanet/campus/core/notification"
)

func (s *server) registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ng := g.Group("/notifications", jwt)
	ng.GET("", s.notificationQuery)
	ng.GET("/unread-count", s.notificationUnreadCount)
	ng.PUT("/:id/read", s.notificationMarkRead)
	ng.PUT("/read-all", s.notificationMarkAllRead)
}

func (s *server) notificationQuery(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	notes, err := s.opts.NotificationSvc.Query(ctx.Request().Context(), ident.ID)
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (s *server) notificationUnreadCount(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	count, err := s.opts.NotificationSvc.CountUnread(ctx.Request().Context(), ident.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"unread": count})
}

func (s *server) notificationMarkRead(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	if err := s.opts.NotificationSvc.MarkRead(ctx.Request().Context(), ident.ID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) notificationMarkAllRead(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	if err := s.opts.NotificationSvc.MarkAllRead(ctx.Request().Context(), ident.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/support"
)

func (s *server) registerSupportAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	tg := g.Group("/tickets", jwt)
	tg.POST("", s.ticketCreate)
	tg.GET("/mine", s.ticketQueryMine)
	tg.GET("", s.ticketQueryAll, s.roleMiddleware())
	tg.GET("/:id", s.ticketGet)
	tg.PUT("/:id/status", s.ticketUpdateStatus, s.roleMiddleware())
}

func (s *server) ticketCreate(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data support.NewTicket
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTicket")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	ticket, err := s.opts.SupportSvc.Create(ctx.Request().Context(), ident.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ticket)
}

func (s *server) ticketQueryMine(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	tickets, err := s.opts.SupportSvc.QueryMine(ctx.Request().Context(), ident.ID)
	if err != nil {
		return err
	}
	if tickets == nil {
		tickets = []support.Ticket{}
	}
	return ctx.JSON(http.StatusOK, tickets)
}

func (s *server) ticketQueryAll(ctx echo.Context) error {
	tickets, err := s.opts.SupportSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	if tickets == nil {
		tickets = []support.Ticket{}
	}
	return ctx.JSON(http.StatusOK, tickets)
}

// ticketGet lets the reporter see their own ticket; admins see any.
func (s *server) ticketGet(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	ticket, err := s.opts.SupportSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if ticket.ReporterID != ident.ID && ident.Role != authz.RoleAdmin {
		return support.ErrNotFound // do not leak other users' tickets
	}
	return ctx.JSON(http.StatusOK, ticket)
}

func (s *server) ticketUpdateStatus(ctx echo.Context) error {
	var data support.UpdateTicket
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTicket")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	ticket, err := s.opts.SupportSvc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ticket)
}

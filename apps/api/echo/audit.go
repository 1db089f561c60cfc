package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/audit"
)

func (s *server) registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ag := g.Group("/audit-logs", jwt, s.roleMiddleware())
	ag.GET("", s.auditQuery)
}

func (s *server) auditQuery(ctx echo.Context) error {
	var filter audit.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	logs, err := s.opts.AuditSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying audit logs")
	}
	if logs == nil {
		logs = []audit.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

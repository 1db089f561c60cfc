package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/settings"
)

func (s *server) registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	sg := g.Group("/settings", jwt, s.roleMiddleware())
	sg.GET("", s.settingsGet)
	sg.PUT("", s.settingsUpdate)
}

func (s *server) settingsGet(ctx echo.Context) error {
	sett, err := s.opts.SettingsSvc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading settings")
	}
	return ctx.JSON(http.StatusOK, sett)
}

func (s *server) settingsUpdate(ctx echo.Context) error {
	var data settings.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	sett, err := s.opts.SettingsSvc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, sett)
}

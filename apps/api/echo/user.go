package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/user"
)

func (s *server) registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/register", s.userRegister)
	ug.POST("/login", s.userLogin)
	ug.POST("/password-reset", s.userResetPassword)
	ug.POST("/password-reset-confirm", s.userConfirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", s.userRefreshToken)
	ag.GET("/me", s.userMe)
	ag.PUT("/me", s.userUpdateMe)
	ag.POST("/me/2fa/setup", s.userSetup2FA)
	ag.POST("/me/2fa/confirm", s.userConfirm2FA)
	ag.POST("/me/2fa/disable", s.userDisable2FA)

	// admin endpoints; the director can also manage student approvals
	ag.GET("", s.userQuery, s.roleMiddleware(authz.RoleAdminDirector))
	ag.POST("/staff", s.userCreateStaff, s.roleMiddleware())
	ag.DELETE("", s.userDeactivateMultiple, s.roleMiddleware())
	ag.GET("/roles", s.userQueryRoles, s.roleMiddleware())
	ag.PUT("/:id/approve", s.userApprove, s.roleMiddleware(authz.RoleAdminDirector))
	ag.PUT("/:id/reject", s.userReject, s.roleMiddleware(authz.RoleAdminDirector))
}

// Handlers

func (s *server) userRegister(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(s.opts.Validate, s.opts.UserSvc); err != nil {
		return err
	}

	usr, err := s.opts.UserSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *server) userLogin(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	claims, err := s.authenticate(ctx, data)
	if err != nil {
		return err
	}
	token, err := GenerateToken(s.opts.Conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *server) userResetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	if err := s.opts.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "Si el email está asociado a una cuenta activa, " +
			"en breve vas a recibir instrucciones para restablecer tu contraseña.",
	})
}

func (s *server) userConfirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	if err := s.opts.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "La contraseña fue restablecida."})
}

func (s *server) userRefreshToken(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *server) userMe(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) userUpdateMe(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	usr, err = s.opts.UserSvc.UpdateProfile(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) userSetup2FA(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}
	otpURL, err := s.opts.UserSvc.SetupTwoFactor(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "setting up 2FA")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"otp_url": otpURL})
}

func (s *server) userConfirm2FA(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}
	var data TwoFactorRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TwoFactorRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	if err := s.opts.UserSvc.ConfirmTwoFactor(ctx.Request().Context(), usr, data.Code); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Verificación en dos pasos habilitada."})
}

func (s *server) userDisable2FA(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}
	var data TwoFactorRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TwoFactorRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	if err := s.opts.UserSvc.DisableTwoFactor(ctx.Request().Context(), usr, data.Code); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Verificación en dos pasos deshabilitada."})
}

func (s *server) userQuery(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}

	users, err := s.opts.UserSvc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *server) userCreateStaff(ctx echo.Context) error {
	var data user.NewStaffUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaffUser")
	}
	if err := data.Validate(s.opts.Validate, s.opts.UserSvc); err != nil {
		return err
	}

	usr, err := s.opts.UserSvc.CreateStaff(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating staff user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *server) userApprove(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	usr, err := s.opts.UserSvc.Approve(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) userReject(ctx echo.Context) error {
	ident, err := s.getContextIdentity(ctx)
	if err != nil {
		return err
	}
	usr, err := s.opts.UserSvc.Reject(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) userDeactivateMultiple(ctx echo.Context) error {
	var query DeactivateMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DeactivateMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctxUser cannot deactivate themselves
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return err
	}
	for _, id := range query.IDs {
		if id == usr.ID {
			return authz.Forbidden("No podés desactivar tu propia cuenta")
		}
	}

	if err := s.opts.UserSvc.Deactivate(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deactivating users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) userQueryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, authz.Roles())
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Code     string `json:"code"` // TOTP, when 2FA is enabled
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	TwoFactorRequest struct {
		Code string `json:"code" validate:"required,len=6,numeric"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DeactivateMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func (tr *TwoFactorRequest) Validate(validate *validator.Validate) error {
	tr.Code = core.CleanString(tr.Code)
	return validate.Struct(tr)
}

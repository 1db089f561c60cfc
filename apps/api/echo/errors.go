package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/assignment"
	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/chat"
	"github.com/aulanet/campus/core/forum"
	"github.com/aulanet/campus/core/notification"
	"github.com/aulanet/campus/core/school"
	"github.com/aulanet/campus/core/support"
	"github.com/aulanet/campus/core/user"
)

var (
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "credenciales inválidas")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "cuenta desactivada")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "la sesión expiró, iniciá sesión de nuevo")
	errHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "no encontrado")
)

// notFoundSentinels map the domain "missing row" errors to 404.
var notFoundSentinels = []error{
	user.ErrNotFound,
	school.ErrSubjectNotFound,
	school.ErrUnitNotFound,
	school.ErrContentNotFound,
	school.ErrDocumentNotFound,
	assignment.ErrNotFound,
	assignment.ErrSubmissionNotFound,
	forum.ErrForumNotFound,
	forum.ErrQuestionNotFound,
	forum.ErrAnswerNotFound,
	chat.ErrConversationNotFound,
	chat.ErrMessageNotFound,
	notification.ErrNotFound,
	support.ErrNotFound,
}

func isNotFound(err error) bool {
	for _, sentinel := range notFoundSentinels {
		if err == sentinel {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how
// to render our errors. Denials surface their exact policy message; permission
// failures are also recorded on the audit trail. signalShutdown is called
// whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(
	logger core.Logger,
	audit core.AuditSink,
	translator ut.Translator,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = authz.ErrNotAuthenticated.Error()
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
			if code == http.StatusUnauthorized {
				message = authz.ErrNotAuthenticated.Error()
			}
		case *authz.PermissionError:
			code = http.StatusForbidden
			message = origErr.Reason

			entry := core.AuditEntry{
				Action:    core.AuditUnauthorizedAccess,
				Details:   ctx.Request().Method + " " + ctx.Request().URL.Path,
				IP:        ctx.RealIP(),
				UserAgent: ctx.Request().UserAgent(),
			}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				entry.UserID = claims.Subject
			}
			audit.Record(ctx.Request().Context(), entry)
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = echo.Map{"error": fldErrs}
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = echo.Map{"error": fldErrs}
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ConflictError:
			code = http.StatusConflict
			message = origErr.Message
		default:
			switch {
			case cause == authz.ErrNotAuthenticated:
				code = http.StatusUnauthorized
				message = authz.ErrNotAuthenticated.Error()
			case isNotFound(cause):
				code = http.StatusNotFound
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Name = claims.Name
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

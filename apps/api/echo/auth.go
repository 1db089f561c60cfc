package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/user"
)

const (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
// Role/approval here are informative for the frontend; the server always
// re-resolves the user on each request so a stale token cannot bypass a
// revocation or keep a rejected student writing.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	Year         int    `json:"year,omitempty"`
	Division     string `json:"division,omitempty"`
	Approval     string `json:"approval_status,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "Campus",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         string(usr.Role),
		Year:         usr.Year,
		Division:     usr.Division,
		Approval:     string(usr.ApprovalStatus),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (s *server) authenticate(ctx echo.Context, data LoginRequest) (*Claims, error) {
	reqCtx := ctx.Request().Context()
	entry := core.AuditEntry{
		Action:    core.AuditLoginFailed,
		Details:   "email=" + data.Email,
		IP:        ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
	}

	usr, err := s.opts.UserSvc.GetByEmail(reqCtx, data.Email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			s.opts.Audit.Record(reqCtx, entry)
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by email")
	}
	entry.UserID = usr.ID

	if err = usr.CheckPassword(data.Password); err != nil {
		s.opts.Audit.Record(reqCtx, entry)
		return nil, errAuthenticationFailed
	}
	if !usr.IsActive {
		s.opts.Audit.Record(reqCtx, entry)
		return nil, errAccountDeactivated
	}
	if usr.TOTPEnabled && !user.VerifyTOTP(usr, data.Code) {
		entry.Details += " (2fa)"
		s.opts.Audit.Record(reqCtx, entry)
		return nil, errAuthenticationFailed
	}

	usr, err = s.opts.UserSvc.SetLastLogin(reqCtx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}

	entry.Action = core.AuditLoginSuccess
	entry.Details = ""
	s.opts.Audit.Record(reqCtx, entry)
	return GetUserClaims(s.opts.Conf, usr), nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, authz.ErrNotAuthenticated
}

// getContextUser resolves (and caches) the fresh user behind the token, so
// role, activation and approval decisions never run on stale claims.
func (s *server) getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := s.opts.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, authz.ErrNotAuthenticated
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func (s *server) getContextIdentity(ctx echo.Context) (authz.Identity, error) {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return authz.Identity{}, err
	}
	return usr.Identity(), nil
}

func (s *server) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.opts.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(s.opts.Conf, GetUserClaims(s.opts.Conf, usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

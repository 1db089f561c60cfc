package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/assignment"
	"github.com/aulanet/campus/core/audit"
	"github.com/aulanet/campus/core/chat"
	"github.com/aulanet/campus/core/forum"
	"github.com/aulanet/campus/core/notification"
	"github.com/aulanet/campus/core/school"
	"github.com/aulanet/campus/core/settings"
	"github.com/aulanet/campus/core/support"
	"github.com/aulanet/campus/core/user"
)

type (
	Options struct {
		Address        string
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		UserSvc         user.ServiceInterface
		SchoolSvc       *school.Service
		AssignmentSvc   *assignment.Service
		ForumSvc        *forum.Service
		ChatSvc         *chat.Service
		NotificationSvc *notification.Service
		AuditSvc        *audit.Service
		SettingsSvc     *settings.Service
		SupportSvc      *support.Service

		Audit core.AuditSink

		Validate   *validator.Validate
		Translator ut.Translator

		// SignalShutdown triggers a graceful stop when an unrecoverable error
		// is caught.
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Audit == nil {
		opts.Audit = core.NopAuditSink{}
	}
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Audit, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1", s.maintenanceMiddleware)
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	s.registerUserAPI(v1, jwt)
	s.registerSubjectAPI(v1, jwt)
	s.registerAssignmentAPI(v1, jwt)
	s.registerForumAPI(v1, jwt)
	s.registerChatAPI(v1, jwt)
	s.registerNotificationAPI(v1, jwt)
	s.registerAuditAPI(v1, jwt)
	s.registerSettingsAPI(v1, jwt)
	s.registerSupportAPI(v1, jwt)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Bienvenido al Campus Virtual!")
}

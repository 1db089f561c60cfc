package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/aulanet/campus/apps/api/echo"
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
	appfs "github.com/aulanet/campus/fs"
	emailsvc "github.com/aulanet/campus/services/email"
	logsvc "github.com/aulanet/campus/services/logger"
	filestore "github.com/aulanet/campus/services/storage"
	"github.com/aulanet/campus/storage/database"
	pgrepos "github.com/aulanet/campus/storage/database/postgres"
)

func main() {
	std := log.New(os.Stdout, "CAMPUS : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if err := run(std); err != nil {
		std.Fatalf("main: %+v", err)
	}
}

func run(std *log.Logger) error {
	conf := core.NewConfig()

	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// Database

	if err := database.CreateIfNotExist(conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	if err = database.Migrate(db); err != nil {
		return errors.Wrap(err, "migrating database")
	}

	// Validation & templates

	esLocale := es.New()
	uni := ut.New(esLocale, esLocale)
	translator, _ := uni.GetTranslator("es")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	if err = core.ParseEmailTemplates(appfs.FS, conf); err != nil {
		return errors.Wrap(err, "parsing email templates")
	}

	// Services

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	files := filestore.NewLocalStorage(conf)

	auditSvc := audit.NewService(pgrepos.NewAuditRepository(db), logger)
	notifSvc := notification.NewService(pgrepos.NewNotificationRepository(db), logger)

	userRepo := pgrepos.NewUserRepository(db)
	usrSvc := user.NewService(userRepo, mailSvc, conf, logger, auditSvc, notifSvc)
	settingsSvc := settings.NewService(pgrepos.NewSettingsRepository(db))
	schoolSvc := school.NewService(pgrepos.NewSchoolRepository(db), settingsSvc, userRepo, files, notifSvc)
	assignmentSvc := assignment.NewService(pgrepos.NewAssignmentRepository(db), files, notifSvc)
	forumSvc := forum.NewService(pgrepos.NewForumRepository(db), notifSvc)
	chatSvc := chat.NewService(pgrepos.NewChatRepository(db), files, notifSvc)
	supportSvc := support.NewService(pgrepos.NewSupportRepository(db), notifSvc)

	// Debug server (expvar + pprof); never exposed publicly

	expvar.NewString("build").Set(conf.Build)
	go func() {
		std.Printf("main: debug server listening on %s", conf.Server.DebugHost)
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			std.Printf("main: debug server closed: %v", err)
		}
	}()

	// API server

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:         conf.Server.Address(),
		Conf:            conf,
		Logger:          logger,
		UserSvc:         usrSvc,
		SchoolSvc:       schoolSvc,
		AssignmentSvc:   assignmentSvc,
		ForumSvc:        forumSvc,
		ChatSvc:         chatSvc,
		NotificationSvc: notifSvc,
		AuditSvc:        auditSvc,
		SettingsSvc:     settingsSvc,
		SupportSvc:      supportSvc,
		Audit:           auditSvc,
		Validate:        validate,
		Translator:      translator,
		SignalShutdown:  func() { shutdown <- syscall.SIGTERM },
	})

	serverErrors := make(chan error, 1)
	go func() {
		std.Printf("main: API listening on %s", conf.Server.Address())
		serverErrors <- app.Start()
	}()

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")
	case sig := <-shutdown:
		std.Printf("main: %v: shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			std.Printf("main: graceful shutdown failed: %v", err)
		}

		// flush the async sinks before losing the DB connection
		notifSvc.Flush()
		auditSvc.Close()
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/meeting"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	paymentsvc "github.com/trezcool/darasa/services/payment"
	mongodb "github.com/trezcool/darasa/storage/database/mongo"
	redisstore "github.com/trezcool/darasa/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig(core.Getwd())

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := mongodb.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Client().Disconnect(context.Background()); err != nil {
			logger.Error(fmt.Sprintf("disconnecting database: %v", err), err)
		}
	}()
	if err = mongodb.EnsureIndexes(context.Background(), db); err != nil {
		logger.Fatal(fmt.Sprintf("ensuring indexes: %v", err), err)
	}

	// set up redis
	rdb, err := redisstore.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	defer func() {
		if err = rdb.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing redis: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.SendgridApiKey != "" && !conf.Debug {
		mailSvc = emailsvc.NewSendgridService(logger)
	} else {
		mailSvc = emailsvc.NewConsoleService()
	}

	usrRepo := mongodb.NewUserRepository(db)
	cmpRepo := mongodb.NewCampusRepository(db)
	pmtRepo := mongodb.NewPaymentRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc)
	cmpSvc := campus.NewService(cmpRepo)
	clsSvc := class.NewService(mongodb.NewClassRepository(db))
	attSvc := attendance.NewService(mongodb.NewAttendanceRepository(db), redisstore.NewAttendanceLiveStore(rdb))
	quizSvc := quiz.NewService(mongodb.NewQuizRepository(db), redisstore.NewQuizLiveStore(rdb))
	mtgSvc := meeting.NewService(mongodb.NewMeetingRepository(db))
	notifSvc := notification.NewService(mongodb.NewNotificationRepository(db), usrRepo, mailSvc)

	monitor := payment.NewSecurityMonitor(auditRepo, redisstore.NewFailureCounter(rdb), cmpRepo, logger, mailSvc)
	pmtSvc := payment.NewSettlementService(
		pmtRepo, cmpRepo, usrRepo, paymentsvc.Providers(), redisstore.NewDedupStore(rdb), monitor, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(conf.Address(), shutdown, &echoapi.Deps{
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		CampusSvc:     cmpSvc,
		ClassSvc:      clsSvc,
		AttendanceSvc: attSvc,
		QuizSvc:       quizSvc,
		MeetingSvc:    mtgSvc,
		NotifSvc:      notifSvc,
		PaymentSvc:    pmtSvc,
		Monitor:       monitor,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Address()))
		serverErrors <- app.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = app.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/meeting"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
)

type (
	// Deps holds everything the API server needs to run.
	Deps struct {
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc       user.ServiceInterface
		CampusSvc     *campus.Service
		ClassSvc      *class.Service
		AttendanceSvc *attendance.Service
		QuizSvc       *quiz.Service
		MeetingSvc    *meeting.Service
		NotifSvc      *notification.Service
		PaymentSvc    *payment.SettlementService
		Monitor       *payment.SecurityMonitor
	}

	Server interface {
		http.Handler
		Start() error
		Shutdown(context.Context) error
	}

	server struct {
		addr     string
		shutdown chan os.Signal
		deps     *Deps
		app      *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(addr string, shutdown chan os.Signal, deps *Deps) Server {
	s := &server{
		addr:     addr,
		shutdown: shutdown,
		deps:     deps,
		app:      echo.New(),
	}
	s.setup()
	return s
}

// signalShutdown gracefully shuts the Server down.
func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !core.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = core.Conf.Debug && !core.Conf.TestMode
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig())

	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate, s.deps.Translator)
	registerCampusAPI(v1, jwt, s.deps.CampusSvc, s.deps.Validate)
	registerClassAPI(v1, jwt, s.deps.ClassSvc, s.deps.Validate)
	registerAttendanceAPI(v1, jwt, s.deps.AttendanceSvc, s.deps.Validate)
	registerQuizAPI(v1, jwt, s.deps.QuizSvc, s.deps.CampusSvc, s.deps.Validate)
	registerMeetingAPI(v1, jwt, s.deps.MeetingSvc, s.deps.CampusSvc, s.deps.Validate)
	registerNotificationAPI(v1, jwt, s.deps.NotifSvc, s.deps.UserSvc, s.deps.CampusSvc, s.deps.Validate)
	registerPaymentAPI(v1, jwt, s.deps.PaymentSvc, s.deps.Monitor, s.deps.Validate)
	registerSuperAPI(v1, jwt, s.deps)
}

func (s *server) Start() error {
	return s.app.Start(s.addr)
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}

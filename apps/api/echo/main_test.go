package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

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
	paymentsvc "github.com/trezcool/darasa/services/payment"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

var (
	app     Server
	usrRepo user.Repository
	cmpRepo campus.Repository
	pmtRepo payment.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestMain(m *testing.M) {
	core.NewTestConfig()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	cmpRepo = inmemdb.NewCampusRepository(db)
	pmtRepo = inmemdb.NewPaymentRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	monitor := payment.NewSecurityMonitor(
		inmemdb.NewAuditRepository(db), inmemdb.NewFailureCounter(), cmpRepo, nopLogger{}, mailSvc)
	pmtSvc := payment.NewSettlementService(
		pmtRepo, cmpRepo, usrRepo, paymentsvc.Providers(), inmemdb.NewDedupStore(), monitor, mailSvc)

	// set up server
	app = NewServer("", nil, &Deps{
		Logger:        nopLogger{},
		Validate:      validate,
		Translator:    translator,
		UserSvc:       user.NewService(usrRepo, mailSvc),
		CampusSvc:     campus.NewService(cmpRepo),
		ClassSvc:      class.NewService(inmemdb.NewClassRepository(db)),
		AttendanceSvc: attendance.NewService(inmemdb.NewAttendanceRepository(db), inmemdb.NewAttendanceLiveStore()),
		QuizSvc:       quiz.NewService(inmemdb.NewQuizRepository(db), inmemdb.NewQuizLiveStore()),
		MeetingSvc:    meeting.NewService(inmemdb.NewMeetingRepository(db)),
		NotifSvc:      notification.NewService(inmemdb.NewNotificationRepository(db), usrRepo, mailSvc),
		PaymentSvc:    pmtSvc,
		Monitor:       monitor,
	})

	os.Exit(m.Run())
}

// Helpers

type httpErr struct {
	Error string `json:"error"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func createTestCampus(t *testing.T, name, slug string, features map[string]bool) campus.Campus {
	t.Helper()
	if features == nil {
		features = campus.DefaultFeatures()
	}
	now := time.Now().UTC()
	cmp, err := cmpRepo.CreateCampus(context.Background(), campus.Campus{
		Name:         name,
		Slug:         slug,
		ContactEmail: "contact@" + slug + ".cd",
		Features:     features,
		Status:       campus.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCampus(): %v", err)
	}
	return cmp
}

func newObjectID() string { return primitive.NewObjectID().Hex() }

func campusSetFeature(campusID, feature string, enabled bool) (campus.Campus, error) {
	return campus.NewService(cmpRepo).SetFeature(context.Background(), campusID, feature, enabled)
}

func createTestUser(t *testing.T, campusID, name, uname, email, pwd string, roles []string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		CampusID:  campusID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

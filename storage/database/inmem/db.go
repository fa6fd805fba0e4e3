package inmemdb

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/meeting"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
)

// DB is an in-memory database used in tests and local development.
type DB struct {
	mutex sync.RWMutex

	users         map[string]*user.User
	campuses      map[string]*campus.Campus
	classes       map[string]*class.Class
	assignments   map[string]*class.Assignment
	sessions      map[string]*attendance.Session
	records       map[string]*attendance.Record
	quizzes       map[string]*quiz.Quiz
	submissions   map[string]*quiz.Submission
	meetings      map[string]*meeting.Meeting
	notifications map[string]*notification.Notification
	payments      map[string]*payment.Payment
	auditEvents   map[string]*payment.AuditEvent
}

func Open() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		campuses:      make(map[string]*campus.Campus),
		classes:       make(map[string]*class.Class),
		assignments:   make(map[string]*class.Assignment),
		sessions:      make(map[string]*attendance.Session),
		records:       make(map[string]*attendance.Record),
		quizzes:       make(map[string]*quiz.Quiz),
		submissions:   make(map[string]*quiz.Submission),
		meetings:      make(map[string]*meeting.Meeting),
		notifications: make(map[string]*notification.Notification),
		payments:      make(map[string]*payment.Payment),
		auditEvents:   make(map[string]*payment.AuditEvent),
	}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

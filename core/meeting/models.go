package meeting

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Meeting statuses
const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusHeld      = "held"
)

var Statuses = []string{StatusScheduled, StatusCancelled, StatusHeld}

type Meeting struct {
	ID          string        `json:"id"`
	CampusID    string        `json:"campus_id"`
	Title       string        `json:"title"`
	Agenda      string        `json:"agenda"`
	OrganizerID string        `json:"organizer_id"`
	AttendeeIDs []string      `json:"attendee_ids"`
	ScheduledAt time.Time     `json:"scheduled_at"` // UTC
	Duration    time.Duration `json:"duration"`
	JoinURL     string        `json:"join_url"`
	Status      string        `json:"status"`
	IsDeleted   bool          `json:"-"`
	CreatedAt   time.Time     `json:"created_at"` // UTC
	UpdatedAt   time.Time     `json:"updated_at"` // UTC
}

// NewMeeting contains information needed to create a new Meeting.
type NewMeeting struct {
	Title       string        `json:"title" validate:"required"`
	Agenda      string        `json:"agenda"`
	AttendeeIDs []string      `json:"attendee_ids" validate:"omitempty,dive,objectid"`
	ScheduledAt time.Time     `json:"scheduled_at" validate:"required"`
	Duration    time.Duration `json:"duration" validate:"required,gt=0"`
	JoinURL     string        `json:"join_url" validate:"omitempty,url"`
}

func (nm *NewMeeting) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	return validate.Struct(nm)
}

// UpdateMeeting defines what information may be provided to modify an existing Meeting.
type UpdateMeeting struct {
	Title       string         `json:"title"`
	Agenda      *string        `json:"agenda"`
	AttendeeIDs []string       `json:"attendee_ids" validate:"omitempty,dive,objectid"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	Duration    *time.Duration `json:"duration" validate:"omitempty,gt=0"`
	JoinURL     string         `json:"join_url" validate:"omitempty,url"`
	Status      string         `json:"status" validate:"omitempty,oneof=scheduled cancelled held"`
}

func (um *UpdateMeeting) Validate(validate *validator.Validate) error {
	um.Title = core.CleanString(um.Title)
	return validate.Struct(um)
}

type QueryFilter struct {
	CampusID   string    `query:"-"`
	AttendeeID string    `query:"attendee_id"`
	Status     string    `query:"status"`
	From       time.Time `query:"from"`
	To         time.Time `query:"to"`
}

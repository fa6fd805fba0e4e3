package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Record statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// Session is a single attendance-taking sitting for a class. While it is
// open, marks live in the LiveStore; they are flushed to the Repository on
// close.
type Session struct {
	ID        string    `json:"id"`
	CampusID  string    `json:"campus_id"`
	ClassID   string    `json:"class_id"`
	Date      time.Time `json:"date"`
	IsOpen    bool      `json:"is_open"`
	OpenedBy  string    `json:"opened_by"`
	OpenedAt  time.Time `json:"opened_at"` // UTC
	ClosedAt  time.Time `json:"closed_at,omitempty"`
	IsDeleted bool      `json:"-"`
}

type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ClassID   string    `json:"class_id"`
	StudentID string    `json:"student_id"`
	Date      time.Time `json:"date"` // the session's date, not when the mark landed
	Status    string    `json:"status"`
	MarkedBy  string    `json:"marked_by"`
	MarkedAt  time.Time `json:"marked_at"` // UTC
}

// Mark is a single roll-call entry in the live store.
type Mark struct {
	Status   string    `json:"status"`
	MarkedBy string    `json:"marked_by"`
	MarkedAt time.Time `json:"marked_at"`
}

// OpenSessionRequest contains information needed to open a Session.
type OpenSessionRequest struct {
	ClassID string    `json:"class_id" validate:"required,objectid"`
	Date    time.Time `json:"date"`
}

func (r *OpenSessionRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type MarkRequest struct {
	StudentID string `json:"student_id" validate:"required,objectid"`
	Status    string `json:"status" validate:"required,oneof=present absent late excused"`
}

func (r *MarkRequest) Validate(validate *validator.Validate) error {
	r.Status = core.CleanString(r.Status, true /* lower */)
	return validate.Struct(r)
}

type BulkMarkRequest struct {
	Marks []MarkRequest `json:"marks" validate:"required,min=1,dive"`
}

func (r *BulkMarkRequest) Validate(validate *validator.Validate) error {
	for i := range r.Marks {
		r.Marks[i].Status = core.CleanString(r.Marks[i].Status, true /* lower */)
	}
	return validate.Struct(r)
}

type QueryFilter struct {
	CampusID  string    `query:"-"`
	ClassID   string    `query:"class_id"`
	StudentID string    `query:"student_id"`
	DateFrom  time.Time `query:"date_from"`
	DateTo    time.Time `query:"date_to"`
}

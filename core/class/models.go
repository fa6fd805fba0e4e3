package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Class struct {
	ID         string    `json:"id"`
	CampusID   string    `json:"campus_id"`
	Name       string    `json:"name"`
	Subject    string    `json:"subject"`
	TeacherID  string    `json:"teacher_id"`
	StudentIDs []string  `json:"student_ids"`
	IsArchived bool      `json:"is_archived"`
	IsDeleted  bool      `json:"-"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (c *Class) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

type Assignment struct {
	ID           string    `json:"id"`
	ClassID      string    `json:"class_id"`
	Title        string    `json:"title"`
	Instructions string    `json:"instructions"`
	DueDate      time.Time `json:"due_date"`
	MaxScore     int       `json:"max_score"`
	IsPublished  bool      `json:"is_published"`
	IsDeleted    bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name      string `json:"name" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required,objectid"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	TeacherID string `json:"teacher_id" validate:"omitempty,objectid"`
}

func (uc *UpdateClass) Validate(orig Class, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if subject := core.CleanString(uc.Subject); subject != "" {
		uc.Subject = subject
	} else {
		uc.Subject = orig.Subject
	}
	if uc.TeacherID == "" {
		uc.TeacherID = orig.TeacherID
	}
	return validate.Struct(uc)
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title        string    `json:"title" validate:"required"`
	Instructions string    `json:"instructions"`
	DueDate      time.Time `json:"due_date" validate:"required"`
	MaxScore     int       `json:"max_score" validate:"required,gt=0"`
	IsPublished  bool      `json:"is_published"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
type UpdateAssignment struct {
	Title        string     `json:"title"`
	Instructions *string    `json:"instructions"`
	DueDate      *time.Time `json:"due_date"`
	MaxScore     *int       `json:"max_score" validate:"omitempty,gt=0"`
	IsPublished  *bool      `json:"is_published"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	return validate.Struct(ua)
}

type QueryFilter struct {
	CampusID  string `query:"-"`
	Search    string `query:"search"`
	TeacherID string `query:"teacher_id"`
	StudentID string `query:"student_id"`
	Archived  *bool  `query:"archived"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

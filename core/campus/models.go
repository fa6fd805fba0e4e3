package campus

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Subscription statuses
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Feature flags gating campus functionality
const (
	FeatureQuizzes       = "quizzes"
	FeatureMeetings      = "meetings"
	FeaturePayments      = "payments"
	FeatureNotifications = "notifications"
)

var Statuses = []string{StatusTrial, StatusActive, StatusSuspended}

// DefaultFeatures enables everything but payments; payments require gateway
// credentials to be configured first.
func DefaultFeatures() map[string]bool {
	return map[string]bool{
		FeatureQuizzes:       true,
		FeatureMeetings:      true,
		FeaturePayments:      false,
		FeatureNotifications: true,
	}
}

type Campus struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Address      string          `json:"address"`
	ContactEmail string          `json:"contact_email"`
	Features     map[string]bool `json:"features"`
	Status       string          `json:"status"`
	IsDeleted    bool            `json:"-"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at"` // UTC
}

func (c *Campus) FeatureEnabled(feature string) bool {
	return c.Features[feature]
}

func (c *Campus) IsActive() bool {
	return !c.IsDeleted && c.Status != StatusSuspended
}

// NewCampus contains information needed to create a new Campus.
type NewCampus struct {
	Name         string `json:"name" validate:"required"`
	Slug         string `json:"slug" validate:"omitempty,min=3,alphanum_"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
}

func (nc *NewCampus) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.ContactEmail = core.CleanString(nc.ContactEmail, true /* lower */)
	return validate.Struct(nc)
}

// UpdateCampus defines what information may be provided to modify an existing Campus.
type UpdateCampus struct {
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	ContactEmail string          `json:"contact_email" validate:"omitempty,email"`
	Status       string          `json:"status" validate:"omitempty,oneof=trial active suspended"`
	Features     map[string]bool `json:"features"`
}

func (uc *UpdateCampus) Validate(orig Campus, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if email := core.CleanString(uc.ContactEmail, true /* lower */); email != "" {
		uc.ContactEmail = email
	} else {
		uc.ContactEmail = orig.ContactEmail
	}
	if uc.Status == "" {
		uc.Status = orig.Status
	}
	return validate.Struct(uc)
}

// GetFilter selects a single Campus; fields are checked in declaration order.
type GetFilter struct {
	ID   string
	Slug string
}

type QueryFilter struct {
	Search         string `query:"search"`
	Status         string `query:"status"`
	IncludeDeleted bool   `query:"include_deleted"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

package notification

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Audience kinds
const (
	AudienceAll   = "all"
	AudienceRole  = "role"
	AudienceUsers = "users"
)

// Notification kinds
const (
	KindInApp = "inapp"
	KindEmail = "email" // also fanned out to recipients' inboxes
)

type Audience struct {
	Kind    string   `json:"kind" validate:"required,oneof=all role users"`
	Role    string   `json:"role,omitempty" validate:"required_if=Kind role"`
	UserIDs []string `json:"user_ids,omitempty" validate:"omitempty,dive,objectid"`
}

// Matches reports whether a user with the given ID and roles is part of the
// audience.
func (a Audience) Matches(userID string, roles []string) bool {
	switch a.Kind {
	case AudienceAll:
		return true
	case AudienceRole:
		for _, role := range roles {
			if strings.HasPrefix(role, a.Role) {
				return true
			}
		}
	case AudienceUsers:
		for _, id := range a.UserIDs {
			if id == userID {
				return true
			}
		}
	}
	return false
}

type Notification struct {
	ID        string    `json:"id"`
	CampusID  string    `json:"campus_id"`
	Audience  Audience  `json:"audience"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind"`
	CreatedBy string    `json:"created_by"`
	ReadBy    []string  `json:"-"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (n *Notification) ReadByUser(userID string) bool {
	for _, id := range n.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// NewNotification contains information needed to create a new Notification.
type NewNotification struct {
	Audience Audience `json:"audience" validate:"required"`
	Title    string   `json:"title" validate:"required"`
	Body     string   `json:"body" validate:"required"`
	Kind     string   `json:"kind" validate:"required,oneof=inapp email"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Body = core.CleanString(nn.Body)
	return validate.Struct(nn)
}

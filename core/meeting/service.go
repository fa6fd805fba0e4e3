package meeting

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound  = errors.New("meeting not found")
	ErrCancelled = errors.New("meeting is cancelled")
)

type (
	Repository interface {
		CreateMeeting(ctx context.Context, mtg Meeting) (Meeting, error)
		QueryMeetings(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Meeting, error)
		GetMeeting(ctx context.Context, campusID, id string) (Meeting, error)
		UpdateMeeting(ctx context.Context, mtg Meeting) (Meeting, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, campusID, organizerID string, nm NewMeeting) (Meeting, error) {
	now := time.Now().UTC()
	mtg := Meeting{
		CampusID:    campusID,
		Title:       nm.Title,
		Agenda:      nm.Agenda,
		OrganizerID: organizerID,
		AttendeeIDs: nm.AttendeeIDs,
		ScheduledAt: nm.ScheduledAt.UTC(),
		Duration:    nm.Duration,
		JoinURL:     nm.JoinURL,
		Status:      StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mtg.AttendeeIDs == nil {
		mtg.AttendeeIDs = []string{}
	}
	return svc.repo.CreateMeeting(ctx, mtg)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Meeting, error) {
	return svc.repo.QueryMeetings(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, campusID, id string) (Meeting, error) {
	return svc.repo.GetMeeting(ctx, campusID, id)
}

func (svc *Service) Update(ctx context.Context, campusID, id string, um UpdateMeeting) (Meeting, error) {
	mtg, err := svc.repo.GetMeeting(ctx, campusID, id)
	if err != nil {
		return Meeting{}, err
	}
	if mtg.Status == StatusCancelled {
		return Meeting{}, core.NewValidationError(ErrCancelled)
	}

	if um.Title != "" {
		mtg.Title = um.Title
	}
	if um.Agenda != nil {
		mtg.Agenda = *um.Agenda
	}
	if um.AttendeeIDs != nil {
		mtg.AttendeeIDs = um.AttendeeIDs
	}
	if um.ScheduledAt != nil {
		mtg.ScheduledAt = um.ScheduledAt.UTC()
	}
	if um.Duration != nil {
		mtg.Duration = *um.Duration
	}
	if um.JoinURL != "" {
		mtg.JoinURL = um.JoinURL
	}
	if um.Status != "" {
		mtg.Status = um.Status
	}
	mtg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMeeting(ctx, mtg)
}

func (svc *Service) Cancel(ctx context.Context, campusID, id string) (Meeting, error) {
	mtg, err := svc.repo.GetMeeting(ctx, campusID, id)
	if err != nil {
		return Meeting{}, err
	}
	mtg.Status = StatusCancelled
	mtg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMeeting(ctx, mtg)
}

func (svc *Service) Delete(ctx context.Context, campusID, id string) error {
	mtg, err := svc.repo.GetMeeting(ctx, campusID, id)
	if err != nil {
		return err
	}
	mtg.IsDeleted = true
	mtg.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateMeeting(ctx, mtg)
	return err
}

package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrSessionNotFound = errors.New("attendance session not found")
	ErrSessionClosed   = errors.New("attendance session is closed")
	ErrSessionOpen     = errors.New("class already has an open attendance session")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, ses Session) (Session, error)
		GetSession(ctx context.Context, campusID, id string) (Session, error)
		GetOpenSession(ctx context.Context, campusID, classID string) (Session, error)
		UpdateSession(ctx context.Context, ses Session) (Session, error)
		QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error)

		CreateRecords(ctx context.Context, recs []Record) error
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error)
	}

	// LiveStore holds roll-call marks of open sessions; backed by redis.
	LiveStore interface {
		OpenSession(ctx context.Context, sessionID string, ttl time.Duration) error
		SetMark(ctx context.Context, sessionID, studentID string, mark Mark) error
		Marks(ctx context.Context, sessionID string) (map[string]Mark, error)
		CloseSession(ctx context.Context, sessionID string) error
	}

	Service struct {
		repo Repository
		live LiveStore
	}
)

// open sessions expire from the live store if nobody closes them
const liveSessionTTL = 24 * time.Hour

func NewService(repo Repository, live LiveStore) *Service {
	return &Service{repo: repo, live: live}
}

// OpenSession opens a roll-call session for a class; only one session per
// class may be open at a time.
func (svc *Service) OpenSession(ctx context.Context, campusID, openedBy string, req OpenSessionRequest) (Session, error) {
	if _, err := svc.repo.GetOpenSession(ctx, campusID, req.ClassID); err == nil {
		return Session{}, core.NewValidationError(ErrSessionOpen)
	} else if errors.Cause(err) != ErrSessionNotFound {
		return Session{}, err
	}

	now := time.Now().UTC()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	ses := Session{
		CampusID: campusID,
		ClassID:  req.ClassID,
		Date:     date.UTC().Truncate(24 * time.Hour),
		IsOpen:   true,
		OpenedBy: openedBy,
		OpenedAt: now,
	}
	ses, err := svc.repo.CreateSession(ctx, ses)
	if err != nil {
		return Session{}, err
	}
	if err = svc.live.OpenSession(ctx, ses.ID, liveSessionTTL); err != nil {
		return Session{}, errors.Wrap(err, "opening live session")
	}
	return ses, nil
}

func (svc *Service) GetSession(ctx context.Context, campusID, id string) (Session, error) {
	return svc.repo.GetSession(ctx, campusID, id)
}

func (svc *Service) QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, filter, ordering)
}

// Mark records a student's status in the live session; re-marking overwrites
// the previous status.
func (svc *Service) Mark(ctx context.Context, campusID, markedBy, sessionID string, req MarkRequest) error {
	ses, err := svc.repo.GetSession(ctx, campusID, sessionID)
	if err != nil {
		return err
	}
	if !ses.IsOpen {
		return core.NewValidationError(ErrSessionClosed)
	}
	mark := Mark{Status: req.Status, MarkedBy: markedBy, MarkedAt: time.Now().UTC()}
	return svc.live.SetMark(ctx, ses.ID, req.StudentID, mark)
}

func (svc *Service) BulkMark(ctx context.Context, campusID, markedBy, sessionID string, req BulkMarkRequest) error {
	for _, m := range req.Marks {
		if err := svc.Mark(ctx, campusID, markedBy, sessionID, m); err != nil {
			return err
		}
	}
	return nil
}

// CloseSession flushes the live marks to the document store and closes the
// session.
func (svc *Service) CloseSession(ctx context.Context, campusID, sessionID string) (Session, error) {
	ses, err := svc.repo.GetSession(ctx, campusID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if !ses.IsOpen {
		return Session{}, core.NewValidationError(ErrSessionClosed)
	}

	marks, err := svc.live.Marks(ctx, ses.ID)
	if err != nil {
		return Session{}, errors.Wrap(err, "reading live marks")
	}

	recs := make([]Record, 0, len(marks))
	for studentID, mark := range marks {
		recs = append(recs, Record{
			SessionID: ses.ID,
			ClassID:   ses.ClassID,
			StudentID: studentID,
			Date:      ses.Date,
			Status:    mark.Status,
			MarkedBy:  mark.MarkedBy,
			MarkedAt:  mark.MarkedAt,
		})
	}
	if len(recs) > 0 {
		if err = svc.repo.CreateRecords(ctx, recs); err != nil {
			return Session{}, err
		}
	}

	ses.IsOpen = false
	ses.ClosedAt = time.Now().UTC()
	ses, err = svc.repo.UpdateSession(ctx, ses)
	if err != nil {
		return Session{}, err
	}
	if err = svc.live.CloseSession(ctx, ses.ID); err != nil {
		return Session{}, errors.Wrap(err, "closing live session")
	}
	return ses, nil
}

func (svc *Service) QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter, ordering)
}

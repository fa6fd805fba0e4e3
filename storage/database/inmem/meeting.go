package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/meeting"
)

type meetingRepository struct {
	db *DB
}

func NewMeetingRepository(db *DB) meeting.Repository {
	return &meetingRepository{db: db}
}

func (repo *meetingRepository) CreateMeeting(ctx context.Context, mtg meeting.Meeting) (meeting.Meeting, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if mtg.ID == "" {
		mtg.ID = newID()
	}
	repo.db.meetings[mtg.ID] = &mtg
	return mtg, nil
}

func (repo *meetingRepository) QueryMeetings(ctx context.Context, filter *meeting.QueryFilter, ordering []core.DBOrdering) ([]meeting.Meeting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var mtgs []meeting.Meeting
	for _, mtg := range repo.db.meetings {
		if mtg.IsDeleted {
			continue
		}
		if filter != nil {
			if filter.CampusID != "" && mtg.CampusID != filter.CampusID {
				continue
			}
			if filter.Status != "" && mtg.Status != filter.Status {
				continue
			}
			if filter.AttendeeID != "" && !hasAttendee(*mtg, filter.AttendeeID) {
				continue
			}
			if !filter.From.IsZero() && mtg.ScheduledAt.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && mtg.ScheduledAt.After(filter.To) {
				continue
			}
		}
		mtgs = append(mtgs, *mtg)
	}
	sort.Slice(mtgs, func(i, j int) bool { return mtgs[i].ScheduledAt.Before(mtgs[j].ScheduledAt) })
	return mtgs, nil
}

func hasAttendee(mtg meeting.Meeting, id string) bool {
	if mtg.OrganizerID == id {
		return true
	}
	for _, aid := range mtg.AttendeeIDs {
		if aid == id {
			return true
		}
	}
	return false
}

func (repo *meetingRepository) GetMeeting(ctx context.Context, campusID, id string) (meeting.Meeting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	mtg, ok := repo.db.meetings[id]
	if !ok || mtg.IsDeleted || mtg.CampusID != campusID {
		return meeting.Meeting{}, meeting.ErrNotFound
	}
	return *mtg, nil
}

func (repo *meetingRepository) UpdateMeeting(ctx context.Context, mtg meeting.Meeting) (meeting.Meeting, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.meetings[mtg.ID]; !ok {
		return meeting.Meeting{}, meeting.ErrNotFound
	}
	repo.db.meetings[mtg.ID] = &mtg
	return mtg, nil
}

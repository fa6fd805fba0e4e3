package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, ses attendance.Session) (attendance.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if ses.ID == "" {
		ses.ID = newID()
	}
	repo.db.sessions[ses.ID] = &ses
	return ses, nil
}

func (repo *attendanceRepository) GetSession(ctx context.Context, campusID, id string) (attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ses, ok := repo.db.sessions[id]
	if !ok || ses.IsDeleted || ses.CampusID != campusID {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return *ses, nil
}

func (repo *attendanceRepository) GetOpenSession(ctx context.Context, campusID, classID string) (attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, ses := range repo.db.sessions {
		if ses.CampusID == campusID && ses.ClassID == classID && ses.IsOpen && !ses.IsDeleted {
			return *ses, nil
		}
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) UpdateSession(ctx context.Context, ses attendance.Session) (attendance.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sessions[ses.ID]; !ok {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	repo.db.sessions[ses.ID] = &ses
	return ses, nil
}

func (repo *attendanceRepository) QuerySessions(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var sess []attendance.Session
	for _, ses := range repo.db.sessions {
		if ses.IsDeleted {
			continue
		}
		if filter != nil {
			if filter.CampusID != "" && ses.CampusID != filter.CampusID {
				continue
			}
			if filter.ClassID != "" && ses.ClassID != filter.ClassID {
				continue
			}
			if !filter.DateFrom.IsZero() && ses.Date.Before(filter.DateFrom) {
				continue
			}
			if !filter.DateTo.IsZero() && ses.Date.After(filter.DateTo) {
				continue
			}
		}
		sess = append(sess, *ses)
	}
	sort.Slice(sess, func(i, j int) bool { return sess[i].Date.Before(sess[j].Date) })
	return sess, nil
}

func (repo *attendanceRepository) CreateRecords(ctx context.Context, recs []attendance.Record) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = newID()
		}
		rec := rec
		repo.db.records[rec.ID] = &rec
	}
	return nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var recs []attendance.Record
	for _, rec := range repo.db.records {
		if filter != nil {
			if filter.ClassID != "" && rec.ClassID != filter.ClassID {
				continue
			}
			if filter.StudentID != "" && rec.StudentID != filter.StudentID {
				continue
			}
			if !filter.DateFrom.IsZero() && rec.Date.Before(filter.DateFrom) {
				continue
			}
			if !filter.DateTo.IsZero() && rec.Date.After(filter.DateTo) {
				continue
			}
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].MarkedAt.Before(recs[j].MarkedAt) })
	return recs, nil
}

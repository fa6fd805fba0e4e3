package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type sessionDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CampusID  string             `bson:"campus_id"`
	ClassID   string             `bson:"class_id"`
	Date      time.Time          `bson:"date"`
	IsOpen    bool               `bson:"is_open"`
	OpenedBy  string             `bson:"opened_by"`
	OpenedAt  time.Time          `bson:"opened_at"`
	ClosedAt  time.Time          `bson:"closed_at,omitempty"`
	IsDeleted bool               `bson:"is_deleted"`
}

func newSessionDoc(ses attendance.Session) (sessionDoc, error) {
	id, err := oid(ses.ID)
	if err != nil {
		return sessionDoc{}, err
	}
	return sessionDoc{
		ID:        id,
		CampusID:  ses.CampusID,
		ClassID:   ses.ClassID,
		Date:      ses.Date,
		IsOpen:    ses.IsOpen,
		OpenedBy:  ses.OpenedBy,
		OpenedAt:  ses.OpenedAt,
		ClosedAt:  ses.ClosedAt,
		IsDeleted: ses.IsDeleted,
	}, nil
}

func (d sessionDoc) toSession() attendance.Session {
	return attendance.Session{
		ID:        hexID(d.ID),
		CampusID:  d.CampusID,
		ClassID:   d.ClassID,
		Date:      d.Date,
		IsOpen:    d.IsOpen,
		OpenedBy:  d.OpenedBy,
		OpenedAt:  d.OpenedAt,
		ClosedAt:  d.ClosedAt,
		IsDeleted: d.IsDeleted,
	}
}

type recordDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SessionID string             `bson:"session_id"`
	ClassID   string             `bson:"class_id"`
	StudentID string             `bson:"student_id"`
	Date      time.Time          `bson:"date"`
	Status    string             `bson:"status"`
	MarkedBy  string             `bson:"marked_by"`
	MarkedAt  time.Time          `bson:"marked_at"`
}

func (d recordDoc) toRecord() attendance.Record {
	return attendance.Record{
		ID:        hexID(d.ID),
		SessionID: d.SessionID,
		ClassID:   d.ClassID,
		StudentID: d.StudentID,
		Date:      d.Date,
		Status:    d.Status,
		MarkedBy:  d.MarkedBy,
		MarkedAt:  d.MarkedAt,
	}
}

type attendanceRepository struct {
	sessions *mongo.Collection
	records  *mongo.Collection
}

func NewAttendanceRepository(db *mongo.Database) attendance.Repository {
	return &attendanceRepository{
		sessions: db.Collection("attendance_sessions"),
		records:  db.Collection("attendance_records"),
	}
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, ses attendance.Session) (attendance.Session, error) {
	doc, err := newSessionDoc(ses)
	if err != nil {
		return attendance.Session{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.sessions.InsertOne(ctx, doc); err != nil {
		return attendance.Session{}, errors.Wrap(err, "inserting session")
	}
	return doc.toSession(), nil
}

func (repo *attendanceRepository) GetSession(ctx context.Context, campusID, id string) (attendance.Session, error) {
	obj, err := oid(id)
	if err != nil {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}

	var doc sessionDoc
	err = repo.sessions.FindOne(ctx, bson.M{"_id": obj, "campus_id": campusID, "is_deleted": false}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return attendance.Session{}, attendance.ErrSessionNotFound
		}
		return attendance.Session{}, errors.Wrap(err, "getting session")
	}
	return doc.toSession(), nil
}

func (repo *attendanceRepository) GetOpenSession(ctx context.Context, campusID, classID string) (attendance.Session, error) {
	var doc sessionDoc
	err := repo.sessions.FindOne(ctx, bson.M{
		"campus_id":  campusID,
		"class_id":   classID,
		"is_open":    true,
		"is_deleted": false,
	}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return attendance.Session{}, attendance.ErrSessionNotFound
		}
		return attendance.Session{}, errors.Wrap(err, "getting open session")
	}
	return doc.toSession(), nil
}

func (repo *attendanceRepository) UpdateSession(ctx context.Context, ses attendance.Session) (attendance.Session, error) {
	doc, err := newSessionDoc(ses)
	if err != nil {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}

	res, err := repo.sessions.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "updating session")
	}
	if res.MatchedCount == 0 {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return doc.toSession(), nil
}

func attendanceQueryDoc(filter *attendance.QueryFilter, dateField string) bson.M {
	query := bson.M{}
	if filter == nil {
		return query
	}
	if filter.ClassID != "" {
		query["class_id"] = filter.ClassID
	}
	if filter.StudentID != "" {
		query["student_id"] = filter.StudentID
	}
	if !filter.DateFrom.IsZero() || !filter.DateTo.IsZero() {
		rng := bson.M{}
		if !filter.DateFrom.IsZero() {
			rng["$gte"] = filter.DateFrom
		}
		if !filter.DateTo.IsZero() {
			rng["$lte"] = filter.DateTo
		}
		query[dateField] = rng
	}
	return query
}

func (repo *attendanceRepository) QuerySessions(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Session, error) {
	query := attendanceQueryDoc(filter, "date")
	delete(query, "student_id") // sessions carry no student
	query["is_deleted"] = false
	if filter != nil && filter.CampusID != "" {
		query["campus_id"] = filter.CampusID
	}

	cursor, err := repo.sessions.Find(ctx, query, options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var sess []attendance.Session
	for cursor.Next(ctx) {
		var doc sessionDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding session")
		}
		sess = append(sess, doc.toSession())
	}
	return sess, errors.Wrap(cursor.Err(), "iterating sessions")
}

func (repo *attendanceRepository) CreateRecords(ctx context.Context, recs []attendance.Record) error {
	if len(recs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		id, err := oid(rec.ID)
		if err != nil {
			return err
		}
		if id.IsZero() {
			id = primitive.NewObjectID()
		}
		docs = append(docs, recordDoc{
			ID:        id,
			SessionID: rec.SessionID,
			ClassID:   rec.ClassID,
			StudentID: rec.StudentID,
			Date:      rec.Date,
			Status:    rec.Status,
			MarkedBy:  rec.MarkedBy,
			MarkedAt:  rec.MarkedAt,
		})
	}
	_, err := repo.records.InsertMany(ctx, docs)
	return errors.Wrap(err, "inserting records")
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Record, error) {
	cursor, err := repo.records.Find(ctx, attendanceQueryDoc(filter, "date"), options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var recs []attendance.Record
	for cursor.Next(ctx) {
		var doc recordDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding record")
		}
		recs = append(recs, doc.toRecord())
	}
	return recs, errors.Wrap(cursor.Err(), "iterating records")
}

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
	"github.com/trezcool/darasa/core/meeting"
)

type meetingDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CampusID    string             `bson:"campus_id"`
	Title       string             `bson:"title"`
	Agenda      string             `bson:"agenda,omitempty"`
	OrganizerID string             `bson:"organizer_id"`
	AttendeeIDs []string           `bson:"attendee_ids"`
	ScheduledAt time.Time          `bson:"scheduled_at"`
	Duration    time.Duration      `bson:"duration"`
	JoinURL     string             `bson:"join_url,omitempty"`
	Status      string             `bson:"status"`
	IsDeleted   bool               `bson:"is_deleted"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func newMeetingDoc(mtg meeting.Meeting) (meetingDoc, error) {
	id, err := oid(mtg.ID)
	if err != nil {
		return meetingDoc{}, err
	}
	return meetingDoc{
		ID:          id,
		CampusID:    mtg.CampusID,
		Title:       mtg.Title,
		Agenda:      mtg.Agenda,
		OrganizerID: mtg.OrganizerID,
		AttendeeIDs: mtg.AttendeeIDs,
		ScheduledAt: mtg.ScheduledAt,
		Duration:    mtg.Duration,
		JoinURL:     mtg.JoinURL,
		Status:      mtg.Status,
		IsDeleted:   mtg.IsDeleted,
		CreatedAt:   mtg.CreatedAt,
		UpdatedAt:   mtg.UpdatedAt,
	}, nil
}

func (d meetingDoc) toMeeting() meeting.Meeting {
	return meeting.Meeting{
		ID:          hexID(d.ID),
		CampusID:    d.CampusID,
		Title:       d.Title,
		Agenda:      d.Agenda,
		OrganizerID: d.OrganizerID,
		AttendeeIDs: d.AttendeeIDs,
		ScheduledAt: d.ScheduledAt,
		Duration:    d.Duration,
		JoinURL:     d.JoinURL,
		Status:      d.Status,
		IsDeleted:   d.IsDeleted,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type meetingRepository struct {
	coll *mongo.Collection
}

func NewMeetingRepository(db *mongo.Database) meeting.Repository {
	return &meetingRepository{coll: db.Collection("meetings")}
}

func (repo *meetingRepository) CreateMeeting(ctx context.Context, mtg meeting.Meeting) (meeting.Meeting, error) {
	doc, err := newMeetingDoc(mtg)
	if err != nil {
		return meeting.Meeting{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return meeting.Meeting{}, errors.Wrap(err, "inserting meeting")
	}
	return doc.toMeeting(), nil
}

func (repo *meetingRepository) QueryMeetings(ctx context.Context, filter *meeting.QueryFilter, ordering []core.DBOrdering) ([]meeting.Meeting, error) {
	query := bson.M{"is_deleted": false}
	if filter != nil {
		if filter.CampusID != "" {
			query["campus_id"] = filter.CampusID
		}
		if filter.Status != "" {
			query["status"] = filter.Status
		}
		if filter.AttendeeID != "" {
			query["$or"] = bson.A{
				bson.M{"organizer_id": filter.AttendeeID},
				bson.M{"attendee_ids": filter.AttendeeID},
			}
		}
		if !filter.From.IsZero() || !filter.To.IsZero() {
			rng := bson.M{}
			if !filter.From.IsZero() {
				rng["$gte"] = filter.From
			}
			if !filter.To.IsZero() {
				rng["$lte"] = filter.To
			}
			query["scheduled_at"] = rng
		}
	}

	cursor, err := repo.coll.Find(ctx, query, options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var mtgs []meeting.Meeting
	for cursor.Next(ctx) {
		var doc meetingDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding meeting")
		}
		mtgs = append(mtgs, doc.toMeeting())
	}
	return mtgs, errors.Wrap(cursor.Err(), "iterating meetings")
}

func (repo *meetingRepository) GetMeeting(ctx context.Context, campusID, id string) (meeting.Meeting, error) {
	obj, err := oid(id)
	if err != nil {
		return meeting.Meeting{}, meeting.ErrNotFound
	}

	var doc meetingDoc
	err = repo.coll.FindOne(ctx, bson.M{"_id": obj, "campus_id": campusID, "is_deleted": false}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return meeting.Meeting{}, meeting.ErrNotFound
		}
		return meeting.Meeting{}, errors.Wrap(err, "getting meeting")
	}
	return doc.toMeeting(), nil
}

func (repo *meetingRepository) UpdateMeeting(ctx context.Context, mtg meeting.Meeting) (meeting.Meeting, error) {
	doc, err := newMeetingDoc(mtg)
	if err != nil {
		return meeting.Meeting{}, meeting.ErrNotFound
	}

	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return meeting.Meeting{}, errors.Wrap(err, "updating meeting")
	}
	if res.MatchedCount == 0 {
		return meeting.Meeting{}, meeting.ErrNotFound
	}
	return doc.toMeeting(), nil
}

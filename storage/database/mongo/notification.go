package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core/notification"
)

type audienceDoc struct {
	Kind    string   `bson:"kind"`
	Role    string   `bson:"role,omitempty"`
	UserIDs []string `bson:"user_ids,omitempty"`
}

type notificationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CampusID  string             `bson:"campus_id"`
	Audience  audienceDoc        `bson:"audience"`
	Title     string             `bson:"title"`
	Body      string             `bson:"body"`
	Kind      string             `bson:"kind"`
	CreatedBy string             `bson:"created_by"`
	ReadBy    []string           `bson:"read_by"`
	IsDeleted bool               `bson:"is_deleted"`
	CreatedAt time.Time          `bson:"created_at"`
}

func newNotificationDoc(notif notification.Notification) (notificationDoc, error) {
	id, err := oid(notif.ID)
	if err != nil {
		return notificationDoc{}, err
	}
	return notificationDoc{
		ID:        id,
		CampusID:  notif.CampusID,
		Audience:  audienceDoc(notif.Audience),
		Title:     notif.Title,
		Body:      notif.Body,
		Kind:      notif.Kind,
		CreatedBy: notif.CreatedBy,
		ReadBy:    notif.ReadBy,
		IsDeleted: notif.IsDeleted,
		CreatedAt: notif.CreatedAt,
	}, nil
}

func (d notificationDoc) toNotification() notification.Notification {
	return notification.Notification{
		ID:        hexID(d.ID),
		CampusID:  d.CampusID,
		Audience:  notification.Audience(d.Audience),
		Title:     d.Title,
		Body:      d.Body,
		Kind:      d.Kind,
		CreatedBy: d.CreatedBy,
		ReadBy:    d.ReadBy,
		IsDeleted: d.IsDeleted,
		CreatedAt: d.CreatedAt,
	}
}

type notificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) notification.Repository {
	return &notificationRepository{coll: db.Collection("notifications")}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	doc, err := newNotificationDoc(notif)
	if err != nil {
		return notification.Notification{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return doc.toNotification(), nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, campusID string) ([]notification.Notification, error) {
	cursor, err := repo.coll.Find(
		ctx, bson.M{"campus_id": campusID, "is_deleted": false},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var notifs []notification.Notification
	for cursor.Next(ctx) {
		var doc notificationDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding notification")
		}
		notifs = append(notifs, doc.toNotification())
	}
	return notifs, errors.Wrap(cursor.Err(), "iterating notifications")
}

func (repo *notificationRepository) GetNotification(ctx context.Context, campusID, id string) (notification.Notification, error) {
	obj, err := oid(id)
	if err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}

	var doc notificationDoc
	err = repo.coll.FindOne(ctx, bson.M{"_id": obj, "campus_id": campusID, "is_deleted": false}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return doc.toNotification(), nil
}

func (repo *notificationRepository) UpdateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	doc, err := newNotificationDoc(notif)
	if err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}

	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if res.MatchedCount == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return doc.toNotification(), nil
}

package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core"
)

// Open connects to mongo and waits for it to be ready. Waits 100ms longer
// between each attempt.
func Open(conf *core.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}

	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
		err = client.Ping(pingCtx, nil)
		pingCancel()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	if err != nil {
		return nil, errors.Wrap(err, "mongo ping timeout")
	}
	return client.Database(conf.Database.Name), nil
}

// EnsureIndexes creates the indexes the repositories rely on. Safe to call
// on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "campus_id", Value: 1}}},
		},
		"campuses": {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"classes": {
			{Keys: bson.D{{Key: "campus_id", Value: 1}}},
		},
		"assignments": {
			{Keys: bson.D{{Key: "class_id", Value: 1}}},
		},
		"attendance_sessions": {
			{Keys: bson.D{{Key: "campus_id", Value: 1}, {Key: "class_id", Value: 1}, {Key: "date", Value: -1}}},
		},
		"attendance_records": {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "student_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"quizzes": {
			{Keys: bson.D{{Key: "campus_id", Value: 1}, {Key: "class_id", Value: 1}}},
		},
		"quiz_submissions": {
			{Keys: bson.D{{Key: "quiz_id", Value: 1}, {Key: "student_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"meetings": {
			{Keys: bson.D{{Key: "campus_id", Value: 1}, {Key: "scheduled_at", Value: 1}}},
		},
		"notifications": {
			{Keys: bson.D{{Key: "campus_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		"payments": {
			{Keys: bson.D{{Key: "gateway", Value: 1}, {Key: "gateway_order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "campus_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		"audit_events": {
			{Keys: bson.D{{Key: "campus_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "severity", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

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
	"github.com/trezcool/darasa/core/class"
)

type classDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	CampusID   string             `bson:"campus_id"`
	Name       string             `bson:"name"`
	Subject    string             `bson:"subject"`
	TeacherID  string             `bson:"teacher_id"`
	StudentIDs []string           `bson:"student_ids"`
	IsArchived bool               `bson:"is_archived"`
	IsDeleted  bool               `bson:"is_deleted"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

func newClassDoc(cls class.Class) (classDoc, error) {
	id, err := oid(cls.ID)
	if err != nil {
		return classDoc{}, err
	}
	return classDoc{
		ID:         id,
		CampusID:   cls.CampusID,
		Name:       cls.Name,
		Subject:    cls.Subject,
		TeacherID:  cls.TeacherID,
		StudentIDs: cls.StudentIDs,
		IsArchived: cls.IsArchived,
		IsDeleted:  cls.IsDeleted,
		CreatedAt:  cls.CreatedAt,
		UpdatedAt:  cls.UpdatedAt,
	}, nil
}

func (d classDoc) toClass() class.Class {
	return class.Class{
		ID:         hexID(d.ID),
		CampusID:   d.CampusID,
		Name:       d.Name,
		Subject:    d.Subject,
		TeacherID:  d.TeacherID,
		StudentIDs: d.StudentIDs,
		IsArchived: d.IsArchived,
		IsDeleted:  d.IsDeleted,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type assignmentDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ClassID      string             `bson:"class_id"`
	Title        string             `bson:"title"`
	Instructions string             `bson:"instructions,omitempty"`
	DueDate      time.Time          `bson:"due_date"`
	MaxScore     int                `bson:"max_score"`
	IsPublished  bool               `bson:"is_published"`
	IsDeleted    bool               `bson:"is_deleted"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func newAssignmentDoc(asg class.Assignment) (assignmentDoc, error) {
	id, err := oid(asg.ID)
	if err != nil {
		return assignmentDoc{}, err
	}
	return assignmentDoc{
		ID:           id,
		ClassID:      asg.ClassID,
		Title:        asg.Title,
		Instructions: asg.Instructions,
		DueDate:      asg.DueDate,
		MaxScore:     asg.MaxScore,
		IsPublished:  asg.IsPublished,
		IsDeleted:    asg.IsDeleted,
		CreatedAt:    asg.CreatedAt,
		UpdatedAt:    asg.UpdatedAt,
	}, nil
}

func (d assignmentDoc) toAssignment() class.Assignment {
	return class.Assignment{
		ID:           hexID(d.ID),
		ClassID:      d.ClassID,
		Title:        d.Title,
		Instructions: d.Instructions,
		DueDate:      d.DueDate,
		MaxScore:     d.MaxScore,
		IsPublished:  d.IsPublished,
		IsDeleted:    d.IsDeleted,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type classRepository struct {
	classes     *mongo.Collection
	assignments *mongo.Collection
}

func NewClassRepository(db *mongo.Database) class.Repository {
	return &classRepository{
		classes:     db.Collection("classes"),
		assignments: db.Collection("assignments"),
	}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	doc, err := newClassDoc(cls)
	if err != nil {
		return class.Class{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.classes.InsertOne(ctx, doc); err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return doc.toClass(), nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	query := bson.M{"is_deleted": false}
	if filter != nil {
		if filter.CampusID != "" {
			query["campus_id"] = filter.CampusID
		}
		if filter.TeacherID != "" {
			query["teacher_id"] = filter.TeacherID
		}
		if filter.StudentID != "" {
			query["student_ids"] = filter.StudentID
		}
		if filter.Archived != nil {
			query["is_archived"] = *filter.Archived
		}
		if filter.Search != "" {
			re := primitive.Regex{Pattern: filter.Search, Options: "i"}
			query["$or"] = bson.A{bson.M{"name": re}, bson.M{"subject": re}}
		}
	}

	cursor, err := repo.classes.Find(ctx, query, options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var clss []class.Class
	for cursor.Next(ctx) {
		var doc classDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding class")
		}
		clss = append(clss, doc.toClass())
	}
	return clss, errors.Wrap(cursor.Err(), "iterating classes")
}

func (repo *classRepository) GetClass(ctx context.Context, campusID, id string) (class.Class, error) {
	obj, err := oid(id)
	if err != nil {
		return class.Class{}, class.ErrNotFound
	}

	var doc classDoc
	err = repo.classes.FindOne(ctx, bson.M{"_id": obj, "campus_id": campusID, "is_deleted": false}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "getting class")
	}
	return doc.toClass(), nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	doc, err := newClassDoc(cls)
	if err != nil {
		return class.Class{}, class.ErrNotFound
	}

	res, err := repo.classes.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if res.MatchedCount == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return doc.toClass(), nil
}

func (repo *classRepository) CreateAssignment(ctx context.Context, asg class.Assignment) (class.Assignment, error) {
	doc, err := newAssignmentDoc(asg)
	if err != nil {
		return class.Assignment{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.assignments.InsertOne(ctx, doc); err != nil {
		return class.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return doc.toAssignment(), nil
}

func (repo *classRepository) QueryAssignments(ctx context.Context, classID string) ([]class.Assignment, error) {
	cursor, err := repo.assignments.Find(
		ctx, bson.M{"class_id": classID, "is_deleted": false},
		options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var asgs []class.Assignment
	for cursor.Next(ctx) {
		var doc assignmentDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding assignment")
		}
		asgs = append(asgs, doc.toAssignment())
	}
	return asgs, errors.Wrap(cursor.Err(), "iterating assignments")
}

func (repo *classRepository) GetAssignment(ctx context.Context, classID, id string) (class.Assignment, error) {
	obj, err := oid(id)
	if err != nil {
		return class.Assignment{}, class.ErrAssignmentNotFound
	}

	var doc assignmentDoc
	err = repo.assignments.FindOne(ctx, bson.M{"_id": obj, "class_id": classID, "is_deleted": false}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return class.Assignment{}, class.ErrAssignmentNotFound
		}
		return class.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return doc.toAssignment(), nil
}

func (repo *classRepository) UpdateAssignment(ctx context.Context, asg class.Assignment) (class.Assignment, error) {
	doc, err := newAssignmentDoc(asg)
	if err != nil {
		return class.Assignment{}, class.ErrAssignmentNotFound
	}

	res, err := repo.assignments.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return class.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if res.MatchedCount == 0 {
		return class.Assignment{}, class.ErrAssignmentNotFound
	}
	return doc.toAssignment(), nil
}

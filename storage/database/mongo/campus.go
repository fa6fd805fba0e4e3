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
	"github.com/trezcool/darasa/core/campus"
)

type campusDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Slug         string             `bson:"slug"`
	Address      string             `bson:"address,omitempty"`
	ContactEmail string             `bson:"contact_email,omitempty"`
	Features     map[string]bool    `bson:"features"`
	Status       string             `bson:"status"`
	IsDeleted    bool               `bson:"is_deleted"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func newCampusDoc(cmp campus.Campus) (campusDoc, error) {
	id, err := oid(cmp.ID)
	if err != nil {
		return campusDoc{}, err
	}
	return campusDoc{
		ID:           id,
		Name:         cmp.Name,
		Slug:         cmp.Slug,
		Address:      cmp.Address,
		ContactEmail: cmp.ContactEmail,
		Features:     cmp.Features,
		Status:       cmp.Status,
		IsDeleted:    cmp.IsDeleted,
		CreatedAt:    cmp.CreatedAt,
		UpdatedAt:    cmp.UpdatedAt,
	}, nil
}

func (d campusDoc) toCampus() campus.Campus {
	return campus.Campus{
		ID:           hexID(d.ID),
		Name:         d.Name,
		Slug:         d.Slug,
		Address:      d.Address,
		ContactEmail: d.ContactEmail,
		Features:     d.Features,
		Status:       d.Status,
		IsDeleted:    d.IsDeleted,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type campusRepository struct {
	coll *mongo.Collection
}

func NewCampusRepository(db *mongo.Database) campus.Repository {
	return &campusRepository{coll: db.Collection("campuses")}
}

func (repo *campusRepository) CheckSlugUniqueness(ctx context.Context, slug string, excluded ...campus.Campus) error {
	filter := bson.M{"slug": slug}
	if len(excluded) > 0 {
		ids := make(bson.A, 0, len(excluded))
		for _, cmp := range excluded {
			id, err := oid(cmp.ID)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		filter["_id"] = bson.M{"$nin": ids}
	}

	n, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if n > 0 {
		return campus.ErrSlugExists
	}
	return nil
}

func (repo *campusRepository) CreateCampus(ctx context.Context, cmp campus.Campus) (campus.Campus, error) {
	doc, err := newCampusDoc(cmp)
	if err != nil {
		return campus.Campus{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return campus.Campus{}, errors.Wrap(err, "inserting campus")
	}
	return doc.toCampus(), nil
}

func (repo *campusRepository) QueryCampuses(ctx context.Context, filter *campus.QueryFilter, ordering []core.DBOrdering) ([]campus.Campus, error) {
	query := bson.M{}
	if filter == nil || !filter.IncludeDeleted {
		query["is_deleted"] = false
	}
	if filter != nil {
		if filter.Status != "" {
			query["status"] = filter.Status
		}
		if filter.Search != "" {
			re := primitive.Regex{Pattern: filter.Search, Options: "i"}
			query["$or"] = bson.A{bson.M{"name": re}, bson.M{"slug": re}}
		}
	}

	cursor, err := repo.coll.Find(ctx, query, options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying campuses")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var cmps []campus.Campus
	for cursor.Next(ctx) {
		var doc campusDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding campus")
		}
		cmps = append(cmps, doc.toCampus())
	}
	return cmps, errors.Wrap(cursor.Err(), "iterating campuses")
}

func (repo *campusRepository) GetCampus(ctx context.Context, filter campus.GetFilter) (campus.Campus, error) {
	query := bson.M{}
	switch {
	case filter.ID != "":
		id, err := oid(filter.ID)
		if err != nil {
			return campus.Campus{}, campus.ErrNotFound
		}
		query["_id"] = id
	case filter.Slug != "":
		query["slug"] = filter.Slug
	default:
		return campus.Campus{}, campus.ErrNotFound
	}

	var doc campusDoc
	if err := repo.coll.FindOne(ctx, query).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return campus.Campus{}, campus.ErrNotFound
		}
		return campus.Campus{}, errors.Wrap(err, "getting campus")
	}
	return doc.toCampus(), nil
}

func (repo *campusRepository) UpdateCampus(ctx context.Context, cmp campus.Campus) (campus.Campus, error) {
	doc, err := newCampusDoc(cmp)
	if err != nil {
		return campus.Campus{}, campus.ErrNotFound
	}

	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return campus.Campus{}, errors.Wrap(err, "updating campus")
	}
	if res.MatchedCount == 0 {
		return campus.Campus{}, campus.ErrNotFound
	}
	return doc.toCampus(), nil
}

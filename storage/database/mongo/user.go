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
	"github.com/trezcool/darasa/core/user"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	CampusID     string             `bson:"campus_id,omitempty"`
	Name         string             `bson:"name"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	IsActive     *bool              `bson:"is_active"`
	Roles        []string           `bson:"roles"`
	PasswordHash []byte             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
	LastLogin    time.Time          `bson:"last_login"`
}

func newUserDoc(usr user.User) (userDoc, error) {
	id, err := oid(usr.ID)
	if err != nil {
		return userDoc{}, err
	}
	return userDoc{
		ID:           id,
		CampusID:     usr.CampusID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    usr.LastLogin,
	}, nil
}

func (d userDoc) toUser() user.User {
	return user.User{
		ID:           hexID(d.ID),
		CampusID:     d.CampusID,
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		IsActive:     d.IsActive,
		Roles:        d.Roles,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastLogin:    d.LastLogin,
	}
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{coll: db.Collection("users")}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}}
	if len(excludedUsers) > 0 {
		ids := make(bson.A, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			id, err := oid(usr.ID)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		filter["_id"] = bson.M{"$nin": ids}
	}

	n, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if n > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	doc, err := newUserDoc(usr)
	if err != nil {
		return user.User{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return doc.toUser(), nil
}

func userQueryDoc(filter *user.QueryFilter) bson.M {
	query := bson.M{}
	if filter == nil {
		return query
	}
	if filter.CampusID != "" {
		query["campus_id"] = filter.CampusID
	}
	if len(filter.Roles) > 0 {
		query["roles"] = bson.M{"$in": filter.Roles}
	}
	if filter.IsActive != nil {
		query["is_active"] = *filter.IsActive
	}
	if !filter.CreatedFrom.IsZero() || !filter.CreatedTo.IsZero() {
		rng := bson.M{}
		if !filter.CreatedFrom.IsZero() {
			rng["$gte"] = filter.CreatedFrom
		}
		if !filter.CreatedTo.IsZero() {
			rng["$lte"] = filter.CreatedTo
		}
		query["created_at"] = rng
	}
	if filter.Search != "" {
		re := primitive.Regex{Pattern: filter.Search, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"username": re},
			bson.M{"email": re},
		}
	}
	return query
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	cursor, err := repo.coll.Find(ctx, userQueryDoc(filter), options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var users []user.User
	for cursor.Next(ctx) {
		var doc userDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding user")
		}
		users = append(users, doc.toUser())
	}
	return users, errors.Wrap(cursor.Err(), "iterating users")
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	query := bson.M{}
	switch {
	case filter.ID != "":
		id, err := oid(filter.ID)
		if err != nil {
			return user.User{}, user.ErrNotFound
		}
		query["_id"] = id
	case filter.Username != "":
		query["username"] = filter.Username
	case filter.Email != "":
		query["email"] = filter.Email
	case len(filter.UsernameOrEmail) > 0:
		or := make(bson.A, 0, 2*len(filter.UsernameOrEmail))
		for _, v := range filter.UsernameOrEmail {
			or = append(or, bson.M{"username": v}, bson.M{"email": v})
		}
		query["$or"] = or
	default:
		return user.User{}, user.ErrNotFound
	}

	var doc userDoc
	if err := repo.coll.FindOne(ctx, query).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	id, err := oid(usr.ID)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}

	// only save set fields
	set := bson.M{}
	if usr.Name != "" {
		set["name"] = usr.Name
	}
	if usr.Username != "" {
		set["username"] = usr.Username
	}
	if usr.Email != "" {
		set["email"] = usr.Email
	}
	if usr.Roles != nil {
		set["roles"] = usr.Roles
	}
	if usr.PasswordHash != nil {
		set["password_hash"] = usr.PasswordHash
	}
	if usr.IsActive != nil {
		set["is_active"] = *usr.IsActive
	}
	if !usr.LastLogin.IsZero() {
		set["last_login"] = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		set["updated_at"] = usr.UpdatedAt
	}

	var doc userDoc
	err = repo.coll.FindOneAndUpdate(
		ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	updated, err := repo.UpdateUser(ctx, usr)
	if err == user.ErrNotFound {
		return repo.CreateUser(ctx, usr)
	}
	return updated, err
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string) (int, error) {
	oids := make(bson.A, 0, len(ids))
	for _, id := range ids {
		obj, err := oid(id)
		if err != nil {
			continue
		}
		oids = append(oids, obj)
	}
	res, err := repo.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(res.DeletedCount), nil
}

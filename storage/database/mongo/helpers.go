package mongodb

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/darasa/core"
)

// oid parses a hex document ID; the zero ObjectID is returned for empty input.
func oid(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, nil
	}
	obj, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(err, "invalid document ID %q", id)
	}
	return obj, nil
}

func hexID(obj primitive.ObjectID) string {
	if obj.IsZero() {
		return ""
	}
	return obj.Hex()
}

// sortDoc translates service-level ordering into a mongo sort document.
func sortDoc(ordering []core.DBOrdering) bson.D {
	if len(ordering) == 0 {
		return bson.D{{Key: "_id", Value: 1}}
	}
	doc := make(bson.D, 0, len(ordering))
	for _, ord := range ordering {
		doc = append(doc, bson.E{Key: ord.Field, Value: ord.Direction()})
	}
	return doc
}

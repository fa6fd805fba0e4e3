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
	"github.com/trezcool/darasa/core/quiz"
)

type questionDoc struct {
	Text         string   `bson:"text"`
	Choices      []string `bson:"choices"`
	CorrectIndex int      `bson:"correct_index"`
	Points       int      `bson:"points"`
}

type quizDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CampusID    string             `bson:"campus_id"`
	ClassID     string             `bson:"class_id"`
	Title       string             `bson:"title"`
	Questions   []questionDoc      `bson:"questions"`
	Duration    time.Duration      `bson:"duration"`
	IsPublished bool               `bson:"is_published"`
	IsDeleted   bool               `bson:"is_deleted"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func newQuizDoc(qz quiz.Quiz) (quizDoc, error) {
	id, err := oid(qz.ID)
	if err != nil {
		return quizDoc{}, err
	}
	questions := make([]questionDoc, 0, len(qz.Questions))
	for _, q := range qz.Questions {
		questions = append(questions, questionDoc(q))
	}
	return quizDoc{
		ID:          id,
		CampusID:    qz.CampusID,
		ClassID:     qz.ClassID,
		Title:       qz.Title,
		Questions:   questions,
		Duration:    qz.Duration,
		IsPublished: qz.IsPublished,
		IsDeleted:   qz.IsDeleted,
		CreatedAt:   qz.CreatedAt,
		UpdatedAt:   qz.UpdatedAt,
	}, nil
}

func (d quizDoc) toQuiz() quiz.Quiz {
	questions := make([]quiz.Question, 0, len(d.Questions))
	for _, q := range d.Questions {
		questions = append(questions, quiz.Question(q))
	}
	return quiz.Quiz{
		ID:          hexID(d.ID),
		CampusID:    d.CampusID,
		ClassID:     d.ClassID,
		Title:       d.Title,
		Questions:   questions,
		Duration:    d.Duration,
		IsPublished: d.IsPublished,
		IsDeleted:   d.IsDeleted,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type submissionDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	QuizID      string             `bson:"quiz_id"`
	StudentID   string             `bson:"student_id"`
	Answers     []int              `bson:"answers"`
	Score       int                `bson:"score"`
	SubmittedAt time.Time          `bson:"submitted_at"`
}

func (d submissionDoc) toSubmission() quiz.Submission {
	return quiz.Submission{
		ID:          hexID(d.ID),
		QuizID:      d.QuizID,
		StudentID:   d.StudentID,
		Answers:     d.Answers,
		Score:       d.Score,
		SubmittedAt: d.SubmittedAt,
	}
}

type quizRepository struct {
	quizzes     *mongo.Collection
	submissions *mongo.Collection
}

func NewQuizRepository(db *mongo.Database) quiz.Repository {
	return &quizRepository{
		quizzes:     db.Collection("quizzes"),
		submissions: db.Collection("quiz_submissions"),
	}
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	doc, err := newQuizDoc(qz)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.quizzes.InsertOne(ctx, doc); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return doc.toQuiz(), nil
}

func (repo *quizRepository) QueryQuizzes(ctx context.Context, filter *quiz.QueryFilter, ordering []core.DBOrdering) ([]quiz.Quiz, error) {
	query := bson.M{"is_deleted": false}
	if filter != nil {
		if filter.CampusID != "" {
			query["campus_id"] = filter.CampusID
		}
		if filter.ClassID != "" {
			query["class_id"] = filter.ClassID
		}
		if filter.Published != nil {
			query["is_published"] = *filter.Published
		}
		if filter.Search != "" {
			query["title"] = primitive.Regex{Pattern: filter.Search, Options: "i"}
		}
	}

	cursor, err := repo.quizzes.Find(ctx, query, options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var qzs []quiz.Quiz
	for cursor.Next(ctx) {
		var doc quizDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding quiz")
		}
		qzs = append(qzs, doc.toQuiz())
	}
	return qzs, errors.Wrap(cursor.Err(), "iterating quizzes")
}

func (repo *quizRepository) GetQuiz(ctx context.Context, campusID, id string) (quiz.Quiz, error) {
	obj, err := oid(id)
	if err != nil {
		return quiz.Quiz{}, quiz.ErrNotFound
	}

	var doc quizDoc
	err = repo.quizzes.FindOne(ctx, bson.M{"_id": obj, "campus_id": campusID, "is_deleted": false}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "getting quiz")
	}
	return doc.toQuiz(), nil
}

func (repo *quizRepository) UpdateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	doc, err := newQuizDoc(qz)
	if err != nil {
		return quiz.Quiz{}, quiz.ErrNotFound
	}

	res, err := repo.quizzes.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if res.MatchedCount == 0 {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return doc.toQuiz(), nil
}

func (repo *quizRepository) CreateSubmission(ctx context.Context, sub quiz.Submission) (quiz.Submission, error) {
	id, err := oid(sub.ID)
	if err != nil {
		return quiz.Submission{}, err
	}
	if id.IsZero() {
		id = primitive.NewObjectID()
	}
	doc := submissionDoc{
		ID:          id,
		QuizID:      sub.QuizID,
		StudentID:   sub.StudentID,
		Answers:     sub.Answers,
		Score:       sub.Score,
		SubmittedAt: sub.SubmittedAt,
	}
	if _, err = repo.submissions.InsertOne(ctx, doc); err != nil {
		return quiz.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return doc.toSubmission(), nil
}

func (repo *quizRepository) GetSubmission(ctx context.Context, quizID, studentID string) (quiz.Submission, error) {
	var doc submissionDoc
	err := repo.submissions.FindOne(ctx, bson.M{"quiz_id": quizID, "student_id": studentID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return quiz.Submission{}, quiz.ErrSubmissionNotFound
		}
		return quiz.Submission{}, errors.Wrap(err, "getting submission")
	}
	return doc.toSubmission(), nil
}

func (repo *quizRepository) QuerySubmissions(ctx context.Context, quizID string) ([]quiz.Submission, error) {
	cursor, err := repo.submissions.Find(
		ctx, bson.M{"quiz_id": quizID},
		options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var subs []quiz.Submission
	for cursor.Next(ctx) {
		var doc submissionDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding submission")
		}
		subs = append(subs, doc.toSubmission())
	}
	return subs, errors.Wrap(cursor.Err(), "iterating submissions")
}

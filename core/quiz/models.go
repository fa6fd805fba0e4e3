package quiz

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Question struct {
	Text         string   `json:"text" validate:"required"`
	Choices      []string `json:"choices" validate:"required,min=2"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
	Points       int      `json:"points" validate:"required,gt=0"`
}

type Quiz struct {
	ID          string        `json:"id"`
	CampusID    string        `json:"campus_id"`
	ClassID     string        `json:"class_id"`
	Title       string        `json:"title"`
	Questions   []Question    `json:"questions"`
	Duration    time.Duration `json:"duration"`
	IsPublished bool          `json:"is_published"`
	IsDeleted   bool          `json:"-"`
	CreatedAt   time.Time     `json:"created_at"` // UTC
	UpdatedAt   time.Time     `json:"updated_at"` // UTC
}

// MaxScore is the sum of all question points.
func (q *Quiz) MaxScore() int {
	var total int
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Score computes the score for the given answers; -1 marks an unanswered
// question.
func (q *Quiz) Score(answers []int) int {
	var score int
	for i, question := range q.Questions {
		if i >= len(answers) {
			break
		}
		if answers[i] == question.CorrectIndex {
			score += question.Points
		}
	}
	return score
}

type Submission struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quiz_id"`
	StudentID   string    `json:"student_id"`
	Answers     []int     `json:"answers"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"` // UTC
}

// LiveSession is the redis-held state of a running quiz.
type LiveSession struct {
	QuizID    string    `json:"quiz_id"`
	StartedBy string    `json:"started_by"`
	StartedAt time.Time `json:"started_at"`
	Deadline  time.Time `json:"deadline"`
}

func (ls *LiveSession) Expired(now time.Time) bool {
	return now.After(ls.Deadline)
}

// NewQuiz contains information needed to create a new Quiz.
type NewQuiz struct {
	ClassID     string        `json:"class_id" validate:"required,objectid"`
	Title       string        `json:"title" validate:"required"`
	Questions   []Question    `json:"questions" validate:"required,min=1,dive"`
	Duration    time.Duration `json:"duration" validate:"required,gt=0"`
	IsPublished bool          `json:"is_published"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	// correct index must point at an existing choice
	for i, q := range nq.Questions {
		if q.CorrectIndex >= len(q.Choices) {
			return core.NewValidationError(nil, core.FieldError{
				Field: "questions", Error: "correct_index out of range for question " + strconv.Itoa(i+1),
			})
		}
	}
	return nil
}

// UpdateQuiz defines what information may be provided to modify an existing Quiz.
type UpdateQuiz struct {
	Title       string         `json:"title"`
	Questions   []Question     `json:"questions" validate:"omitempty,min=1,dive"`
	Duration    *time.Duration `json:"duration" validate:"omitempty,gt=0"`
	IsPublished *bool          `json:"is_published"`
}

func (uq *UpdateQuiz) Validate(validate *validator.Validate) error {
	uq.Title = core.CleanString(uq.Title)
	return validate.Struct(uq)
}

type SubmitRequest struct {
	Answers []int `json:"answers" validate:"required"`
}

func (sr *SubmitRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(sr)
}

type QueryFilter struct {
	CampusID  string `query:"-"`
	ClassID   string `query:"class_id"`
	Search    string `query:"search"`
	Published *bool  `query:"published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

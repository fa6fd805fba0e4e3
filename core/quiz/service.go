package quiz

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("quiz not found")
	ErrNotPublished       = errors.New("quiz is not published")
	ErrNoLiveSession      = errors.New("quiz has no running session")
	ErrSessionRunning     = errors.New("quiz already has a running session")
	ErrAlreadySubmitted   = errors.New("quiz already submitted")
	ErrDeadlinePassed     = errors.New("quiz deadline has passed")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// submissionGrace absorbs clock skew and network lag on the deadline.
const submissionGrace = 30 * time.Second

type (
	Repository interface {
		CreateQuiz(ctx context.Context, qz Quiz) (Quiz, error)
		QueryQuizzes(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Quiz, error)
		GetQuiz(ctx context.Context, campusID, id string) (Quiz, error)
		UpdateQuiz(ctx context.Context, qz Quiz) (Quiz, error)

		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, quizID, studentID string) (Submission, error)
		QuerySubmissions(ctx context.Context, quizID string) ([]Submission, error)
	}

	// LiveStore holds running quiz sessions; backed by redis with a TTL.
	LiveStore interface {
		StartSession(ctx context.Context, ses LiveSession, ttl time.Duration) error
		GetSession(ctx context.Context, quizID string) (LiveSession, error)
		AddParticipant(ctx context.Context, quizID, studentID string) error
		EndSession(ctx context.Context, quizID string) error
	}

	Service struct {
		repo Repository
		live LiveStore
	}
)

func NewService(repo Repository, live LiveStore) *Service {
	return &Service{repo: repo, live: live}
}

func (svc *Service) Create(ctx context.Context, campusID string, nq NewQuiz) (Quiz, error) {
	now := time.Now().UTC()
	qz := Quiz{
		CampusID:    campusID,
		ClassID:     nq.ClassID,
		Title:       nq.Title,
		Questions:   nq.Questions,
		Duration:    nq.Duration,
		IsPublished: nq.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateQuiz(ctx, qz)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Quiz, error) {
	return svc.repo.QueryQuizzes(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, campusID, id string) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, campusID, id)
}

func (svc *Service) Update(ctx context.Context, campusID, id string, uq UpdateQuiz) (Quiz, error) {
	qz, err := svc.repo.GetQuiz(ctx, campusID, id)
	if err != nil {
		return Quiz{}, err
	}
	if uq.Title != "" {
		qz.Title = uq.Title
	}
	if uq.Questions != nil {
		qz.Questions = uq.Questions
	}
	if uq.Duration != nil {
		qz.Duration = *uq.Duration
	}
	if uq.IsPublished != nil {
		qz.IsPublished = *uq.IsPublished
	}
	qz.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateQuiz(ctx, qz)
}

func (svc *Service) Delete(ctx context.Context, campusID, id string) error {
	qz, err := svc.repo.GetQuiz(ctx, campusID, id)
	if err != nil {
		return err
	}
	qz.IsDeleted = true
	qz.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateQuiz(ctx, qz)
	return err
}

// StartSession starts a live session for a published quiz.
func (svc *Service) StartSession(ctx context.Context, campusID, startedBy, id string) (LiveSession, error) {
	qz, err := svc.repo.GetQuiz(ctx, campusID, id)
	if err != nil {
		return LiveSession{}, err
	}
	if !qz.IsPublished {
		return LiveSession{}, core.NewValidationError(ErrNotPublished)
	}
	if _, err = svc.live.GetSession(ctx, qz.ID); err == nil {
		return LiveSession{}, core.NewValidationError(ErrSessionRunning)
	} else if errors.Cause(err) != ErrNoLiveSession {
		return LiveSession{}, err
	}

	now := time.Now().UTC()
	ses := LiveSession{
		QuizID:    qz.ID,
		StartedBy: startedBy,
		StartedAt: now,
		Deadline:  now.Add(qz.Duration),
	}
	ttl := qz.Duration + submissionGrace
	if err = svc.live.StartSession(ctx, ses, ttl); err != nil {
		return LiveSession{}, errors.Wrap(err, "starting live session")
	}
	return ses, nil
}

// Join registers a student as a participant of the running session.
func (svc *Service) Join(ctx context.Context, campusID, studentID, id string) (LiveSession, error) {
	qz, err := svc.repo.GetQuiz(ctx, campusID, id)
	if err != nil {
		return LiveSession{}, err
	}
	ses, err := svc.live.GetSession(ctx, qz.ID)
	if err != nil {
		return LiveSession{}, err
	}
	if ses.Expired(time.Now().UTC()) {
		return LiveSession{}, core.NewValidationError(ErrDeadlinePassed)
	}
	if err = svc.live.AddParticipant(ctx, qz.ID, studentID); err != nil {
		return LiveSession{}, errors.Wrap(err, "adding participant")
	}
	return ses, nil
}

// Submit scores the answers server-side and stores the submission; a student
// may only submit once per quiz.
func (svc *Service) Submit(ctx context.Context, campusID, studentID, id string, req SubmitRequest) (Submission, error) {
	qz, err := svc.repo.GetQuiz(ctx, campusID, id)
	if err != nil {
		return Submission{}, err
	}

	ses, err := svc.live.GetSession(ctx, qz.ID)
	if err != nil {
		return Submission{}, err
	}
	now := time.Now().UTC()
	if now.After(ses.Deadline.Add(submissionGrace)) {
		return Submission{}, core.NewValidationError(ErrDeadlinePassed)
	}

	if _, err = svc.repo.GetSubmission(ctx, qz.ID, studentID); err == nil {
		return Submission{}, ErrAlreadySubmitted
	} else if errors.Cause(err) != ErrSubmissionNotFound {
		return Submission{}, err
	}

	sub := Submission{
		QuizID:      qz.ID,
		StudentID:   studentID,
		Answers:     req.Answers,
		Score:       qz.Score(req.Answers),
		SubmittedAt: now,
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

// Results returns all submissions of a quiz.
func (svc *Service) Results(ctx context.Context, campusID, id string) ([]Submission, error) {
	qz, err := svc.repo.GetQuiz(ctx, campusID, id)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissions(ctx, qz.ID)
}

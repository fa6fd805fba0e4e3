package quiz_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/quiz"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

const (
	campusID  = "5e7c2f3b9d1e8a6b4c2d1e0f"
	classID   = "5e7c2f3b9d1e8a6b4c2d1e10"
	teacherID = "5e7c2f3b9d1e8a6b4c2d1e11"
	studentID = "5e7c2f3b9d1e8a6b4c2d1e12"
)

func setup(t *testing.T) *quiz.Service {
	t.Helper()
	core.NewTestConfig()
	db := inmemdb.Open()
	return quiz.NewService(inmemdb.NewQuizRepository(db), inmemdb.NewQuizLiveStore())
}

func newQuiz(published bool) quiz.NewQuiz {
	return quiz.NewQuiz{
		ClassID: classID,
		Title:   "Fractions",
		Questions: []quiz.Question{
			{Text: "1/2 + 1/2 ?", Choices: []string{"1", "2"}, CorrectIndex: 0, Points: 5},
			{Text: "1/4 of 8 ?", Choices: []string{"2", "4"}, CorrectIndex: 0, Points: 10},
			{Text: "1/3 of 9 ?", Choices: []string{"3", "6"}, CorrectIndex: 0, Points: 10},
		},
		Duration:    20 * time.Minute,
		IsPublished: published,
	}
}

func TestQuiz_Score(t *testing.T) {
	qz := quiz.Quiz{Questions: newQuiz(true).Questions}

	tests := []struct {
		name    string
		answers []int
		want    int
	}{
		{"all correct", []int{0, 0, 0}, 25},
		{"all wrong", []int{1, 1, 1}, 0},
		{"partial", []int{0, 1, 0}, 15},
		{"short answer list", []int{0}, 5},
		{"unanswered marker ignored", []int{0, -1, -1}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, qz.Score(tt.answers))
		})
	}
	assert.Equal(t, 25, qz.MaxScore())
}

func TestService_liveSession(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	draft, err := svc.Create(ctx, campusID, newQuiz(false))
	require.NoError(t, err)

	// only published quizzes can run
	_, err = svc.StartSession(ctx, campusID, teacherID, draft.ID)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	published := true
	qz, err := svc.Update(ctx, campusID, draft.ID, quiz.UpdateQuiz{IsPublished: &published})
	require.NoError(t, err)

	// no session yet
	_, err = svc.Join(ctx, campusID, studentID, qz.ID)
	assert.Equal(t, quiz.ErrNoLiveSession, err)
	_, err = svc.Submit(ctx, campusID, studentID, qz.ID, quiz.SubmitRequest{Answers: []int{0, 0, 0}})
	assert.Equal(t, quiz.ErrNoLiveSession, err)

	ses, err := svc.StartSession(ctx, campusID, teacherID, qz.ID)
	require.NoError(t, err)
	assert.Equal(t, qz.ID, ses.QuizID)
	assert.True(t, ses.Deadline.After(ses.StartedAt))

	// a second session cannot start while one runs
	_, err = svc.StartSession(ctx, campusID, teacherID, qz.ID)
	require.ErrorAs(t, err, &vErr)

	_, err = svc.Join(ctx, campusID, studentID, qz.ID)
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, campusID, studentID, qz.ID, quiz.SubmitRequest{Answers: []int{0, 1, 0}})
	require.NoError(t, err)
	assert.Equal(t, 15, sub.Score)
	assert.Equal(t, studentID, sub.StudentID)
	assert.False(t, sub.SubmittedAt.IsZero())

	// one submission per student
	_, err = svc.Submit(ctx, campusID, studentID, qz.ID, quiz.SubmitRequest{Answers: []int{0, 0, 0}})
	assert.Equal(t, quiz.ErrAlreadySubmitted, err)

	results, err := svc.Results(ctx, campusID, qz.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sub.ID, results[0].ID)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	qz, err := svc.Create(ctx, campusID, newQuiz(true))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, campusID, qz.ID))

	_, err = svc.GetByID(ctx, campusID, qz.ID)
	assert.Equal(t, quiz.ErrNotFound, err)

	quizzes, err := svc.Query(ctx, &quiz.QueryFilter{CampusID: campusID}, nil)
	require.NoError(t, err)
	assert.Empty(t, quizzes)
}

package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
)

func Test_quizApi(t *testing.T) {
	cmp := createTestCampus(t, "Summit Prep", "summit-prep", allFeatures())
	teacher := createTestUser(t, cmp.ID, "Quinn Teacher", "quinnteach", "quinn@summit.cd", "quiz#Secret1", []string{user.RoleTeacher})
	student := createTestUser(t, cmp.ID, "Stu Dent", "studentone", "stu@summit.cd", "quiz#Secret1", []string{user.RoleStudent})

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	newQuiz := func(title string, published bool) quiz.NewQuiz {
		return quiz.NewQuiz{
			ClassID: newObjectID(),
			Title:   title,
			Questions: []quiz.Question{
				{Text: "2 + 2 ?", Choices: []string{"3", "4", "5"}, CorrectIndex: 1, Points: 5},
				{Text: "Capital of DRC ?", Choices: []string{"Goma", "Kinshasa"}, CorrectIndex: 1, Points: 10},
			},
			Duration:    30 * time.Minute,
			IsPublished: published,
		}
	}

	t.Run("feature gate", func(t *testing.T) {
		gated := createTestCampus(t, "No Quiz High", "no-quiz-high", nil)
		_, err := campusSetFeature(gated.ID, campus.FeatureQuizzes, false)
		require.NoError(t, err)
		gstudent := createTestUser(t, gated.ID, "Gate Student", "gatestudent", "gate@noquiz.cd", "gate#Secret1", []string{user.RoleStudent})

		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes", getToken(t, gstudent))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		var resp httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "quizzes is disabled for this campus", resp.Error)
	})

	t.Run("students cannot create quizzes", func(t *testing.T) {
		body := marshallObj(t, newQuiz("Algebra sneak", true))
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes", studentToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var published, draft quiz.Quiz

	t.Run("teacher creates quizzes", func(t *testing.T) {
		body := marshallObj(t, newQuiz("Algebra basics", true))
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes", teacherToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &published))

		body = marshallObj(t, newQuiz("Geometry draft", false))
		req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes", teacherToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	})

	t.Run("students see published quizzes without answers", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes", studentToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp []quiz.Quiz
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, published.ID, resp[0].ID)
		for _, q := range resp[0].Questions {
			assert.Equal(t, -1, q.CorrectIndex)
		}
	})

	t.Run("students cannot fetch drafts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+draft.ID, studentToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("submit requires a live session", func(t *testing.T) {
		body := marshallObj(t, quiz.SubmitRequest{Answers: []int{1, 1}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+published.ID+"/submit", studentToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("live session flow", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+published.ID+"/start", teacherToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		var sess quiz.LiveSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
		assert.Equal(t, published.ID, sess.QuizID)

		req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+published.ID+"/join", studentToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var joined quiz.LiveSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
		assert.False(t, joined.Deadline.IsZero())

		body := marshallObj(t, quiz.SubmitRequest{Answers: []int{1, 0}})
		req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+published.ID+"/submit", studentToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		var sub quiz.Submission
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
		assert.Equal(t, student.ID, sub.StudentID)
		assert.Equal(t, 5, sub.Score) // first answer right, second wrong

		// one submission per student
		req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+published.ID+"/submit", studentToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
		var herr httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &herr))
		assert.Equal(t, "quiz already submitted", herr.Error)

		req, rec = newAuthRequest(http.MethodGet, "/v1/quizzes/"+published.ID+"/results", teacherToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var results []quiz.Submission
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		require.Len(t, results, 1)
		assert.Equal(t, sub.ID, results[0].ID)
	})
}

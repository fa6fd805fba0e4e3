package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/quiz"
)

type quizRepository struct {
	db *DB
}

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if qz.ID == "" {
		qz.ID = newID()
	}
	repo.db.quizzes[qz.ID] = &qz
	return qz, nil
}

func (repo *quizRepository) QueryQuizzes(ctx context.Context, filter *quiz.QueryFilter, ordering []core.DBOrdering) ([]quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var qzs []quiz.Quiz
	for _, qz := range repo.db.quizzes {
		if qz.IsDeleted {
			continue
		}
		if filter != nil {
			if filter.CampusID != "" && qz.CampusID != filter.CampusID {
				continue
			}
			if filter.ClassID != "" && qz.ClassID != filter.ClassID {
				continue
			}
			if filter.Published != nil && qz.IsPublished != *filter.Published {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(qz.Title), strings.ToLower(filter.Search)) {
				continue
			}
		}
		qzs = append(qzs, *qz)
	}
	sort.Slice(qzs, func(i, j int) bool { return qzs[i].ID < qzs[j].ID })
	return qzs, nil
}

func (repo *quizRepository) GetQuiz(ctx context.Context, campusID, id string) (quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	qz, ok := repo.db.quizzes[id]
	if !ok || qz.IsDeleted || qz.CampusID != campusID {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return *qz, nil
}

func (repo *quizRepository) UpdateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[qz.ID]; !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	repo.db.quizzes[qz.ID] = &qz
	return qz, nil
}

func (repo *quizRepository) CreateSubmission(ctx context.Context, sub quiz.Submission) (quiz.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if sub.ID == "" {
		sub.ID = newID()
	}
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *quizRepository) GetSubmission(ctx context.Context, quizID, studentID string) (quiz.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sub := range repo.db.submissions {
		if sub.QuizID == quizID && sub.StudentID == studentID {
			return *sub, nil
		}
	}
	return quiz.Submission{}, quiz.ErrSubmissionNotFound
}

func (repo *quizRepository) QuerySubmissions(ctx context.Context, quizID string) ([]quiz.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var subs []quiz.Submission
	for _, sub := range repo.db.submissions {
		if sub.QuizID == quizID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/quiz"
)

type quizLiveStore struct {
	client *redis.Client
}

func NewQuizLiveStore(client *redis.Client) quiz.LiveStore {
	return &quizLiveStore{client: client}
}

func quizKey(quizID string) string {
	return "quiz:live:" + quizID
}

func quizParticipantsKey(quizID string) string {
	return "quiz:live:" + quizID + ":participants"
}

func (s *quizLiveStore) StartSession(ctx context.Context, ses quiz.LiveSession, ttl time.Duration) error {
	data, err := json.Marshal(ses)
	if err != nil {
		return errors.Wrap(err, "marshalling live session")
	}
	return errors.Wrap(s.client.Set(ctx, quizKey(ses.QuizID), data, ttl).Err(), "starting live session")
}

func (s *quizLiveStore) GetSession(ctx context.Context, quizID string) (quiz.LiveSession, error) {
	data, err := s.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return quiz.LiveSession{}, quiz.ErrNoLiveSession
		}
		return quiz.LiveSession{}, errors.Wrap(err, "getting live session")
	}
	var ses quiz.LiveSession
	if err = json.Unmarshal(data, &ses); err != nil {
		return quiz.LiveSession{}, errors.Wrap(err, "unmarshalling live session")
	}
	return ses, nil
}

func (s *quizLiveStore) AddParticipant(ctx context.Context, quizID, studentID string) error {
	key := quizParticipantsKey(quizID)
	if err := s.client.SAdd(ctx, key, studentID).Err(); err != nil {
		return errors.Wrap(err, "adding participant")
	}
	ttl, err := s.client.TTL(ctx, quizKey(quizID)).Result()
	if err != nil || ttl <= 0 {
		return nil
	}
	return errors.Wrap(s.client.Expire(ctx, key, ttl).Err(), "setting participants TTL")
}

func (s *quizLiveStore) EndSession(ctx context.Context, quizID string) error {
	return errors.Wrap(s.client.Del(ctx, quizKey(quizID), quizParticipantsKey(quizID)).Err(), "ending live session")
}

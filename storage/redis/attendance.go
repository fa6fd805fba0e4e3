package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
)

type attendanceLiveStore struct {
	client *redis.Client
}

func NewAttendanceLiveStore(client *redis.Client) attendance.LiveStore {
	return &attendanceLiveStore{client: client}
}

func rollcallKey(sessionID string) string {
	return "rollcall:" + sessionID
}

func (s *attendanceLiveStore) OpenSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	key := rollcallKey(sessionID)
	// the marks hash is created lazily; reserve the key so the TTL applies
	if err := s.client.HSet(ctx, key, "_open", time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		return errors.Wrap(err, "opening live session")
	}
	return errors.Wrap(s.client.Expire(ctx, key, ttl).Err(), "setting live session TTL")
}

func (s *attendanceLiveStore) SetMark(ctx context.Context, sessionID, studentID string, mark attendance.Mark) error {
	data, err := json.Marshal(mark)
	if err != nil {
		return errors.Wrap(err, "marshalling mark")
	}
	return errors.Wrap(s.client.HSet(ctx, rollcallKey(sessionID), studentID, data).Err(), "setting mark")
}

func (s *attendanceLiveStore) Marks(ctx context.Context, sessionID string) (map[string]attendance.Mark, error) {
	entries, err := s.client.HGetAll(ctx, rollcallKey(sessionID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "getting marks")
	}
	marks := make(map[string]attendance.Mark, len(entries))
	for studentID, data := range entries {
		if studentID == "_open" {
			continue
		}
		var mark attendance.Mark
		if err = json.Unmarshal([]byte(data), &mark); err != nil {
			return nil, errors.Wrap(err, "unmarshalling mark")
		}
		marks[studentID] = mark
	}
	return marks, nil
}

func (s *attendanceLiveStore) CloseSession(ctx context.Context, sessionID string) error {
	return errors.Wrap(s.client.Del(ctx, rollcallKey(sessionID)).Err(), "closing live session")
}

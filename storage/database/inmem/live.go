package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/quiz"
)

// AttendanceLiveStore is an in-memory attendance.LiveStore; TTLs are ignored.
type AttendanceLiveStore struct {
	mutex sync.RWMutex
	marks map[string]map[string]attendance.Mark
}

func NewAttendanceLiveStore() *AttendanceLiveStore {
	return &AttendanceLiveStore{marks: make(map[string]map[string]attendance.Mark)}
}

func (s *AttendanceLiveStore) OpenSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.marks[sessionID] = make(map[string]attendance.Mark)
	return nil
}

func (s *AttendanceLiveStore) SetMark(ctx context.Context, sessionID, studentID string, mark attendance.Mark) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.marks[sessionID]; !ok {
		s.marks[sessionID] = make(map[string]attendance.Mark)
	}
	s.marks[sessionID][studentID] = mark
	return nil
}

func (s *AttendanceLiveStore) Marks(ctx context.Context, sessionID string) (map[string]attendance.Mark, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	marks := make(map[string]attendance.Mark, len(s.marks[sessionID]))
	for id, mark := range s.marks[sessionID] {
		marks[id] = mark
	}
	return marks, nil
}

func (s *AttendanceLiveStore) CloseSession(ctx context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.marks, sessionID)
	return nil
}

// QuizLiveStore is an in-memory quiz.LiveStore; TTLs are ignored.
type QuizLiveStore struct {
	mutex        sync.RWMutex
	sessions     map[string]quiz.LiveSession
	participants map[string]map[string]bool
}

func NewQuizLiveStore() *QuizLiveStore {
	return &QuizLiveStore{
		sessions:     make(map[string]quiz.LiveSession),
		participants: make(map[string]map[string]bool),
	}
}

func (s *QuizLiveStore) StartSession(ctx context.Context, ses quiz.LiveSession, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sessions[ses.QuizID] = ses
	s.participants[ses.QuizID] = make(map[string]bool)
	return nil
}

func (s *QuizLiveStore) GetSession(ctx context.Context, quizID string) (quiz.LiveSession, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ses, ok := s.sessions[quizID]
	if !ok {
		return quiz.LiveSession{}, quiz.ErrNoLiveSession
	}
	return ses, nil
}

func (s *QuizLiveStore) AddParticipant(ctx context.Context, quizID, studentID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.participants[quizID]; !ok {
		s.participants[quizID] = make(map[string]bool)
	}
	s.participants[quizID][studentID] = true
	return nil
}

func (s *QuizLiveStore) EndSession(ctx context.Context, quizID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.sessions, quizID)
	delete(s.participants, quizID)
	return nil
}

// DedupStore is an in-memory payment.DedupStore.
type DedupStore struct {
	mutex sync.Mutex
	seen  map[string]bool
}

func NewDedupStore() *DedupStore {
	return &DedupStore{seen: make(map[string]bool)}
}

func (s *DedupStore) MarkProcessed(ctx context.Context, gateway, eventID string, ttl time.Duration) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	key := gateway + ":" + eventID
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

// FailureCounter is an in-memory payment.FailureCounter; windows are ignored.
type FailureCounter struct {
	mutex   sync.Mutex
	counts  map[string]int
	flagged map[string]bool
}

func NewFailureCounter() *FailureCounter {
	return &FailureCounter{
		counts:  make(map[string]int),
		flagged: make(map[string]bool),
	}
}

func (c *FailureCounter) RecordFailure(ctx context.Context, ip string, window time.Duration) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.counts[ip]++
	return c.counts[ip], nil
}

func (c *FailureCounter) Flag(ctx context.Context, ip string, duration time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.flagged[ip] = true
	return nil
}

func (c *FailureCounter) Flagged(ctx context.Context, ip string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.flagged[ip], nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"edumind-service/internal/domain"
)

// QuizStore is a map-backed quiz store, useful for tests and demos.
type QuizStore struct {
	mu      sync.RWMutex
	clock   func() time.Time
	seq     int
	quizzes map[string]domain.StoredQuiz
}

func NewQuizStore() *QuizStore {
	return &QuizStore{clock: time.Now, quizzes: make(map[string]domain.StoredQuiz)}
}

func (s *QuizStore) Save(_ context.Context, rec domain.QuizRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if rec.Timestamp == "" {
		rec.Timestamp = now.Format(domain.TimestampLayout)
	}
	id := "quiz_" + rec.Timestamp
	if _, exists := s.quizzes[id]; exists {
		s.seq++
		id = fmt.Sprintf("%s_%d", id, s.seq)
	}
	rec.ID = id
	s.quizzes[id] = domain.StoredQuiz{Record: cloneRecord(rec), ModifiedAt: now}
	return id, nil
}

func (s *QuizStore) Load(_ context.Context, id string) (domain.QuizRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.quizzes[id]
	if !ok {
		return domain.QuizRecord{}, domain.ErrQuizNotFound
	}
	return cloneRecord(stored.Record), nil
}

func (s *QuizStore) Update(_ context.Context, id string, rec domain.QuizRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	rec.ID = id
	s.quizzes[id] = domain.StoredQuiz{Record: cloneRecord(rec), ModifiedAt: s.clock()}
	return nil
}

// List returns all quizzes, most recently modified first.
func (s *QuizStore) List(_ context.Context) ([]domain.StoredQuiz, error) {
	s.mu.RLock()
	out := make([]domain.StoredQuiz, 0, len(s.quizzes))
	for _, stored := range s.quizzes {
		stored.Record = cloneRecord(stored.Record)
		out = append(out, stored)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModifiedAt.Equal(out[j].ModifiedAt) {
			return out[i].Record.ID > out[j].Record.ID
		}
		return out[i].ModifiedAt.After(out[j].ModifiedAt)
	})
	return out, nil
}

// SetClock overrides the time source used for timestamps.
func (s *QuizStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	s.clock = clock
	s.mu.Unlock()
}

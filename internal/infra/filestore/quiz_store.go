package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"edumind-service/internal/domain"
	"edumind-service/internal/logging"
	"github.com/google/uuid"
)

const (
	filePrefix = "quiz_"
	fileExt    = ".json"
)

// QuizStore keeps one indented JSON document per quiz under dir. The quiz
// id is the file name without its extension.
type QuizStore struct {
	dir   string
	log   *logging.Logger
	clock func() time.Time

	mu sync.Mutex
}

func NewQuizStore(dir string, log *logging.Logger) (*QuizStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create quiz dir: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &QuizStore{dir: dir, log: log, clock: time.Now}, nil
}

// Save writes rec as a new file and returns its id. An empty Timestamp is
// filled with the current time.
func (s *QuizStore) Save(_ context.Context, rec domain.QuizRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp == "" {
		rec.Timestamp = s.clock().Format(domain.TimestampLayout)
	}
	id := filePrefix + rec.Timestamp
	if _, err := os.Stat(s.path(id)); err == nil {
		id = id + "_" + uuid.NewString()[:8]
	}
	if err := s.write(id, rec); err != nil {
		return "", err
	}
	s.log.Info("quiz saved", "path", s.path(id))
	return id, nil
}

func (s *QuizStore) Load(_ context.Context, id string) (domain.QuizRecord, error) {
	if !validID(id) {
		return domain.QuizRecord{}, domain.ErrQuizNotFound
	}
	return s.read(id)
}

// Update overwrites an existing quiz.
func (s *QuizStore) Update(_ context.Context, id string, rec domain.QuizRecord) error {
	if !validID(id) {
		return domain.ErrQuizNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path(id)); err != nil {
		return domain.ErrQuizNotFound
	}
	return s.write(id, rec)
}

// List returns every readable quiz, most recently modified first. Files
// that cannot be decoded are logged and skipped.
func (s *QuizStore) List(_ context.Context) ([]domain.StoredQuiz, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	var out []domain.StoredQuiz
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), fileExt)
		rec, err := s.read(id)
		if err != nil {
			s.log.Warn("skipping unreadable quiz file", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, domain.StoredQuiz{Record: rec, ModifiedAt: info.ModTime()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModifiedAt.After(out[j].ModifiedAt)
	})
	return out, nil
}

// Migrate rewrites quiz files that still hold a bare question array into
// the {"questions", "timestamp"} document form. It returns the number of
// files upgraded.
func (s *QuizStore) Migrate(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list quizzes: %w", err)
	}
	migrated := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), fileExt)
		data, err := os.ReadFile(s.path(id))
		if err != nil {
			s.log.Error("error migrating quiz file", "file", entry.Name(), "error", err)
			continue
		}
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			s.log.Error("corrupted quiz file", "file", entry.Name(), "error", err)
			continue
		}
		switch v := raw.(type) {
		case []any:
			var questions []domain.Question
			if err := json.Unmarshal(data, &questions); err != nil {
				s.log.Error("error migrating quiz file", "file", entry.Name(), "error", err)
				continue
			}
			rec := domain.QuizRecord{Questions: questions, Timestamp: timestampFromID(id)}
			if err := s.write(id, rec); err != nil {
				s.log.Error("error migrating quiz file", "file", entry.Name(), "error", err)
				continue
			}
			s.log.Info("migrated quiz file to document format", "file", entry.Name())
			migrated++
		case map[string]any:
			if _, ok := v["questions"]; !ok {
				s.log.Warn("invalid quiz file format, skipping migration", "file", entry.Name())
			}
		default:
			s.log.Warn("invalid quiz file format, skipping migration", "file", entry.Name())
		}
	}
	return migrated, nil
}

func (s *QuizStore) read(id string) (domain.QuizRecord, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return domain.QuizRecord{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizRecord{}, fmt.Errorf("read quiz %s: %w", id, err)
	}
	rec, err := decodeRecord(data, id)
	if err != nil {
		return domain.QuizRecord{}, fmt.Errorf("decode quiz %s: %w", id, err)
	}
	rec.ID = id
	return rec, nil
}

func (s *QuizStore) write(id string, rec domain.QuizRecord) error {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	tmp := s.path(id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write quiz: %w", err)
	}
	if err := os.Rename(tmp, s.path(id)); err != nil {
		return fmt.Errorf("write quiz: %w", err)
	}
	return nil
}

func (s *QuizStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// decodeRecord accepts both the document form and the legacy bare array.
func decodeRecord(data []byte, id string) (domain.QuizRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var questions []domain.Question
		if err := json.Unmarshal(trimmed, &questions); err != nil {
			return domain.QuizRecord{}, err
		}
		return domain.QuizRecord{Questions: questions, Timestamp: timestampFromID(id)}, nil
	}
	var rec domain.QuizRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return domain.QuizRecord{}, err
	}
	if rec.Questions == nil {
		return domain.QuizRecord{}, errors.New("missing questions")
	}
	if rec.Timestamp == "" {
		rec.Timestamp = timestampFromID(id)
	}
	return rec, nil
}

// timestampFromID recovers the creation timestamp embedded in a file name
// such as quiz_2024-05-01_10-30-00 or quiz_2024-05-01_10-30-00_ab12cd34.
func timestampFromID(id string) string {
	ts := strings.TrimPrefix(id, filePrefix)
	if len(ts) >= len(domain.TimestampLayout) {
		return ts[:len(domain.TimestampLayout)]
	}
	return ts
}

func validID(id string) bool {
	return id != "" && filepath.Base(id) == id && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

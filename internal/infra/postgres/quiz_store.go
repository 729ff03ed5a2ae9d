package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"edumind-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizStore persists quiz records as JSONB rows in the quizzes table.
type QuizStore struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool, clock: time.Now}
}

func (s *QuizStore) Save(ctx context.Context, rec domain.QuizRecord) (string, error) {
	if rec.Timestamp == "" {
		rec.Timestamp = s.clock().Format(domain.TimestampLayout)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal quiz: %w", err)
	}
	id := "quiz_" + rec.Timestamp
	for attempt := 0; attempt < 3; attempt++ {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO quizzes (id, data) VALUES ($1, $2::jsonb) ON CONFLICT (id) DO NOTHING`, id, string(raw))
		if err != nil {
			return "", fmt.Errorf("save quiz: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return id, nil
		}
		id = "quiz_" + rec.Timestamp + "_" + uuid.NewString()[:8]
	}
	return "", fmt.Errorf("save quiz: could not allocate id for %s", rec.Timestamp)
}

func (s *QuizStore) Load(ctx context.Context, id string) (domain.QuizRecord, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizRecord{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizRecord{}, fmt.Errorf("load quiz: %w", err)
	}
	var rec domain.QuizRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.QuizRecord{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	rec.ID = id
	return rec, nil
}

func (s *QuizStore) Update(ctx context.Context, id string, rec domain.QuizRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET data=$2::jsonb, updated_at=now() WHERE id=$1`, id, string(raw))
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) List(ctx context.Context) ([]domain.StoredQuiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data, updated_at FROM quizzes ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredQuiz
	for rows.Next() {
		var (
			id      string
			raw     []byte
			updated time.Time
		)
		if err := rows.Scan(&id, &raw, &updated); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var rec domain.QuizRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		rec.ID = id
		out = append(out, domain.StoredQuiz{Record: rec, ModifiedAt: updated})
	}
	return out, rows.Err()
}

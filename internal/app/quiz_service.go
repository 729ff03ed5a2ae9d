package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"edumind-service/internal/domain"
	"edumind-service/internal/logging"
	"edumind-service/internal/quiz"
)

const (
	MinQuestions      = 1
	MaxQuestions      = 50
	MaxMaterialLength = 4000
	DefaultDifficulty = "medium"
)

// QuizStore persists generated quizzes (file, Postgres, in-memory, cached).
type QuizStore interface {
	Save(ctx context.Context, rec domain.QuizRecord) (string, error)
	Load(ctx context.Context, id string) (domain.QuizRecord, error)
	Update(ctx context.Context, id string, rec domain.QuizRecord) error
	List(ctx context.Context) ([]domain.StoredQuiz, error)
}

// QuizService contains the quiz generation and grading use cases.
type QuizService struct {
	store     QuizStore
	gen       quiz.Generator
	assembler *quiz.Assembler
	feed      *ScoreFeed
	log       *logging.Logger
	clock     func() time.Time

	// submitMu serializes the load-modify-save cycle of answer submission.
	submitMu sync.Mutex
}

// NewQuizService wires the assembler with opts, e.g. quiz.WithMaxRetries.
func NewQuizService(store QuizStore, gen quiz.Generator, log *logging.Logger, opts ...quiz.Option) *QuizService {
	if log == nil {
		log = logging.Nop()
	}
	return &QuizService{
		store:     store,
		gen:       gen,
		assembler: quiz.NewAssembler(gen, log, opts...),
		feed:      NewScoreFeed(),
		log:       log,
		clock:     time.Now,
	}
}

// MapQuizType converts the client's question_type label to a QuestionType.
// Unknown labels fall back to mcq.
func MapQuizType(label string) domain.QuestionType {
	switch label {
	case "true-false", string(domain.TypeTrueFalse):
		return domain.TypeTrueFalse
	case "fill-in-the-blank", string(domain.TypeFillIn):
		return domain.TypeFillIn
	default:
		return domain.TypeMCQ
	}
}

// Generate runs the pipeline for req, assembles the questions and stores
// the resulting quiz.
func (s *QuizService) Generate(ctx context.Context, req domain.GenerationRequest) (domain.QuizRecord, error) {
	req, err := s.normalize(req)
	if err != nil {
		return domain.QuizRecord{}, err
	}
	s.log.Info("generating quiz",
		"type", req.QuizType, "difficulty", req.Difficulty, "num_questions", req.NumQuestions, "material", preview(req.Material, 100))

	start := s.clock()
	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		return domain.QuizRecord{}, fmt.Errorf("generate quiz: %w", err)
	}
	s.log.Info("quiz generation finished", "seconds", s.clock().Sub(start).Seconds())

	questions := s.assembler.Assemble(ctx, raw, req)
	if len(questions) == 0 {
		return domain.QuizRecord{}, domain.ErrNoQuestions
	}

	rec := domain.QuizRecord{
		Questions: questions,
		Timestamp: s.clock().Format(domain.TimestampLayout),
	}
	id, err := s.store.Save(ctx, rec)
	if err != nil {
		return domain.QuizRecord{}, fmt.Errorf("save quiz: %w", err)
	}
	rec.ID = id
	s.log.Info("quiz generated", "quiz_id", id, "questions", len(questions))
	return rec, nil
}

func (s *QuizService) normalize(req domain.GenerationRequest) (domain.GenerationRequest, error) {
	if strings.TrimSpace(req.Material) == "" {
		return req, fmt.Errorf("%w: no study material provided", domain.ErrInvalidInput)
	}
	if req.NumQuestions < MinQuestions || req.NumQuestions > MaxQuestions {
		return req, fmt.Errorf("%w: number of questions must be between %d and %d", domain.ErrInvalidInput, MinQuestions, MaxQuestions)
	}
	if !req.QuizType.Valid() {
		req.QuizType = domain.TypeMCQ
	}
	if req.Difficulty == "" {
		req.Difficulty = DefaultDifficulty
	}
	if utf8.RuneCountInString(req.Material) > MaxMaterialLength {
		req.Material = string([]rune(req.Material)[:MaxMaterialLength])
		s.log.Warn("material truncated", "limit", MaxMaterialLength)
	}
	return req, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, id string) (domain.QuizRecord, error) {
	return s.store.Load(ctx, id)
}

// SubmitAnswer records an answer for one question, scores it by
// case-insensitive comparison with the correct answer and recomputes the
// quiz totals.
func (s *QuizService) SubmitAnswer(ctx context.Context, quizID string, index int, answer string) (domain.SubmissionResult, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	rec, err := s.store.Load(ctx, quizID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if index < 0 || index >= len(rec.Questions) {
		return domain.SubmissionResult{}, domain.ErrInvalidQuestionIndex
	}

	q := rec.Questions[index]
	userAnswer := answer
	score := 0
	if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)) {
		score = 1
	}
	q.UserAnswer = &userAnswer
	q.Score = &score
	rec.Questions[index] = q

	total, pct := totals(rec.Questions)
	rec.TotalScore = &total
	rec.Percentage = &pct

	if err := s.store.Update(ctx, quizID, rec); err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("update quiz: %w", err)
	}
	s.log.Info("answer recorded", "quiz_id", quizID, "question_index", index, "score", score)

	res := domain.SubmissionResult{Correct: score == 1, TotalScore: total, Percentage: pct}
	s.feed.Publish(quizID, res)
	return res, nil
}

// Subscribe streams submission results for a quiz. The caller must invoke
// the returned cancel function.
func (s *QuizService) Subscribe(quizID string) (<-chan domain.SubmissionResult, func()) {
	return s.feed.Subscribe(quizID)
}

func totals(questions []domain.Question) (int, float64) {
	total := 0
	for _, q := range questions {
		if q.Score != nil {
			total += *q.Score
		}
	}
	if len(questions) == 0 {
		return total, 0
	}
	return total, float64(total) / float64(len(questions)) * 100
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

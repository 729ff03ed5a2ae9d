package quiz

import (
	"context"

	"edumind-service/internal/domain"
	"edumind-service/internal/logging"
)

// DefaultMaxRetries bounds the extra generation calls made on a shortfall.
const DefaultMaxRetries = 3

// Generator produces a raw question listing for a request.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// Assembler turns raw model output into a deduplicated question list of the
// requested size, asking the generator for the missing questions when the
// first response falls short.
type Assembler struct {
	gen        Generator
	log        *logging.Logger
	maxRetries int
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(a *Assembler) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

// NewAssembler returns an Assembler that retries up to DefaultMaxRetries
// times unless an Option says otherwise. A nil log discards output.
func NewAssembler(gen Generator, log *logging.Logger, opts ...Option) *Assembler {
	if log == nil {
		log = logging.Nop()
	}
	a := &Assembler{gen: gen, log: log, maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble parses raw and tops it up through the generator until
// req.NumQuestions distinct questions are collected or the retry budget is
// spent. Retries run one after another because each asks for the remaining
// shortfall. The result never exceeds req.NumQuestions; an empty result
// means nothing usable was produced.
func (a *Assembler) Assemble(ctx context.Context, raw string, req domain.GenerationRequest) (out []domain.Question) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("quiz assembly failed", "panic", r)
			out = []domain.Question{}
		}
	}()

	want := req.NumQuestions
	if want <= 0 {
		return []domain.Question{}
	}

	set := newQuestionSet()
	a.mergeParsed(set, raw, req.QuizType)

	if set.len() < want && !HasSentinel(raw) {
		a.log.Warn("generated fewer questions than requested, retrying",
			"got", set.len(), "want", want, "max_attempts", a.maxRetries)
		a.retry(ctx, set, req)
	}
	if set.len() < want {
		a.log.Warn("question shortfall", "got", set.len(), "want", want, "type", req.QuizType)
	}

	result := Dedupe(set.items)
	if len(result) > want {
		result = result[:want]
	}
	if result == nil {
		result = []domain.Question{}
	}
	return result
}

func (a *Assembler) retry(ctx context.Context, set *questionSet, req domain.GenerationRequest) {
	if a.gen == nil {
		return
	}
	want := req.NumQuestions
	for attempt := 1; attempt <= a.maxRetries && set.len() < want; attempt++ {
		retryReq := req
		retryReq.NumQuestions = want - set.len()

		resp, err := a.gen.Generate(ctx, retryReq)
		if err != nil {
			a.log.Warn("retry generation failed", "attempt", attempt, "error", err)
			continue
		}
		added := a.mergeParsed(set, resp, req.QuizType)
		a.log.Info("retry attempt finished",
			"attempt", attempt, "requested", retryReq.NumQuestions, "added", added, "total", set.len())

		if HasSentinel(resp) {
			a.log.Warn("generator reported it cannot produce more questions", "attempt", attempt)
			return
		}
	}
}

func (a *Assembler) mergeParsed(set *questionSet, raw string, qt domain.QuestionType) int {
	res := Parse(raw, qt)
	if res.Discarded > 0 {
		a.log.Warn("discarded questions with malformed answers", "count", res.Discarded, "type", qt)
	}
	for _, q := range res.Questions {
		a.log.Debug("parsed question", "type", q.Type, "question", q.Question, "answer", q.CorrectAnswer)
	}
	return set.merge(res.Questions)
}

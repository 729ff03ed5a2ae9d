package quiz

import (
	"strings"

	"edumind-service/internal/domain"
)

// ParseResult is the outcome of parsing one raw model response.
type ParseResult struct {
	Questions []domain.Question
	// Discarded counts questions dropped because of a malformed answer line.
	Discarded int
}

// Parse extracts every well-formed question of type qt from raw, in the
// order they appear. It never fails; unusable lines are skipped.
func Parse(raw string, qt domain.QuestionType) ParseResult {
	var res ParseResult
	acc := newAccumulator(qt)
	for _, line := range strings.Split(raw, "\n") {
		q, ok, discarded := acc.apply(classify(line, qt))
		if ok {
			res.Questions = append(res.Questions, q)
		}
		if discarded {
			res.Discarded++
		}
	}
	if q, ok := acc.finish(); ok {
		res.Questions = append(res.Questions, q)
	}
	return res
}

var sentinelPhrases = []string{
	"Error: Unable to generate exact number of valid MCQs",
	"Error: Unable to generate exact number of questions",
}

// HasSentinel reports whether raw contains the pipeline's own declaration
// that it could not produce the requested questions.
func HasSentinel(raw string) bool {
	for _, phrase := range sentinelPhrases {
		if strings.Contains(raw, phrase) {
			return true
		}
	}
	return false
}

// questionSet accumulates questions keeping the first occurrence of each
// question text.
type questionSet struct {
	seen  map[string]struct{}
	items []domain.Question
}

func newQuestionSet() *questionSet {
	return &questionSet{seen: make(map[string]struct{})}
}

// merge appends the questions whose text is not already present and
// returns how many were added.
func (s *questionSet) merge(qs []domain.Question) int {
	added := 0
	for _, q := range qs {
		if _, dup := s.seen[q.Question]; dup {
			continue
		}
		s.seen[q.Question] = struct{}{}
		s.items = append(s.items, q)
		added++
	}
	return added
}

func (s *questionSet) len() int { return len(s.items) }

// Dedupe returns qs without later repeats of a question text.
func Dedupe(qs []domain.Question) []domain.Question {
	set := newQuestionSet()
	set.merge(qs)
	return set.items
}

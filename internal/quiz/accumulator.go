package quiz

import "edumind-service/internal/domain"

// state tracks how far the open question has progressed.
type state int

const (
	stateIdle state = iota
	stateAwaitingOptions
	stateAwaitingAnswer
	stateReady
)

func (s state) String() string {
	switch s {
	case stateAwaitingOptions:
		return "awaiting_options"
	case stateAwaitingAnswer:
		return "awaiting_answer"
	case stateReady:
		return "ready"
	default:
		return "idle"
	}
}

const mcqOptionCount = 4

// accumulator builds one question at a time from classified line events.
type accumulator struct {
	qt      domain.QuestionType
	state   state
	text    string
	options []string
	answer  string
}

func newAccumulator(qt domain.QuestionType) *accumulator {
	return &accumulator{qt: qt}
}

// apply feeds one event into the accumulator. When the event closes out the
// previous question and that question passes the flush rule, it is returned
// with ok set. discarded reports that an open question was dropped because
// of a malformed answer line.
func (a *accumulator) apply(ev lineEvent) (q domain.Question, ok bool, discarded bool) {
	switch ev.kind {
	case lineQuestionStart:
		q, ok = finalize(a.snapshot())
		a.open(ev.text)
	case lineOption:
		if a.state == stateIdle || len(a.options) >= mcqOptionCount {
			return
		}
		a.options = append(a.options, ev.text)
		a.settle()
	case lineAnswer:
		if a.state == stateIdle {
			return
		}
		a.answer = ev.text
		a.settle()
	case lineMalformedAnswer:
		if a.state == stateIdle {
			return
		}
		a.reset()
		discarded = true
	}
	return
}

// finish flushes whatever is still open at end of input.
func (a *accumulator) finish() (domain.Question, bool) {
	q, ok := finalize(a.snapshot())
	a.reset()
	return q, ok
}

func (a *accumulator) open(text string) {
	a.reset()
	a.text = text
	a.settle()
}

func (a *accumulator) reset() {
	a.state = stateIdle
	a.text = ""
	a.options = nil
	a.answer = ""
}

// settle recomputes the state of an open question from its collected parts.
func (a *accumulator) settle() {
	switch {
	case a.qt == domain.TypeMCQ && len(a.options) < mcqOptionCount:
		a.state = stateAwaitingOptions
	case a.answer == "":
		a.state = stateAwaitingAnswer
	default:
		a.state = stateReady
	}
}

// pending is an immutable view of the open question.
type pending struct {
	qt      domain.QuestionType
	state   state
	text    string
	options []string
	answer  string
}

func (a *accumulator) snapshot() pending {
	return pending{
		qt:      a.qt,
		state:   a.state,
		text:    a.text,
		options: append([]string(nil), a.options...),
		answer:  a.answer,
	}
}

// finalize applies the flush rule: non-empty text, a captured answer and,
// for mcq, exactly four options and an answer letter inside a–d. The mcq
// correct answer is stored as the option text the letter points at.
func finalize(p pending) (domain.Question, bool) {
	if p.state != stateReady || p.text == "" || p.answer == "" {
		return domain.Question{}, false
	}
	q := domain.Question{Type: p.qt, Question: p.text}
	switch p.qt {
	case domain.TypeMCQ:
		if len(p.options) != mcqOptionCount {
			return domain.Question{}, false
		}
		idx, ok := optionIndex(p.answer)
		if !ok {
			return domain.Question{}, false
		}
		q.Options = p.options
		q.CorrectAnswer = p.options[idx]
	case domain.TypeTrueFalse, domain.TypeFillIn:
		q.CorrectAnswer = p.answer
	default:
		return domain.Question{}, false
	}
	return q, true
}

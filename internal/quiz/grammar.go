package quiz

import (
	"regexp"
	"strings"

	"edumind-service/internal/domain"
)

// lineKind is the class a single trimmed line of model output falls into.
type lineKind int

const (
	lineIgnored lineKind = iota
	lineQuestionStart
	lineOption
	lineAnswer
	lineMalformedAnswer
)

// lineEvent is a classified line with its extracted payload.
type lineEvent struct {
	kind lineKind
	text string
}

const answerPrefix = "answer:"

var (
	questionStartRe = regexp.MustCompile(`^\d+\.\s*(.*?)(?:\s*_+)?$`)
	optionRe        = regexp.MustCompile(`^([a-d])\)\s*(.+?)$`)
	mcqAnswerRe     = regexp.MustCompile(`(?i)^([a-d])\)?$`)
	trueFalseRe     = regexp.MustCompile(`(?i)^(true|false)$`)
)

// classify maps one line to an event for the given quiz type. Blank lines
// and lines that fit no class for the type are reported as lineIgnored.
func classify(line string, qt domain.QuestionType) lineEvent {
	line = strings.TrimSpace(line)
	if line == "" {
		return lineEvent{kind: lineIgnored}
	}

	if m := questionStartRe.FindStringSubmatch(line); m != nil {
		return lineEvent{kind: lineQuestionStart, text: strings.TrimSpace(m[1])}
	}

	if len(line) >= len(answerPrefix) && strings.EqualFold(line[:len(answerPrefix)], answerPrefix) {
		payload := strings.TrimSpace(line[len(answerPrefix):])
		if answer, ok := parseAnswer(payload, qt); ok {
			return lineEvent{kind: lineAnswer, text: answer}
		}
		return lineEvent{kind: lineMalformedAnswer, text: payload}
	}

	if qt == domain.TypeMCQ {
		if m := optionRe.FindStringSubmatch(line); m != nil {
			return lineEvent{kind: lineOption, text: strings.TrimSpace(m[2])}
		}
	}
	return lineEvent{kind: lineIgnored}
}

// parseAnswer validates an answer payload and returns its normalized form:
// a bare lower-case letter for mcq, "True"/"False" for true_false and the
// trimmed text for fill_in_the_blank.
func parseAnswer(payload string, qt domain.QuestionType) (string, bool) {
	switch qt {
	case domain.TypeMCQ:
		m := mcqAnswerRe.FindStringSubmatch(payload)
		if m == nil {
			return "", false
		}
		return strings.ToLower(m[1]), true
	case domain.TypeTrueFalse:
		m := trueFalseRe.FindStringSubmatch(payload)
		if m == nil {
			return "", false
		}
		if strings.EqualFold(m[1], "true") {
			return "True", true
		}
		return "False", true
	case domain.TypeFillIn:
		if payload == "" {
			return "", false
		}
		return payload, true
	}
	return "", false
}

// optionIndex maps an answer letter to its option slot.
func optionIndex(letter string) (int, bool) {
	if len(letter) != 1 || letter[0] < 'a' || letter[0] > 'd' {
		return 0, false
	}
	return int(letter[0] - 'a'), true
}

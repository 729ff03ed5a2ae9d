package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"edumind-service/internal/domain"
)

type scriptedGenerator struct {
	responses []string
	errs      []error
	requested []int
	calls     int
}

func (g *scriptedGenerator) Generate(_ context.Context, req domain.GenerationRequest) (string, error) {
	g.requested = append(g.requested, req.NumQuestions)
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if len(g.responses) == 0 {
		return "", nil
	}
	if i >= len(g.responses) {
		return g.responses[len(g.responses)-1], nil
	}
	return g.responses[i], nil
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, domain.GenerationRequest) (string, error) {
	panic("boom")
}

func tfBlock(texts ...string) string {
	var b strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&b, "%d. %s\nAnswer: True\n", i+1, text)
	}
	return b.String()
}

func mcqRequest(n int) domain.GenerationRequest {
	return domain.GenerationRequest{Material: "m", QuizType: domain.TypeMCQ, NumQuestions: n, Difficulty: "medium"}
}

func TestAssembleTruncatesInOrder(t *testing.T) {
	gen := &scriptedGenerator{}
	a := NewAssembler(gen, nil)
	raw := tfBlock("A", "B", "C")

	got := a.Assemble(context.Background(), raw, domain.GenerationRequest{QuizType: domain.TypeTrueFalse, NumQuestions: 2})
	if len(got) != 2 || got[0].Question != "A" || got[1].Question != "B" {
		t.Fatalf("expected [A B], got %+v", got)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no retries, got %d", gen.calls)
	}
}

func TestAssembleShortfallAfterRetries(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{twoMCQs}}
	a := NewAssembler(gen, nil)

	got := a.Assemble(context.Background(), twoMCQs, mcqRequest(5))
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 retries, got %d", gen.calls)
	}
	for _, n := range gen.requested {
		if n != 3 {
			t.Fatalf("expected each retry to request the shortfall of 3, got %v", gen.requested)
		}
	}
}

func TestAssembleSentinelSkipsRetries(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{twoMCQs}}
	a := NewAssembler(gen, nil)

	got := a.Assemble(context.Background(), "Error: Unable to generate exact number of valid MCQs", mcqRequest(3))
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
	if got == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generator calls, got %d", gen.calls)
	}
}

func TestAssembleRetryRequestsRemainingCount(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{tfBlock("B"), tfBlock("C")}}
	a := NewAssembler(gen, nil)
	req := domain.GenerationRequest{QuizType: domain.TypeTrueFalse, NumQuestions: 3}

	got := a.Assemble(context.Background(), tfBlock("A"), req)
	if len(got) != 3 || got[2].Question != "C" {
		t.Fatalf("expected A B C, got %+v", got)
	}
	if len(gen.requested) != 2 || gen.requested[0] != 2 || gen.requested[1] != 1 {
		t.Fatalf("expected requests [2 1], got %v", gen.requested)
	}
}

func TestAssembleDedupesAcrossRetries(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{tfBlock("A", "B")}}
	a := NewAssembler(gen, nil)
	req := domain.GenerationRequest{QuizType: domain.TypeTrueFalse, NumQuestions: 4}

	got := a.Assemble(context.Background(), tfBlock("A", "A"), req)
	if len(got) != 2 || got[0].Question != "A" || got[1].Question != "B" {
		t.Fatalf("expected A B, got %+v", got)
	}
}

func TestAssembleStopsOnSentinelInRetry(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"Error: Unable to generate exact number of questions"}}
	a := NewAssembler(gen, nil)
	req := domain.GenerationRequest{QuizType: domain.TypeTrueFalse, NumQuestions: 3}

	got := a.Assemble(context.Background(), tfBlock("A"), req)
	if len(got) != 1 {
		t.Fatalf("expected 1 question, got %+v", got)
	}
	if gen.calls != 1 {
		t.Fatalf("expected retries to stop after sentinel, got %d calls", gen.calls)
	}
}

func TestAssembleGeneratorErrorUsesAttempt(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"", tfBlock("B")},
		errs:      []error{errors.New("unavailable")},
	}
	a := NewAssembler(gen, nil)
	req := domain.GenerationRequest{QuizType: domain.TypeTrueFalse, NumQuestions: 2}

	got := a.Assemble(context.Background(), tfBlock("A"), req)
	if len(got) != 2 {
		t.Fatalf("expected recovery on second attempt, got %+v", got)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", gen.calls)
	}
}

func TestAssembleRecoversFromPanic(t *testing.T) {
	a := NewAssembler(panickingGenerator{}, nil)
	got := a.Assemble(context.Background(), twoMCQs, mcqRequest(5))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %+v", got)
	}
}

func TestAssembleWithoutRetries(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{twoMCQs}}
	a := NewAssembler(gen, nil, WithMaxRetries(0))
	got := a.Assemble(context.Background(), "", mcqRequest(2))
	if len(got) != 0 || gen.calls != 0 {
		t.Fatalf("expected no questions and no calls, got %d questions %d calls", len(got), gen.calls)
	}
}

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edumind-service/internal/domain"
	"edumind-service/internal/logging"
)

// ChatModel answers questions and summarizes text.
type ChatModel interface {
	Chat(ctx context.Context, question string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

type ChatService struct {
	model ChatModel
	log   *logging.Logger
	clock func() time.Time
}

func NewChatService(model ChatModel, log *logging.Logger) *ChatService {
	if log == nil {
		log = logging.Nop()
	}
	return &ChatService{model: model, log: log, clock: time.Now}
}

// Ask routes a question to the summarizer when it mentions "summarize" or
// "summary", passing only the text after the first colon. Everything else
// goes to the chatbot.
func (s *ChatService) Ask(ctx context.Context, question string) (domain.ChatReply, error) {
	if strings.TrimSpace(question) == "" {
		return domain.ChatReply{}, fmt.Errorf("%w: 'question' field is required", domain.ErrInvalidInput)
	}
	s.log.Info("received chat request", "question", question)

	var (
		response string
		err      error
	)
	if isSummaryRequest(question) {
		response, err = s.model.Summarize(ctx, summaryText(question))
	} else {
		response, err = s.model.Chat(ctx, question)
	}
	if err != nil {
		s.log.Error("chat pipeline failed", "error", err)
		return domain.ChatReply{}, err
	}
	s.log.Info("chat pipeline response", "chars", len(response))
	return domain.ChatReply{
		Response:  response,
		Timestamp: s.clock().Format("2006-01-02T15:04:05.000000"),
	}, nil
}

func isSummaryRequest(question string) bool {
	q := strings.ToLower(question)
	return strings.Contains(q, "summarize") || strings.Contains(q, "summary")
}

func summaryText(question string) string {
	if i := strings.Index(question, ":"); i >= 0 {
		return strings.TrimSpace(question[i+1:])
	}
	return strings.TrimSpace(question)
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"edumind-service/internal/domain"
	"edumind-service/internal/logging"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL     = "http://127.0.0.1:11434/v1"
	DefaultModel       = "mistral:latest"
	DefaultTemperature = 0.7
)

// Config points the client at an OpenAI compatible endpoint. Ollama serves
// one under /v1 and ignores the API key.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
}

// Client runs the quiz, chat and summary prompts against a chat completion model.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	log         *logging.Logger
}

func NewClient(cfg Config, log *logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	if log == nil {
		log = logging.Nop()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		log:         log,
	}
}

// Generate returns the raw question listing for req.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	c.log.Info("requesting questions", "type", req.QuizType, "count", req.NumQuestions, "difficulty", req.Difficulty)
	out, err := c.complete(ctx, buildQuizPrompt(req))
	if err != nil {
		return "", err
	}
	c.log.Debug("raw generation response", "response", out)
	return out, nil
}

// Chat answers a free-form student question.
func (c *Client) Chat(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, buildChatPrompt(question))
}

// Summarize condenses text into two paragraphs.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, buildSummaryPrompt(text))
}

// Ping checks that the model endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPipelineUnavailable, err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: c.temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPipelineUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrPipelineUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

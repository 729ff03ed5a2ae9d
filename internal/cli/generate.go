package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"edumind-service/internal/app"
	"edumind-service/internal/config"
	"edumind-service/internal/domain"
	"edumind-service/internal/infra/extract"
	"edumind-service/internal/infra/filestore"
	"edumind-service/internal/infra/llm"
	"edumind-service/internal/infra/memory"
	"edumind-service/internal/logging"
	"edumind-service/internal/quiz"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	materialFile string
	quizType     string
	count        int
	difficulty   string
	save         bool
	verbose      bool
	timeout      time.Duration
}

// NewGenerateCmd runs a single quiz generation and prints the result as JSON.
func NewGenerateCmd(configPath *string) *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one quiz from a material file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runGenerate(ctx, cmd, *configPath, opts)
		},
	}
	cmd.Flags().StringVar(&opts.materialFile, "material-file", "", "study material (.txt, .md, .docx or .pdf)")
	cmd.Flags().StringVar(&opts.quizType, "type", "mcq", "mcq, true_false or fill_in_the_blank (client labels accepted)")
	cmd.Flags().IntVar(&opts.count, "count", 5, "number of questions")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", app.DefaultDifficulty, "easy, medium or hard")
	cmd.Flags().BoolVar(&opts.save, "save", false, "store the quiz in the configured quiz directory")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "log to stdout")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall generation timeout")
	_ = cmd.MarkFlagRequired("material-file")
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, configPath string, opts generateOptions) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.Nop()
	if opts.verbose {
		if log, err = logging.New(cfg.Log.Mode); err != nil {
			return err
		}
		defer log.Sync()
	}

	material, err := readMaterial(opts.materialFile, log)
	if err != nil {
		return err
	}

	var store app.QuizStore = memory.NewQuizStore()
	if opts.save {
		if store, err = filestore.NewQuizStore(cfg.Storage.QuizDir, log); err != nil {
			return err
		}
	}

	client := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	}, log)
	service := app.NewQuizService(store, client, log, quiz.WithMaxRetries(cfg.Quiz.MaxRetries))

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	rec, err := service.Generate(ctx, domain.GenerationRequest{
		Material:     material,
		QuizType:     app.MapQuizType(opts.quizType),
		NumQuestions: opts.count,
		Difficulty:   opts.difficulty,
	})
	if err != nil {
		return err
	}

	out := struct {
		QuizID    string            `json:"quiz_id,omitempty"`
		Questions []domain.Question `json:"questions"`
	}{Questions: rec.Questions}
	if opts.save {
		out.QuizID = rec.ID
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "    ")
	return enc.Encode(out)
}

func readMaterial(path string, log *logging.Logger) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read material: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx", ".pdf":
		return extract.New(log).Extract(filepath.Base(path), data)
	default:
		return string(data), nil
	}
}

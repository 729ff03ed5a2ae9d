package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"edumind-service/internal/app"
	"edumind-service/internal/config"
	"edumind-service/internal/infra/filestore"
	"edumind-service/internal/infra/llm"
	"edumind-service/internal/infra/memory"
	mongostore "edumind-service/internal/infra/mongo"
	pgstore "edumind-service/internal/infra/postgres"
	rediscache "edumind-service/internal/infra/redis"
	"edumind-service/internal/logging"
	"edumind-service/internal/quiz"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	quizLogFile = "quiz_logs.log"
	chatLogFile = "chat_logs.log"
)

// stack is the fully wired service graph shared by the subcommands.
type stack struct {
	cfg     config.Config
	quizLog *logging.Logger
	chatLog *logging.Logger

	llm       *llm.Client
	store     app.QuizStore
	users     app.UserRepository
	usersPing interface{ Ping(context.Context) error }
	tokens    app.ResetTokenStore

	quiz      *app.QuizService
	chat      *app.ChatService
	auth      *app.AuthService
	dashboard *app.DashboardService

	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newLoggers(cfg config.Config) (*logging.Logger, *logging.Logger, error) {
	quizLog, err := logging.NewFile("quiz", cfg.Storage.LogDir, quizLogFile, cfg.Log.Mode)
	if err != nil {
		return nil, nil, err
	}
	chatLog, err := logging.NewFile("chat", cfg.Storage.LogDir, chatLogFile, cfg.Log.Mode)
	if err != nil {
		return nil, nil, err
	}
	return quizLog, chatLog, nil
}

// buildStack connects every configured backend. Unconfigured backends fall
// back to the file store and in-memory adapters.
func buildStack(ctx context.Context, cfg config.Config) (*stack, error) {
	quizLog, chatLog, err := newLoggers(cfg)
	if err != nil {
		return nil, err
	}
	s := &stack{cfg: cfg, quizLog: quizLog, chatLog: chatLog}
	s.closers = append(s.closers, quizLog.Sync, chatLog.Sync)

	if err := s.connect(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.llm = llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	}, quizLog)

	if cfg.Auth.SecretKey == config.Default().Auth.SecretKey {
		quizLog.Warn("SECRET_KEY not set, using the development default")
	}
	s.quiz = app.NewQuizService(s.store, s.llm, quizLog, quiz.WithMaxRetries(cfg.Quiz.MaxRetries))
	s.chat = app.NewChatService(s.llm, chatLog)
	s.auth = app.NewAuthService(s.users, s.tokens, cfg.Auth.SecretKey, config.TTLDuration(cfg.Auth.ResetTTL, app.DefaultResetTTL), quizLog)
	s.dashboard = app.NewDashboardService(s.store, []string{filepath.Join(cfg.Storage.LogDir, chatLogFile)}, quizLog)
	return s, nil
}

func (s *stack) connect(ctx context.Context) error {
	cfg := s.cfg

	var backend memory.QuizBackend
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		backend = pgstore.NewQuizStore(pool)
		s.quizLog.Info("quiz store: postgres")
	} else {
		files, err := filestore.NewQuizStore(cfg.Storage.QuizDir, s.quizLog)
		if err != nil {
			return err
		}
		backend = files
		s.quizLog.Info("quiz store: files", "dir", cfg.Storage.QuizDir)
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() { _ = redisClient.Close() })
		s.store = rediscache.NewQuizCache(redisClient, backend, cacheTTL, s.quizLog)
		s.tokens = rediscache.NewTokenStore(redisClient)
	} else {
		s.store = memory.NewQuizCache(backend, cacheTTL)
		s.tokens = memory.NewTokenStore()
	}

	if cfg.Mongo.URI != "" {
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { disconnect(client) })
		repo := mongostore.NewUserRepository(client, cfg.Mongo.Database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		s.users = repo
		s.usersPing = repo
	} else {
		s.quizLog.Warn("MONGO_URI not set, accounts are kept in memory")
		s.users = memory.NewUserRepository()
	}
	return nil
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}

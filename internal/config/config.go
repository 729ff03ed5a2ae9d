package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`
	Storage struct {
		QuizDir string `yaml:"quiz_dir"`
		LogDir  string `yaml:"log_dir"`
	} `yaml:"storage"`
	Auth struct {
		SecretKey string `yaml:"secret_key"`
		ResetTTL  string `yaml:"reset_ttl"`
	} `yaml:"auth"`
	Quiz struct {
		CacheTTL   string `yaml:"cache_ttl"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"quiz"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "5000"
	cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:3003"}
	cfg.Mongo.Database = "edumind"
	cfg.Storage.QuizDir = "quizzes"
	cfg.Storage.LogDir = "logs"
	cfg.Auth.SecretKey = "your-secret-key"
	cfg.Quiz.MaxRetries = 3
	cfg.Log.Mode = "dev"
	return cfg
}

// Load reads YAML config from path on top of Default, then applies
// environment overrides. A missing file is not an error. Variables from a
// .env file in the working directory are loaded first.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Server.Port, "PORT")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.Mongo.URI, "MONGO_URI")
	override(&cfg.Mongo.Database, "MONGO_DB")
	override(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	override(&cfg.LLM.APIKey, "LLM_API_KEY")
	override(&cfg.LLM.Model, "LLM_MODEL")
	override(&cfg.Storage.QuizDir, "QUIZ_DIR")
	override(&cfg.Storage.LogDir, "LOG_DIR")
	override(&cfg.Auth.SecretKey, "SECRET_KEY")
	override(&cfg.Log.Mode, "LOG_MODE")
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

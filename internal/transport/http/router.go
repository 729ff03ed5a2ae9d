package http

import (
	"context"
	"net/http"
	"time"

	"edumind-service/internal/app"
	"edumind-service/internal/infra/extract"
	"edumind-service/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes limits request bodies, uploads included.
const DefaultMaxBodyBytes = 50 << 20

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds everything the router serves.
type Deps struct {
	Quiz      *app.QuizService
	Chat      *app.ChatService
	Auth      *app.AuthService
	Dashboard *app.DashboardService
	Extractor *extract.Extractor
	// Pipeline is pinged by /health; Users is optional.
	Pipeline Pinger
	Users    Pinger
	QuizLog  *logging.Logger
	ChatLog  *logging.Logger
}

type RouterConfig struct {
	Origins      []string
	MaxBodyBytes int64
}

// NewRouter builds the gin engine with CORS, body limits and every route.
func NewRouter(deps Deps, cfg RouterConfig) *gin.Engine {
	if deps.QuizLog == nil {
		deps.QuizLog = logging.Nop()
	}
	if deps.ChatLog == nil {
		deps.ChatLog = logging.Nop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(deps.QuizLog))
	if len(cfg.Origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Content-Length", "Authorization", "Accept", "Origin"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(bodyLimit(cfg.MaxBodyBytes))
	r.MaxMultipartMemory = cfg.MaxBodyBytes

	h := &handlers{deps: deps}

	api := r.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.GET("/user", h.currentUser)
	}
	r.POST("/forgot-password", h.forgotPassword)
	r.POST("/chat", h.chat)
	r.POST("/extract_text", h.extractText)
	r.POST("/generate_quiz", h.generateQuiz)
	r.POST("/submit_answer", h.submitAnswer)
	r.GET("/dashboard-stats", h.dashboardStats)
	r.GET("/recent-activity", h.recentActivity)
	r.GET("/get-quiz/:quiz_id", h.getQuiz)
	r.GET("/health", h.health)

	ws := NewWSHandler(deps.Chat, deps.Quiz, deps.ChatLog)
	r.GET("/ws/chat", gin.WrapF(ws.ServeWS))
	return r
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func requestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP())
	}
}

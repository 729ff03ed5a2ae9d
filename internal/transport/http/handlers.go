package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"edumind-service/internal/app"
	"edumind-service/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	defaultNumQuestions = 5
	healthTimeout       = 5 * time.Second
)

type handlers struct {
	deps Deps
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	ResetEmail string `json:"resetEmail"`
}

type chatRequest struct {
	Question string `json:"question"`
}

// generateRequest accepts num_questions as a number or a numeric string.
type generateRequest struct {
	Text         string      `json:"text"`
	QuestionType string      `json:"question_type"`
	NumQuestions json.Number `json:"num_questions"`
	Difficulty   string      `json:"difficulty"`
}

type submitRequest struct {
	QuizID        string `json:"quiz_id"`
	QuestionIndex *int   `json:"question_index"`
	UserAnswer    string `json:"user_answer"`
}

func authResponse(message string, res app.AuthResult) gin.H {
	return gin.H{
		"message": message,
		"token":   res.Token,
		"user": gin.H{
			"id":    res.User.ID,
			"name":  res.User.Name,
			"email": res.User.Email,
		},
	}
}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.deps.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		h.deps.QuizLog.Warn("registration failed", "email", req.Email, "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse("Registration successful", res))
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse("Login successful", res))
}

func (h *handlers) currentUser(c *gin.Context) {
	token := c.GetHeader("Authorization")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return
	}
	user, err := h.deps.Auth.CurrentUser(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	name := user.Name
	if name == "" {
		name = "Anonymous"
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "email": user.Email})
}

func (h *handlers) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if _, err := h.deps.Auth.ForgotPassword(c.Request.Context(), req.ResetEmail); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset link sent to your email"})
}

func (h *handlers) chat(c *gin.Context) {
	h.deps.ChatLog.Info("Received a request to /chat endpoint")
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: 'question' field is required.")
		return
	}
	reply, err := h.deps.Chat.Ask(c.Request.Context(), req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *handlers) extractText(c *gin.Context) {
	h.deps.QuizLog.Info("Received a request to /extract_text endpoint")
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file provided.")
		return
	}
	if header.Filename == "" {
		badRequest(c, "No file selected.")
		return
	}
	f, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, err)
		return
	}
	text, err := h.deps.Extractor.Extract(header.Filename, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (h *handlers) generateQuiz(c *gin.Context) {
	h.deps.QuizLog.Info("Received a request to /generate_quiz endpoint")
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No JSON data provided in the request.")
		return
	}
	num := defaultNumQuestions
	if req.NumQuestions != "" {
		n, err := strconv.Atoi(req.NumQuestions.String())
		if err != nil {
			badRequest(c, "Number of questions must be an integer.")
			return
		}
		num = n
	}

	rec, err := h.deps.Quiz.Generate(c.Request.Context(), domain.GenerationRequest{
		Material:     req.Text,
		QuizType:     app.MapQuizType(req.QuestionType),
		NumQuestions: num,
		Difficulty:   req.Difficulty,
	})
	if err != nil {
		h.deps.QuizLog.Error("quiz generation failed", "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz_id": rec.ID, "questions": rec.Questions})
}

func (h *handlers) submitAnswer(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QuizID == "" || req.QuestionIndex == nil || req.UserAnswer == "" {
		badRequest(c, "Missing required fields.")
		return
	}
	res, err := h.deps.Quiz.SubmitAnswer(c.Request.Context(), req.QuizID, *req.QuestionIndex, req.UserAnswer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"correct":     res.Correct,
		"total_score": res.TotalScore,
		"percentage":  res.Percentage,
	})
}

func (h *handlers) dashboardStats(c *gin.Context) {
	stats, err := h.deps.Dashboard.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) recentActivity(c *gin.Context) {
	activities, err := h.deps.Dashboard.RecentActivity(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (h *handlers) getQuiz(c *gin.Context) {
	rec, err := h.deps.Quiz.GetQuiz(c.Request.Context(), c.Param("quiz_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) health(c *gin.Context) {
	h.deps.ChatLog.Info("Health check endpoint accessed")
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	body := gin.H{"timestamp": time.Now().Format(time.RFC3339)}
	healthy := true

	pipelineUp := h.deps.Pipeline != nil && h.deps.Pipeline.Ping(ctx) == nil
	body["chat_pipeline_available"] = pipelineUp
	body["summarize_pipeline_available"] = pipelineUp
	body["quiz_pipelines_available"] = pipelineUp
	if !pipelineUp {
		healthy = false
	}
	if h.deps.Users != nil {
		if err := h.deps.Users.Ping(ctx); err != nil {
			h.deps.QuizLog.Error("user store health check failed", "error", err)
			body["mongo_connected"] = false
			body["error"] = err.Error()
			healthy = false
		} else {
			body["mongo_connected"] = true
		}
	}

	status := http.StatusOK
	body["status"] = "healthy"
	if !healthy {
		status = http.StatusInternalServerError
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}

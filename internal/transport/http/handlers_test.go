package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"edumind-service/internal/app"
	"edumind-service/internal/domain"
	"edumind-service/internal/infra/extract"
	"edumind-service/internal/infra/memory"
	"github.com/gin-gonic/gin"
)

const trueFalseResponse = "1. The sun is a star.\nAnswer: True\n2. Fish can fly.\nAnswer: False\n"

type stubPipeline struct {
	quiz    string
	pingErr error
}

func (p *stubPipeline) Generate(context.Context, domain.GenerationRequest) (string, error) {
	return p.quiz, nil
}

func (p *stubPipeline) Chat(_ context.Context, question string) (string, error) {
	return "reply to " + question, nil
}

func (p *stubPipeline) Summarize(_ context.Context, text string) (string, error) {
	return "summary of " + text, nil
}

func (p *stubPipeline) Ping(context.Context) error { return p.pingErr }

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testEnv struct {
	router   *gin.Engine
	quiz     *app.QuizService
	pipeline *stubPipeline
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pipeline := &stubPipeline{quiz: trueFalseResponse}
	store := memory.NewQuizStore()
	quizService := app.NewQuizService(store, pipeline, nil)
	deps := Deps{
		Quiz:      quizService,
		Chat:      app.NewChatService(pipeline, nil),
		Auth:      app.NewAuthService(memory.NewUserRepository(), memory.NewTokenStore(), "secret", time.Hour, nil),
		Dashboard: app.NewDashboardService(store, nil, nil),
		Extractor: extract.New(nil),
		Pipeline:  pipeline,
	}
	router := NewRouter(deps, RouterConfig{Origins: []string{"http://localhost:3000"}})
	return &testEnv{router: router, quiz: quizService, pipeline: pipeline}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestGenerateSubmitAndFetchQuiz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/generate_quiz", map[string]any{
		"text":          "astronomy and biology notes",
		"question_type": "true-false",
		"num_questions": "2",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var generated struct {
		QuizID    string            `json:"quiz_id"`
		Questions []domain.Question `json:"questions"`
	}
	decode(t, rec, &generated)
	if generated.QuizID == "" || len(generated.Questions) != 2 || generated.Questions[0].Type != domain.TypeTrueFalse {
		t.Fatalf("unexpected generate response %+v", generated)
	}

	rec = env.do(t, http.MethodPost, "/submit_answer", map[string]any{
		"quiz_id":        generated.QuizID,
		"question_index": 0,
		"user_answer":    "true",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		Status     string  `json:"status"`
		TotalScore int     `json:"total_score"`
		Percentage float64 `json:"percentage"`
	}
	decode(t, rec, &submitted)
	if submitted.Status != "success" || submitted.TotalScore != 1 || submitted.Percentage != 50 {
		t.Fatalf("unexpected submit response %+v", submitted)
	}

	rec = env.do(t, http.MethodGet, "/get-quiz/"+generated.QuizID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get quiz: expected 200, got %d", rec.Code)
	}
	var stored domain.QuizRecord
	decode(t, rec, &stored)
	if stored.TotalScore == nil || *stored.TotalScore != 1 || stored.Questions[0].UserAnswer == nil {
		t.Fatalf("expected graded quiz, got %+v", stored)
	}

	if rec := env.do(t, http.MethodGet, "/get-quiz/quiz_missing", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing quiz, got %d", rec.Code)
	}
}

func TestGenerateQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []map[string]any{
		{"text": "", "num_questions": 3},
		{"text": "notes", "num_questions": 0},
		{"text": "notes", "num_questions": 51},
		{"text": "notes", "num_questions": "many"},
	}
	for _, body := range cases {
		if rec := env.do(t, http.MethodPost, "/generate_quiz", body, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestGenerateQuizEmptyPipelineOutput(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.quiz = "Error: Unable to generate exact number of valid MCQs"
	rec := env.do(t, http.MethodPost, "/generate_quiz", map[string]any{"text": "notes", "num_questions": 2}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	env := newTestEnv(t)
	rec, err := env.quiz.Generate(context.Background(), domain.GenerationRequest{Material: "x", QuizType: domain.TypeTrueFalse, NumQuestions: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cases := []struct {
		body map[string]any
		want int
	}{
		{map[string]any{"quiz_id": rec.ID, "user_answer": "True"}, http.StatusBadRequest},
		{map[string]any{"quiz_id": rec.ID, "question_index": 0}, http.StatusBadRequest},
		{map[string]any{"quiz_id": rec.ID, "question_index": 9, "user_answer": "True"}, http.StatusBadRequest},
		{map[string]any{"quiz_id": "quiz_missing", "question_index": 0, "user_answer": "True"}, http.StatusNotFound},
	}
	for _, c := range cases {
		if got := env.do(t, http.MethodPost, "/submit_answer", c.body, nil); got.Code != c.want {
			t.Fatalf("%v: expected %d, got %d", c.body, c.want, got.Code)
		}
	}
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", map[string]any{
		"name": "Grace", "email": "grace@example.com", "password": "password1", "confirmPassword": "password1",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var registered struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, rec, &registered)
	if registered.Token == "" || registered.User.Email != "grace@example.com" {
		t.Fatalf("unexpected register response %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/register", map[string]any{
		"email": "grace@example.com", "password": "password1", "confirmPassword": "password1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/user", nil, map[string]string{"Authorization": "Bearer " + registered.Token})
	if rec.Code != http.StatusOK {
		t.Fatalf("current user: expected 200, got %d", rec.Code)
	}
	var user map[string]string
	decode(t, rec, &user)
	if user["name"] != "Grace" || user["email"] != "grace@example.com" {
		t.Fatalf("unexpected user %v", user)
	}

	if rec := env.do(t, http.MethodGet, "/api/user", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/login", map[string]any{"email": "grace@example.com", "password": "nope-nope"}, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/login", map[string]any{"email": "grace@example.com", "password": "password1"}, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on login, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/forgot-password", map[string]any{"resetEmail": "nobody@example.com"}, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown reset email, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/forgot-password", map[string]any{"resetEmail": "grace@example.com"}, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for reset, got %d", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/chat", map[string]any{"question": "Give me a summary: cells divide"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", rec.Code)
	}
	var reply domain.ChatReply
	decode(t, rec, &reply)
	if reply.Response != "summary of cells divide" || reply.Timestamp == "" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	if rec := env.do(t, http.MethodPost, "/chat", map[string]any{}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without question, got %d", rec.Code)
	}
}

func TestExtractTextRejectsBadUploads(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/extract_text", strings.NewReader(""))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", rec.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("plain text"))
	mw.Close()

	req = httptest.NewRequest(http.MethodPost, "/extract_text", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "unsupported file format") {
		t.Fatalf("expected unsupported file error, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardEndpointsWhenEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/dashboard-stats", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var stats domain.DashboardStats
	decode(t, rec, &stats)
	if stats != (domain.DashboardStats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}

	rec = env.do(t, http.MethodGet, "/recent-activity", nil, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty activity list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy, got %d %s", rec.Code, rec.Body.String())
	}

	env.pipeline.pingErr = domain.ErrPipelineUnavailable
	rec = env.do(t, http.MethodGet, "/health", nil, nil)
	var body map[string]any
	decode(t, rec, &body)
	if rec.Code != http.StatusInternalServerError || body["status"] != "unhealthy" || body["quiz_pipelines_available"] != false {
		t.Fatalf("expected unhealthy pipeline, got %d %v", rec.Code, body)
	}
}

func TestHealthReportsUserStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Pipeline: &stubPipeline{}, Users: failingPinger{}}, RouterConfig{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	decode(t, rec, &body)
	if rec.Code != http.StatusInternalServerError || body["mongo_connected"] != false {
		t.Fatalf("expected mongo failure, got %d %v", rec.Code, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q (status %d)", got, rec.Code)
	}
}

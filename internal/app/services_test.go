package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"edumind-service/internal/domain"
	"edumind-service/internal/infra/memory"
)

type fakeChatModel struct {
	chatted    []string
	summarized []string
	err        error
}

func (m *fakeChatModel) Chat(_ context.Context, question string) (string, error) {
	m.chatted = append(m.chatted, question)
	return "answer", m.err
}

func (m *fakeChatModel) Summarize(_ context.Context, text string) (string, error) {
	m.summarized = append(m.summarized, text)
	return "summary", m.err
}

func TestChatRoutesSummaryRequests(t *testing.T) {
	model := &fakeChatModel{}
	service := NewChatService(model, nil)
	service.clock = func() time.Time { return time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC) }

	reply, err := service.Ask(context.Background(), "Please summarize: photosynthesis converts light")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.Response != "summary" || len(model.summarized) != 1 || model.summarized[0] != "photosynthesis converts light" {
		t.Fatalf("expected summarizer route, got %+v / %v", reply, model.summarized)
	}
	if reply.Timestamp != "2024-05-10T09:30:00.000000" {
		t.Fatalf("unexpected timestamp %q", reply.Timestamp)
	}

	reply, err = service.Ask(context.Background(), "What is osmosis?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.Response != "answer" || len(model.chatted) != 1 {
		t.Fatalf("expected chatbot route, got %+v", reply)
	}
}

func TestChatRejectsEmptyQuestion(t *testing.T) {
	service := NewChatService(&fakeChatModel{}, nil)
	if _, err := service.Ask(context.Background(), "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestChatPropagatesModelError(t *testing.T) {
	service := NewChatService(&fakeChatModel{err: domain.ErrPipelineUnavailable}, nil)
	if _, err := service.Ask(context.Background(), "hi"); !errors.Is(err, domain.ErrPipelineUnavailable) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
}

func newTestAuth() (*AuthService, *memory.TokenStore) {
	tokens := memory.NewTokenStore()
	return NewAuthService(memory.NewUserRepository(), tokens, "test-secret", time.Hour, nil), tokens
}

func TestRegisterLoginAndCurrentUser(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth()

	reg, err := auth.Register(ctx, "Ada", " Ada@Example.com ", "password1", "password1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Token == "" || reg.User.Email != "ada@example.com" || reg.User.PasswordHash == "password1" {
		t.Fatalf("unexpected register result %+v", reg)
	}

	login, err := auth.Login(ctx, "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user, err := auth.CurrentUser(ctx, "Bearer "+login.Token)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user.ID != reg.User.ID || user.Name != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth()

	cases := []struct{ email, password, confirm string }{
		{"", "password1", "password1"},
		{"a@b.c", "password1", "password2"},
		{"a@b.c", "short", "short"},
	}
	for _, c := range cases {
		if _, err := auth.Register(ctx, "x", c.email, c.password, c.confirm); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%+v: expected ErrInvalidInput, got %v", c, err)
		}
	}

	if _, err := auth.Register(ctx, "x", "dup@b.c", "password1", "password1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := auth.Register(ctx, "y", "DUP@b.c", "password1", "password1"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth()
	if _, err := auth.Register(ctx, "x", "a@b.c", "password1", "password1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := auth.Login(ctx, "a@b.c", "wrong-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := auth.Login(ctx, "nobody@b.c", "password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth()
	issued := time.Now()
	auth.clock = func() time.Time { return issued }
	reg, err := auth.Register(ctx, "x", "a@b.c", "password1", "password1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	auth.clock = func() time.Time { return issued.Add(TokenTTL + time.Minute) }
	if _, err := auth.ValidateToken(reg.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other := NewAuthService(memory.NewUserRepository(), memory.NewTokenStore(), "other-secret", time.Hour, nil)
	if _, err := other.ValidateToken(reg.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected foreign token to be rejected, got %v", err)
	}
	if _, err := auth.ValidateToken(""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected empty token to be rejected, got %v", err)
	}
}

func TestForgotPasswordStoresToken(t *testing.T) {
	ctx := context.Background()
	auth, tokens := newTestAuth()
	if _, err := auth.Register(ctx, "x", "a@b.c", "password1", "password1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := auth.ForgotPassword(ctx, "A@B.C")
	if err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	email, ok, err := tokens.Get(ctx, token)
	if err != nil || !ok || email != "a@b.c" {
		t.Fatalf("expected stored reset token, got %q %v %v", email, ok, err)
	}

	if _, err := auth.ForgotPassword(ctx, "missing@b.c"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func intPtr(v int) *int { return &v }

func scoredQuiz(ts string, scores ...*int) domain.QuizRecord {
	rec := domain.QuizRecord{Timestamp: ts}
	for _, s := range scores {
		rec.Questions = append(rec.Questions, domain.Question{
			Type:          domain.TypeTrueFalse,
			Question:      "q" + ts,
			CorrectAnswer: "True",
			Score:         s,
		})
	}
	return rec
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuizStore()
	for _, rec := range []domain.QuizRecord{
		scoredQuiz("2024-05-01_10-00-00", intPtr(1), intPtr(0)),
		scoredQuiz("2024-05-02_11-00-00", intPtr(1)),
		scoredQuiz("2024-05-09_09-00-00", nil, nil),
	} {
		if _, err := store.Save(ctx, rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	dash := NewDashboardService(store, nil, nil)
	dash.clock = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local) }

	stats, err := dash.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.DashboardStats{
		TotalStudySessions: 3,
		QuizzesCompleted:   5,
		AverageScore:       66.67,
		StudyStreak:        2,
		Trends:             domain.Trends{Sessions: 50, Quizzes: 66.67, Score: 0},
	}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestDashboardStatsEmpty(t *testing.T) {
	stats, err := NewDashboardService(memory.NewQuizStore(), nil, nil).Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (domain.DashboardStats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestRecentActivity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuizStore()
	base := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)
	for i, ts := range []string{"2024-05-06_12-00-00", "2024-05-07_12-00-00", "2024-05-08_12-00-00", "2024-05-09_12-00-00"} {
		modified := base.Add(time.Duration(i) * time.Minute)
		store.SetClock(func() time.Time { return modified })
		if _, err := store.Save(ctx, scoredQuiz(ts, intPtr(1))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	pct := 50.0
	latest := scoredQuiz("2024-05-09_12-00-00", intPtr(1))
	latest.Percentage = &pct
	store.SetClock(func() time.Time { return base.Add(time.Hour) })
	if err := store.Update(ctx, "quiz_2024-05-09_12-00-00", latest); err != nil {
		t.Fatalf("update: %v", err)
	}

	logPath := filepath.Join(t.TempDir(), "chat.log")
	lines := []string{
		"2024-05-10 11:00:00 - INFO - chat - Received a request to /chat endpoint",
		"2024-05-10 11:05:00 - INFO - chat - unrelated line",
		"2024-05-10 11:30:00 - INFO - chat - Received a request to /chat endpoint",
		"2024-05-10 11:45:00 - INFO - chat - Received a request to /chat endpoint",
	}
	if err := os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	dash := NewDashboardService(store, []string{logPath, filepath.Join(t.TempDir(), "missing.log")}, nil)
	dash.clock = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local) }

	activities, err := dash.RecentActivity(ctx)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(activities) != 5 {
		t.Fatalf("expected 5 activities, got %d", len(activities))
	}
	first := activities[0]
	if first.QuizID != "quiz_2024-05-09_12-00-00" || first.Description != "2024-05-09 - Score: 50%" || first.Time != "1 days ago" {
		t.Fatalf("unexpected first activity %+v", first)
	}
	if activities[2].QuizID != "quiz_2024-05-07_12-00-00" {
		t.Fatalf("expected third most recent quiz, got %+v", activities[2])
	}
	if activities[3].Type != "chat" || activities[3].Time != "1 hours ago" || activities[4].Time != "30 minutes ago" {
		t.Fatalf("unexpected chat activities %+v %+v", activities[3], activities[4])
	}
	for i, a := range activities {
		if a.ID != i+1 {
			t.Fatalf("expected sequential ids, got %d at %d", a.ID, i)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	cases := map[time.Duration]string{
		49 * time.Hour:   "2 days ago",
		3 * time.Hour:    "3 hours ago",
		59 * time.Minute: "59 minutes ago",
		-time.Minute:     "0 minutes ago",
	}
	for d, want := range cases {
		if got := TimeAgo(now, now.Add(-d)); got != want {
			t.Fatalf("%v: expected %q, got %q", d, want, got)
		}
	}
}

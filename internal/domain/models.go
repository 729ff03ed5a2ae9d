package domain

import "time"

// QuestionType selects the question kind a quiz is generated for.
type QuestionType string

const (
	TypeMCQ       QuestionType = "mcq"
	TypeTrueFalse QuestionType = "true_false"
	TypeFillIn    QuestionType = "fill_in_the_blank"
)

// Valid reports whether t is one of the supported kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMCQ, TypeTrueFalse, TypeFillIn:
		return true
	}
	return false
}

// TimestampLayout is the layout of QuizRecord.Timestamp and of stored quiz ids.
const TimestampLayout = "2006-01-02_15-04-05"

// Question is a single generated question. Options is only set for mcq,
// where CorrectAnswer holds the option text rather than its letter.
// UserAnswer and Score are filled in by answer submission.
type Question struct {
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	UserAnswer    *string      `json:"user_answer,omitempty"`
	Score         *int         `json:"score,omitempty"`
}

// QuizRecord is the persisted form of a generated quiz.
type QuizRecord struct {
	ID         string     `json:"-"`
	Questions  []Question `json:"questions"`
	Timestamp  string     `json:"timestamp"`
	TotalScore *int       `json:"total_score,omitempty"`
	Percentage *float64   `json:"percentage,omitempty"`
}

// CreatedAt parses Timestamp, returning false when it is missing or malformed.
func (r QuizRecord) CreatedAt() (time.Time, bool) {
	return ParseTimestamp(r.Timestamp)
}

// ParseTimestamp accepts the full TimestampLayout or a bare date.
func ParseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range []string{TimestampLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StoredQuiz pairs a record with the time its backing entry was last written.
type StoredQuiz struct {
	Record     QuizRecord
	ModifiedAt time.Time
}

// GenerationRequest describes one quiz generation call.
type GenerationRequest struct {
	Material     string
	QuizType     QuestionType
	NumQuestions int
	Difficulty   string
}

// SubmissionResult summarizes the quiz totals after an answer is recorded.
type SubmissionResult struct {
	Correct    bool    `json:"correct"`
	TotalScore int     `json:"total_score"`
	Percentage float64 `json:"percentage"`
}

// ChatReply is a chatbot or summarizer response.
type ChatReply struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// User is a registered account.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Trends are percentage changes against the state seven days ago.
type Trends struct {
	Sessions float64 `json:"sessions"`
	Quizzes  float64 `json:"quizzes"`
	Score    float64 `json:"score"`
}

// DashboardStats aggregates all stored quizzes.
type DashboardStats struct {
	TotalStudySessions int     `json:"total_study_sessions"`
	QuizzesCompleted   int     `json:"quizzes_completed"`
	AverageScore       float64 `json:"average_score"`
	StudyStreak        int     `json:"study_streak"`
	Trends             Trends  `json:"trends"`
}

// Activity is one entry in the recent activity feed.
type Activity struct {
	ID          int      `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Time        string   `json:"time"`
	Icon        string   `json:"icon"`
	QuizID      string   `json:"quiz_id,omitempty"`
	Score       *float64 `json:"score,omitempty"`
}

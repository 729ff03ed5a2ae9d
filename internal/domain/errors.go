package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz record could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuestionIndex indicates a submission targeted a question outside the quiz.
	ErrInvalidQuestionIndex = errors.New("invalid question index")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoQuestions is returned when generation produced nothing usable.
	ErrNoQuestions = errors.New("failed to generate valid questions")
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	// ErrUnsupportedFile is returned for uploads that are neither docx nor pdf.
	ErrUnsupportedFile = errors.New("unsupported file format")
	// ErrNoText is returned when an upload yields no extractable text.
	ErrNoText              = errors.New("no text extracted from file")
	ErrPipelineUnavailable = errors.New("generation pipeline unavailable")
)

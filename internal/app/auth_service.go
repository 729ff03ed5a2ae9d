package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"edumind-service/internal/domain"
	"edumind-service/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	TokenTTL          = 24 * time.Hour
	DefaultResetTTL   = time.Hour
)

// UserRepository stores accounts (Mongo or in-memory).
type UserRepository interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
}

// ResetTokenStore keeps password reset tokens until they expire.
type ResetTokenStore interface {
	Put(ctx context.Context, token, email string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, bool, error)
	Delete(ctx context.Context, token string) error
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string
	User  domain.User
}

type AuthService struct {
	users    UserRepository
	tokens   ResetTokenStore
	secret   []byte
	resetTTL time.Duration
	log      *logging.Logger
	clock    func() time.Time
}

func NewAuthService(users UserRepository, tokens ResetTokenStore, secret string, resetTTL time.Duration, log *logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	if resetTTL <= 0 {
		resetTTL = DefaultResetTTL
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		secret:   []byte(secret),
		resetTTL: resetTTL,
		log:      log,
		clock:    time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password, confirm string) (AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" || confirm == "" {
		return AuthResult{}, fmt.Errorf("%w: email, password, and confirm password are required", domain.ErrInvalidInput)
	}
	if password != confirm {
		return AuthResult{}, fmt.Errorf("%w: passwords do not match", domain.ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return AuthResult{}, fmt.Errorf("%w: password must be at least %d characters long", domain.ErrInvalidInput, MinPasswordLength)
	}
	if strings.TrimSpace(name) == "" {
		name = "Anonymous"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock().UTC(),
	})
	if err != nil {
		return AuthResult{}, err
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info("user registered", "email", email)
	return AuthResult{Token: token, User: user}, nil
}

// Login returns ErrInvalidCredentials for both unknown emails and wrong
// passwords.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info("user logged in", "email", email)
	return AuthResult{Token: token, User: user}, nil
}

// CurrentUser resolves the account behind a bearer token.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return domain.User{}, err
	}
	return s.users.FindByID(ctx, claims.UserID)
}

// ForgotPassword issues a reset token for a known email and returns it.
// Delivering the token to the user is left to a mailer.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.tokens.Put(ctx, token, email, s.resetTTL); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	s.log.Info("password reset requested", "email", email)
	return token, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) issueToken(userID string) (string, error) {
	now := s.clock()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

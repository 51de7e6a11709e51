package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"campusride/internal/auth"
	"campusride/internal/domain"
	"campusride/internal/domain/models"
	"campusride/internal/repositories"

	"go.uber.org/zap"
)

const minPasswordLength = 8

type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Phone      string
	University string
	StudentID  string
	IsDriver   bool
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

type AuthService struct {
	Store  repositories.UserRepository
	Tokens *auth.TokenService
	Log    *zap.Logger
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.University = strings.TrimSpace(in.University)

	if in.Name == "" {
		return models.User{}, domain.ValidationError{Field: "name", Msg: "is required"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return models.User{}, domain.ValidationError{Field: "email", Msg: "must be a valid email address"}
	}
	if len(in.Password) < minPasswordLength {
		return models.User{}, domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"}
	}
	if in.University == "" {
		return models.User{}, domain.ValidationError{Field: "university", Msg: "is required"}
	}

	if _, err := s.Store.GetUserByEmail(ctx, in.Email); err == nil {
		return models.User{}, domain.ConflictError{Resource: "user", Msg: "email already registered"}
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, translate(err, "user")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, domain.InternalError{Msg: "could not hash password", Err: err}
	}

	user, err := s.Store.CreateUser(ctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		University:   in.University,
		StudentID:    strings.TrimSpace(in.StudentID),
		IsDriver:     in.IsDriver,
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		return models.User{}, domain.ConflictError{Resource: "user", Msg: "email already registered", Err: err}
	}
	if err != nil {
		return models.User{}, translate(err, "user")
	}

	moduleLogger(ctx, s.Log, "auth").Info("user registered",
		zap.String("action", "register"),
		zap.Int64("user_id", user.ID),
		zap.Bool("is_driver", user.IsDriver),
	)
	return user, nil
}

func (s AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	invalid := domain.UnauthorizedError{Msg: "invalid email or password"}

	user, err := s.Store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return Session{}, invalid
	}
	if err != nil {
		return Session{}, translate(err, "user")
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, invalid
	}

	token, exp, err := s.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		return Session{}, domain.InternalError{Msg: "could not create session", Err: err}
	}

	moduleLogger(ctx, s.Log, "auth").Info("user logged in",
		zap.String("action", "login"),
		zap.Int64("user_id", user.ID),
	)
	return Session{Token: token, ExpiresAt: exp, User: user}, nil
}

// Authenticate resolves a session token to the current user record, so the
// driver flag is always read fresh.
func (s AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if strings.TrimSpace(token) == "" {
		return models.User{}, domain.UnauthorizedError{}
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return models.User{}, domain.UnauthorizedError{Msg: "invalid or expired session", Err: err}
	}
	user, err := s.Store.GetUser(ctx, claims.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, domain.UnauthorizedError{Msg: "session user no longer exists", Err: err}
	}
	if err != nil {
		return models.User{}, translate(err, "user")
	}
	return user, nil
}

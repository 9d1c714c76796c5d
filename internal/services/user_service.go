package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// UserStore persists registered users.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (core.User, error)
}

// UserService registers users with bcrypt-hashed passwords.
type UserService struct {
	store  UserStore
	cost   int
	logger *slog.Logger
}

func NewUserService(store UserStore, cost int, logger *slog.Logger) *UserService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		store:  store,
		cost:   cost,
		logger: logger.With(applog.FieldComponent, applog.ComponentUser),
	}
}

// Register stores a new user. A duplicate email yields core.ErrConflict.
func (s *UserService) Register(ctx context.Context, in core.UserInput) (core.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return core.User{}, core.NewValidationError("invalid password", core.FieldError{
			Field:   "password",
			Message: "must be at most 72 bytes",
			Type:    "string_too_long",
		})
	}
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, in.Email, string(hash))
	if err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, u.ID)
	return u, nil
}

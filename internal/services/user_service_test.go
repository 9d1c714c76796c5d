package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
)

type fakeUserStore struct {
	byEmail map[string]core.User
}

func (f *fakeUserStore) CreateUser(_ context.Context, email, hash string) (core.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return core.User{}, core.ErrConflict
	}
	u := core.User{ID: int64(len(f.byEmail) + 1), Email: email, PasswordHash: hash}
	f.byEmail[email] = u
	return u, nil
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(&fakeUserStore{byEmail: map[string]core.User{}}, bcrypt.MinCost, nil)

	u, err := svc.Register(ctx, core.UserInput{Email: "a@example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID != 1 || u.Email != "a@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "s3cret" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	if _, err := svc.Register(ctx, core.UserInput{Email: "a@example.com", Password: "other"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate Register = %v, want ErrConflict", err)
	}
}

func TestUserService_RegisterRejectsLongPassword(t *testing.T) {
	svc := NewUserService(&fakeUserStore{byEmail: map[string]core.User{}}, bcrypt.MinCost, nil)

	_, err := svc.Register(context.Background(), core.UserInput{Email: "b@example.com", Password: strings.Repeat("x", 73)})
	if _, ok := core.AsValidation(err); !ok {
		t.Fatalf("Register = %v, want validation error", err)
	}
}

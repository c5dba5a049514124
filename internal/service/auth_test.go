package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"calswap/internal/errs"
	"calswap/internal/model"
	"calswap/internal/repository"
)

type fakeUsers struct {
	byName map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	if _, exists := f.byName[u.Username]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byName[u.Username] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	allowCalls   int
	failureCalls int
	successCalls int
}

func (f *fakeLimiter) Allow(_ context.Context, _ string, _ []byte) (bool, time.Duration, error) {
	f.allowCalls++
	return f.allowOK, 0, f.allowErr
}

func (f *fakeLimiter) Success(_ context.Context, _ string, _ []byte) error {
	f.successCalls++
	return nil
}

func (f *fakeLimiter) Failure(_ context.Context, _ string, _ []byte) (bool, time.Duration, error) {
	f.failureCalls++
	return f.failBlocked, 0, f.failErr
}

const signKey = "test-sign-key"

func TestAuthService_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := &fakeUsers{}
	s := NewAuthService(users, []byte(signKey), time.Minute, &fakeLimiter{allowOK: true})

	if _, err := s.Register(ctx, "", "pw"); err == nil {
		t.Fatalf("want error on empty username")
	}
	if _, err := s.Register(ctx, "alice", ""); err == nil {
		t.Fatalf("want error on empty password")
	}

	id, err := s.Register(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := uuid.FromString(id); err != nil {
		t.Fatalf("register must return a uuid, got %q", id)
	}

	u := users.byName["alice"]
	if u == nil {
		t.Fatalf("user not stored")
	}
	if len(u.SaltAuth) != 16 || len(u.PwdHash) == 0 {
		t.Fatalf("salt/hash not populated")
	}

	if _, err := s.Register(ctx, "alice", "pw2"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate, got %v", err)
	}
}

func TestAuthService_Login_OK(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := &fakeUsers{}
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, []byte(signKey), time.Minute, lim)

	if _, err := s.Register(ctx, "bob", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	tok, u, err := s.LoginWithIP(ctx, "bob", "secret", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.Username != "bob" {
		t.Fatalf("want user returned")
	}
	if lim.successCalls != 1 || lim.failureCalls != 0 {
		t.Fatalf("limiter calls: success=%d failure=%d", lim.successCalls, lim.failureCalls)
	}

	// The token subject must be the user id.
	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(tok.AccessToken, &claims, func(*jwt.Token) (any, error) {
		return []byte(signKey), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Fatalf("subject=%s want %s", claims.Subject, u.ID)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := &fakeUsers{}
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, []byte(signKey), time.Minute, lim)

	if _, err := s.Register(ctx, "bob", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, err := s.LoginWithIP(ctx, "bob", "wrong", "10.0.0.1")
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if lim.failureCalls != 1 {
		t.Fatalf("failure must be recorded")
	}

	// Unknown users read identically to wrong passwords.
	_, _, err = s.LoginWithIP(ctx, "mallory", "secret", "10.0.0.1")
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized for unknown user, got %v", err)
	}
}

func TestAuthService_Login_RateLimited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := &fakeUsers{}
	s := NewAuthService(users, []byte(signKey), time.Minute, &fakeLimiter{allowOK: false})

	_, _, err := s.LoginWithIP(ctx, "bob", "secret", "10.0.0.1")
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
}

func TestAuthService_Login_BlockedAfterFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := &fakeUsers{}
	lim := &fakeLimiter{allowOK: true, failBlocked: true}
	s := NewAuthService(users, []byte(signKey), time.Minute, lim)

	if _, err := s.Register(ctx, "bob", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, err := s.LoginWithIP(ctx, "bob", "wrong", "10.0.0.1")
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited when failure threshold reached, got %v", err)
	}
}

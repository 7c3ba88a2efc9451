// Package authpw provides email/password authentication.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"verdant/api/internal/store"
	"verdant/api/internal/util"
)

// Validation failures happen before any store call is made.
var (
	ErrFieldsRequired     = errors.New("email, username, and password are required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
}

// Service provides email/password authentication
type Service struct {
	store           UserStore
	defaultLanguage string
}

// NewService creates a new auth service
func NewService(store UserStore, defaultLanguage string) *Service {
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	return &Service{
		store:           store,
		defaultLanguage: defaultLanguage,
	}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// SignUp creates a new account. The account row carries the profile fields
// (avatar, accessibility, language) directly, so a registration either
// creates the full profile or fails as a whole; there is no window where
// the account exists without its profile document.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)

	if email == "" || username == "" || req.Password == "" {
		return store.User{}, ErrFieldsRequired
	}
	if len(req.Password) < 6 {
		return store.User{}, ErrPasswordTooShort
	}
	if req.Password != req.ConfirmPassword {
		return store.User{}, ErrPasswordMismatch
	}

	// Check if email already exists
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:                util.NewID("usr"),
		Username:          username,
		Email:             email,
		PasswordHash:      string(hash),
		AccessibilityMode: false,
		LanguageCode:      s.defaultLanguage,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	Email    string
	Password string
}

// SignIn authenticates a user. Lookup and password failures are
// indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	return user, nil
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/app/repositories"
	"github.com/kumarketplace/marketplace/pkg/apperr"
	"github.com/kumarketplace/marketplace/pkg/auth"
	"github.com/kumarketplace/marketplace/pkg/logger"
)

// UserStore is the persistence AuthService needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id uint) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	IsAdmin(ctx context.Context, id uint) (bool, error)
}

// TokenIssuer signs access tokens for a user id.
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

type SignupInput struct {
	FullName string `json:"fullname" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255" message:"Valid email required"`
	// bcrypt ignores input past 72 bytes.
	Password string `json:"password" validate:"required,min=8,max_bytes=72" message:"Password must be at least 8 characters" message_max_bytes:"Password must be at most 72 bytes"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email" message:"Valid email required"`
	Password string `json:"password" validate:"required" message:"Password required"`
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
}

func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Signup creates a customer account and returns it with a fresh token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (models.User, string, error) {
	email := normalizeEmail(in.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, "", apperr.New(apperr.Conflict, "Email already in use")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, "", apperr.Internalf(err, "signup: look up email")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, "", apperr.Internalf(err, "signup: hash password")
	}

	user := models.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		// Lost a race with a concurrent signup for the same address.
		if _, findErr := s.users.FindByEmail(ctx, email); findErr == nil {
			return models.User{}, "", apperr.New(apperr.Conflict, "Email already in use")
		}
		return models.User{}, "", apperr.Internalf(err, "signup: create user")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", apperr.Internalf(err, "signup: issue token")
	}

	logger.WithCtx(ctx).Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login checks credentials. Unknown emails and wrong passwords fail the same
// way and take about the same time.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, repositories.ErrNotFound) {
		auth.BurnPasswordCheck(in.Password)
		return models.User{}, "", apperr.New(apperr.InvalidCredential, "Invalid credentials")
	}
	if err != nil {
		return models.User{}, "", apperr.Internalf(err, "login: look up email")
	}

	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return models.User{}, "", apperr.New(apperr.InvalidCredential, "Invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", apperr.Internalf(err, "login: issue token")
	}
	return user, token, nil
}

// Me loads the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, apperr.New(apperr.NotFound, "User not found")
	}
	if err != nil {
		return models.User{}, apperr.Internalf(err, "me: load user")
	}
	return user, nil
}

// IsAdmin reports whether userID carries the admin flag. It is read on every
// call so revoking the flag takes effect immediately.
func (s *AuthService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	ok, err := s.users.IsAdmin(ctx, userID)
	if err != nil {
		return false, apperr.Internalf(err, "admin check")
	}
	return ok, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

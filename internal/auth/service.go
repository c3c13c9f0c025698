package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/roadmap-engine/internal/models"
	"github.com/terra-clan/roadmap-engine/internal/storage"
)

// Store hands out a repository for one request
type Store interface {
	Acquire(ctx context.Context) (storage.Repository, error)
}

// Session is an issued token with the user it belongs to
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Service registers and authenticates users
type Service struct {
	store  Store
	tokens *TokenService
	hasher *PasswordHasher
}

// NewService creates an account service
func NewService(store Store, tokens *TokenService, hasher *PasswordHasher) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		hasher: hasher,
	}
}

// Register creates an account and signs the user in
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

// Login verifies credentials and signs the user in
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	user, err := repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		slog.Warn("login failed", "reason", "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// CurrentUser returns the account behind a user ID
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	user, err := repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

// Authenticate resolves a token to a user ID
func (s *Service) Authenticate(token string) (string, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) issue(user *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// Package services contains server-side business logic. This file implements
// AccountService, which handles registration and login plus issuing of
// stateless session tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/alexbor287kz-boop/marketplace/internal/common"
	"github.com/alexbor287kz-boop/marketplace/internal/server/auth"
	"github.com/alexbor287kz-boop/marketplace/internal/server/config"
	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
	"github.com/alexbor287kz-boop/marketplace/internal/server/repositories/repomanager"
)

// LoginResult bundles the minted session token with the user's display name.
type LoginResult struct {
	Token    string
	FullName string
}

// AccountService provides authentication-related operations:
// - Register: create users (does not log the user in)
// - Login: verify credentials and mint a session token
type AccountService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	jwtSecret             []byte
	tokenValidityDuration time.Duration
}

// NewAccountService constructs an AccountService using repositories and server config.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AccountService {
	return &AccountService{
		db:                    db,
		repomanager:           m,
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
	}
}

// normalizeEmail fixes the case-sensitivity policy: emails are lower-cased
// on write and on lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with a bcrypt digest of the password.
// All three fields are required (common.ErrValidation). A duplicate email
// yields common.ErrEmailTaken: the pre-check catches the sequential case,
// the UNIQUE constraint in the users repository closes the race between two
// near-simultaneous registrations.
func (s *AccountService) Register(ctx context.Context, fullName, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if fullName == "" || email == "" || password == "" {
		return nil, common.ErrValidation
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	digest, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{FullName: fullName, Email: email, PasswordHash: digest}
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, common.ErrorInternal
	}

	return u, nil
}

// Login verifies the credentials and, on success, returns a session token
// embedding the user's id and display name.
// An unknown email yields common.ErrUserNotFound; a password mismatch yields
// common.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrorInternal
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.FullName, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &LoginResult{Token: token, FullName: user.FullName}, nil
}

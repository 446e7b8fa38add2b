// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/models"
)

// bcryptCost is the bcrypt cost factor for password hashing.
// Cost 12 balances security and login latency.
const bcryptCost = 12

var (
	// ErrInvalidCredentials is returned for any failed login, whether the
	// email is unknown or the password is wrong. Handlers must not
	// distinguish the two cases in responses.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registration hits an existing account.
	ErrEmailTaken = errors.New("email already registered")
)

// dummyHash is a valid bcrypt hash compared against when login hits an
// unknown email, so response latency does not reveal whether an account
// exists. The comparison result is always discarded.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// UserStore defines the database operations required for account management.
// This interface allows the service to be tested independently of the database.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EnsureAdminUser(ctx context.Context, email, passwordHash string) (*models.User, error)
}

// Service handles account registration and credential verification and
// issues session tokens on successful login.
type Service struct {
	store UserStore
	jwt   *JWTManager
}

// NewService creates an account service backed by the given store.
func NewService(store UserStore, jwtManager *JWTManager) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store required")
	}
	if jwtManager == nil {
		return nil, fmt.Errorf("jwt manager required")
	}
	return &Service{store: store, jwt: jwtManager}, nil
}

// Register creates a new account with the operator role. Door devices and
// their managers self-register; promotion to admin is a separate admin
// action. The handler validates the request before calling this.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         models.RoleOperator,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Burn a bcrypt comparison so unknown emails take as long
			// as wrong passwords.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwt.Timeout()),
		Email:     user.Email,
		Role:      user.Role,
		UserID:    user.ID,
	}, nil
}

// GetUser loads the account behind a validated token's username claim.
// Callers get database.ErrNotFound when the account was deleted after the
// token was issued.
func (s *Service) GetUser(ctx context.Context, email string) (*models.User, error) {
	return s.store.GetUserByEmail(ctx, normalizeEmail(email))
}

// EnsureAdmin creates the bootstrap admin account from configuration when
// no account with that email exists yet. An existing account is returned
// untouched, so a password change survives restarts.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.store.EnsureAdminUser(ctx, normalizeEmail(email), hash)
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// normalizeEmail lowercases and trims an email so lookups and stored rows
// agree regardless of how the client typed the address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

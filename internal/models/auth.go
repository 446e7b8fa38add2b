// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a stored account row. PasswordHash is a bcrypt hash and never
// leaves the database layer; API responses use UserInfo instead.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Info returns the sanitized projection of the user.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// RegisterRequest represents a user self-registration payload.
// New users always receive the default role; promotion is an admin action.
//
// Validation:
//   - Email: required, valid email format
//   - Password: required, 8-72 chars (72 is the bcrypt input limit)
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents a login request for JWT authentication.
//
// Security:
//   - Password is transmitted in plaintext (HTTPS required)
//   - Password is verified against a bcrypt hash (cost 12)
//   - Login attempts share the global per-IP rate limit
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login with a signed JWT.
//
// Fields:
//   - Token: Signed JWT (HS256), sent as Authorization: Bearer <token>
//   - ExpiresAt: Token expiration timestamp
//   - Email: Authenticated user email
//   - Role: User's role (viewer, operator, admin)
//   - UserID: Unique user identifier
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	UserID    uuid.UUID `json:"user_id"`
}

// UserInfo is the sanitized user projection returned by /auth/me and
// embedded in admin listings. It never carries the password hash.
type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

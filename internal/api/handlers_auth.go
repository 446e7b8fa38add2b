// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/venuepulse/internal/auth"
	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/metrics"
	"github.com/tomtom215/venuepulse/internal/models"
)

// Register creates a new account with the operator role.
//
// @Summary Register an account
// @Description Creates an account with the operator role. Promotion to admin is a separate administrative action.
// @Tags Auth
// @Accept json
// @Produce json
// @Param account body models.RegisterRequest true "Email and password"
// @Success 201 {object} models.APIResponse{data=models.UserInfo} "Account created"
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Failure 409 {object} models.APIResponse "Email already registered"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.users == nil {
		respondError(w, http.StatusServiceUnavailable, "AUTH_DISABLED", "account management is disabled (AUTH_MODE=none)", nil)
		return
	}

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON payload", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	user, err := h.users.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "CONFLICT", "email already registered", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create account", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("user_id", user.ID.String()).
		Str("role", user.Role).
		Msg("Account registered")

	respondData(w, http.StatusCreated, user.Info(), started)
}

// Login verifies credentials and issues a session token.
//
// @Summary Log in
// @Description Verifies credentials and returns a signed session token with its expiry.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Email and password"
// @Success 200 {object} models.APIResponse{data=models.LoginResponse} "Token issued"
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Failure 401 {object} models.APIResponse "Invalid email or password"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.users == nil {
		respondError(w, http.StatusServiceUnavailable, "AUTH_DISABLED", "account management is disabled (AUTH_MODE=none)", nil)
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON payload", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	resp, err := h.users.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordLoginAttempt(false)
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid email or password", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "login failed", err)
		return
	}
	metrics.RecordLoginAttempt(true)

	logging.Ctx(r.Context()).Info().
		Str("user_id", resp.UserID.String()).
		Str("role", resp.Role).
		Msg("Login succeeded")

	respondData(w, http.StatusOK, resp, started)
}

// Me returns the account behind the presented token.
//
// @Summary Get the current account
// @Description Returns the authenticated account's id, email, and role.
// @Tags Auth
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.UserInfo} "Account retrieved"
// @Failure 401 {object} models.APIResponse "Missing or invalid token"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.users == nil {
		respondError(w, http.StatusServiceUnavailable, "AUTH_DISABLED", "account management is disabled (AUTH_MODE=none)", nil)
		return
	}

	claims, ok := r.Context().Value(auth.ClaimsContextKey).(*auth.Claims)
	if !ok {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "authentication required", nil)
		return
	}

	user, err := h.users.GetUser(r.Context(), claims.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Valid token, deleted account.
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "account no longer exists", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load account", err)
		return
	}

	respondData(w, http.StatusOK, user.Info(), started)
}

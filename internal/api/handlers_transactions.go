// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/models"
)

// VenueTransactions returns a page of the venue's event ledger, newest
// first. The ledger is the durable record behind the live counters, so
// deltas listed here always sum to the venue's raw occupancy at the time
// of the last entry.
//
// @Summary List a venue's transactions
// @Description Returns the recorded occupancy events for one venue, newest first, with offset pagination. Optional since/until bounds filter on occurrence time.
// @Tags Transactions
// @Produce json
// @Param venueID path string true "Venue UUID"
// @Param since query string false "Only events at or after this RFC3339 time"
// @Param until query string false "Only events at or before this RFC3339 time"
// @Param limit query int false "Page size (default from config, capped)"
// @Param offset query int false "Results to skip"
// @Success 200 {object} models.APIResponse{data=models.TransactionsResponse} "Transactions retrieved successfully"
// @Failure 400 {object} models.APIResponse "Invalid parameters"
// @Failure 401 {object} models.APIResponse "Missing or invalid token"
// @Failure 500 {object} models.APIResponse "Database error"
// @Security BearerAuth
// @Router /venues/{venueID}/transactions [get]
func (h *Handler) VenueTransactions(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	req := TransactionsRequest{
		VenueID: chi.URLParam(r, "venueID"),
		Limit:   getIntParam(r, "limit", h.config.API.DefaultPageSize),
		Offset:  getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "venueID must be a UUID", nil)
		return
	}

	since, err := getTimeParam(r, "since")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	until, err := getTimeParam(r, "until")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	limit := clampPageSize(req.Limit, h.config.API.DefaultPageSize, h.config.API.MaxPageSize)

	txns, err := h.db.ListTransactions(r.Context(), venueID, since, until, limit, req.Offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list transactions", err)
		return
	}
	total, err := h.db.CountTransactions(r.Context(), venueID, since, until)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to count transactions", err)
		return
	}

	resp := models.TransactionsResponse{
		Transactions: make([]models.Transaction, 0, len(txns)),
		Pagination: models.PaginationInfo{
			Limit:   limit,
			Offset:  req.Offset,
			Total:   total,
			HasMore: int64(req.Offset+len(txns)) < total,
		},
	}
	for _, txn := range txns {
		resp.Transactions = append(resp.Transactions, *txn)
	}

	respondData(w, http.StatusOK, resp, started)
}

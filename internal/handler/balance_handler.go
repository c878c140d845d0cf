package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// BalanceHandler handles bank balance snapshot HTTP requests
type BalanceHandler struct {
	balanceService *service.BalanceService
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(balanceService *service.BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceService: balanceService}
}

// RecordBalanceRequest is the JSON request for recording a balance snapshot
type RecordBalanceRequest struct {
	Balance       string     `json:"balance"`
	Currency      string     `json:"currency"`
	EffectiveDate string     `json:"effectiveDate"`
	Notes         string     `json:"notes"`
	BankAccountID *uuid.UUID `json:"bankAccountId,omitempty"`
}

// UpdateBalanceRequest is the JSON request for correcting a balance snapshot
type UpdateBalanceRequest struct {
	Balance string `json:"balance"`
	Notes   string `json:"notes"`
}

// Record records a bank balance snapshot
// @Summary Record balance snapshot
// @Tags balances
// @Security BearerAuth
// @Router /balances [post]
func (h *BalanceHandler) Record(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req RecordBalanceRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		return schemaError(c, "Invalid balance format", "body", "balance")
	}
	effectiveDate, err := parseDate(req.EffectiveDate)
	if err != nil {
		return schemaError(c, "Invalid effectiveDate (expected YYYY-MM-DD)", "body", "effectiveDate")
	}

	snapshot, err := h.balanceService.RecordBalance(dc.Scope(), service.RecordBalanceInput{
		Balance:       balance,
		Currency:      req.Currency,
		EffectiveDate: effectiveDate,
		Notes:         req.Notes,
		BankAccountID: req.BankAccountID,
	})
	if err != nil {
		return balanceError(c, err, "Failed to record balance")
	}
	return c.JSON(http.StatusCreated, snapshot)
}

// Current returns the most recent balance snapshot
// @Summary Get current balance
// @Tags balances
// @Security BearerAuth
// @Router /balances/current [get]
func (h *BalanceHandler) Current(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	snapshot, err := h.balanceService.GetCurrentBalance(dc.Scope())
	if err != nil {
		return balanceError(c, err, "Failed to get current balance")
	}
	return c.JSON(http.StatusOK, snapshot)
}

// List lists balance snapshots, most recent first
// @Summary List balance snapshots
// @Tags balances
// @Security BearerAuth
// @Router /balances [get]
func (h *BalanceHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	snapshots, err := h.balanceService.ListBalances(dc.Scope())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list balances")
		return NewInternalError(c, "Failed to list balances")
	}
	return c.JSON(http.StatusOK, snapshots)
}

// Update corrects a balance snapshot's amount or notes
// @Summary Update balance snapshot
// @Tags balances
// @Security BearerAuth
// @Router /balances/{id} [put]
func (h *BalanceHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid balance ID", "path", "id")
	}

	var req UpdateBalanceRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		return schemaError(c, "Invalid balance format", "body", "balance")
	}

	snapshot, err := h.balanceService.UpdateBalance(dc.Scope(), id, service.UpdateBalanceInput{
		Balance: balance,
		Notes:   req.Notes,
	})
	if err != nil {
		return balanceError(c, err, "Failed to update balance")
	}
	return c.JSON(http.StatusOK, snapshot)
}

// Delete deletes a balance snapshot
// @Summary Delete balance snapshot
// @Tags balances
// @Security BearerAuth
// @Router /balances/{id} [delete]
func (h *BalanceHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid balance ID", "path", "id")
	}

	if err := h.balanceService.DeleteBalance(dc.Scope(), id); err != nil {
		return balanceError(c, err, "Failed to delete balance")
	}
	return c.NoContent(http.StatusNoContent)
}

func balanceError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrBankBalanceNotFound):
		return NewNotFoundError(c, "Balance not found")
	case errors.Is(err, domain.ErrBalanceDateTaken):
		return NewConflictError(c, "A balance already exists for this date")
	case errors.Is(err, domain.ErrAmountTooPrecise), errors.Is(err, domain.ErrAmountTooLarge):
		return NewValidationError(c, "Invalid balance amount")
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Invalid currency")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}

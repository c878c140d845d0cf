package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

const monthLayout = "2006-01"

// ExpectedIncomeHandler handles expected income override HTTP requests
type ExpectedIncomeHandler struct {
	incomeService *service.ExpectedIncomeService
}

// NewExpectedIncomeHandler creates a new ExpectedIncomeHandler
func NewExpectedIncomeHandler(incomeService *service.ExpectedIncomeService) *ExpectedIncomeHandler {
	return &ExpectedIncomeHandler{incomeService: incomeService}
}

// ExpectedIncomeRequest is the JSON request for setting a month's expected income
type ExpectedIncomeRequest struct {
	Month  string `json:"month"`
	Amount string `json:"amount"`
	Notes  string `json:"notes"`
}

// parseMonth accepts YYYY-MM or YYYY-MM-DD and normalises to the first of the month
func parseMonth(s string) (time.Time, error) {
	if t, err := time.Parse(monthLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// Set creates or replaces the expected income for a month
// @Summary Set expected income
// @Tags expected-income
// @Security BearerAuth
// @Router /expected-income [put]
func (h *ExpectedIncomeHandler) Set(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req ExpectedIncomeRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		return schemaError(c, "Invalid month (expected YYYY-MM)", "body", "month")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return schemaError(c, "Invalid amount format", "body", "amount")
	}

	income, err := h.incomeService.SetExpectedIncome(dc.Scope(), month, amount, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountTooPrecise),
			errors.Is(err, domain.ErrAmountTooLarge):
			return NewValidationError(c, "Invalid amount")
		}
		log.Error().Err(err).Msg("Failed to set expected income")
		return NewInternalError(c, "Failed to set expected income")
	}
	return c.JSON(http.StatusOK, income)
}

// Get retrieves the expected income for a month
// @Summary Get expected income
// @Tags expected-income
// @Security BearerAuth
// @Router /expected-income/{month} [get]
func (h *ExpectedIncomeHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	month, err := parseMonth(c.Param("month"))
	if err != nil {
		return schemaError(c, "Invalid month (expected YYYY-MM)", "path", "month")
	}

	income, err := h.incomeService.GetExpectedIncome(dc.Scope(), month)
	if err != nil {
		if errors.Is(err, domain.ErrExpectedIncomeNotFound) {
			return NewNotFoundError(c, "Expected income not set for this month")
		}
		log.Error().Err(err).Msg("Failed to get expected income")
		return NewInternalError(c, "Failed to get expected income")
	}
	return c.JSON(http.StatusOK, income)
}

// List lists expected income overrides within a month range
// @Summary List expected income
// @Tags expected-income
// @Security BearerAuth
// @Router /expected-income [get]
func (h *ExpectedIncomeHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	from, err := parseMonth(c.QueryParam("from"))
	if err != nil {
		return schemaError(c, "Invalid from month (expected YYYY-MM)", "query", "from")
	}
	to, err := parseMonth(c.QueryParam("to"))
	if err != nil {
		return schemaError(c, "Invalid to month (expected YYYY-MM)", "query", "to")
	}

	incomes, err := h.incomeService.ListExpectedIncome(dc.Scope(), from, to)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expected income")
		return NewInternalError(c, "Failed to list expected income")
	}
	return c.JSON(http.StatusOK, incomes)
}

// Delete removes an expected income override
// @Summary Delete expected income
// @Tags expected-income
// @Security BearerAuth
// @Router /expected-income/{id} [delete]
func (h *ExpectedIncomeHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid expected income ID", "path", "id")
	}

	if err := h.incomeService.DeleteExpectedIncome(dc.Scope(), id); err != nil {
		if errors.Is(err, domain.ErrExpectedIncomeNotFound) {
			return NewNotFoundError(c, "Expected income not found")
		}
		log.Error().Err(err).Msg("Failed to delete expected income")
		return NewInternalError(c, "Failed to delete expected income")
	}
	return c.NoContent(http.StatusNoContent)
}

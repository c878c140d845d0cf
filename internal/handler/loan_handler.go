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

// LoanHandler handles loan related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest is the JSON request for creating a loan
type CreateLoanRequest struct {
	Name           string     `json:"name"`
	OriginalAmount string     `json:"originalAmount"`
	MonthlyPayment string     `json:"monthlyPayment"`
	InterestRate   string     `json:"interestRate"`
	TotalPayments  int32      `json:"totalPayments"`
	StartDate      string     `json:"startDate"`
	DayOfMonth     int32      `json:"dayOfMonth"`
	CategoryID     *uuid.UUID `json:"categoryId,omitempty"`
	Currency       string     `json:"currency"`
}

// UpdateLoanRequest is the JSON request for updating a loan
type UpdateLoanRequest struct {
	Name       string     `json:"name"`
	CategoryID *uuid.UUID `json:"categoryId,omitempty"`
	DayOfMonth int32      `json:"dayOfMonth"`
}

// LoanPayRequest optionally overrides the charged amount for a manual
// payment. An empty body charges the scheduled monthly payment.
type LoanPayRequest struct {
	Amount *string `json:"amount,omitempty"`
}

// LoanPaymentResponse pairs the updated loan with the transaction it produced
type LoanPaymentResponse struct {
	Loan        *domain.Loan        `json:"loan"`
	Transaction *domain.Transaction `json:"transaction"`
}

// Create creates a loan
// @Summary Create loan
// @Tags loans
// @Security BearerAuth
// @Router /loans [post]
func (h *LoanHandler) Create(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	originalAmount, err := decimal.NewFromString(req.OriginalAmount)
	if err != nil {
		return schemaError(c, "Invalid originalAmount format", "body", "originalAmount")
	}
	monthlyPayment, err := decimal.NewFromString(req.MonthlyPayment)
	if err != nil {
		return schemaError(c, "Invalid monthlyPayment format", "body", "monthlyPayment")
	}
	interestRate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		return schemaError(c, "Invalid interestRate format", "body", "interestRate")
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return schemaError(c, "Invalid startDate (expected YYYY-MM-DD)", "body", "startDate")
	}

	loan, err := h.loanService.CreateLoan(dc.Scope(), service.CreateLoanInput{
		Name:           req.Name,
		OriginalAmount: originalAmount,
		MonthlyPayment: monthlyPayment,
		InterestRate:   interestRate,
		TotalPayments:  req.TotalPayments,
		StartDate:      startDate,
		DayOfMonth:     req.DayOfMonth,
		CategoryID:     req.CategoryID,
		Currency:       req.Currency,
	})
	if err != nil {
		return loanError(c, err, "Failed to create loan")
	}
	return c.JSON(http.StatusCreated, loan)
}

// List lists the scope's loans, optionally filtered by status
// @Summary List loans
// @Tags loans
// @Security BearerAuth
// @Router /loans [get]
func (h *LoanHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	filter := domain.LoanFilterAll
	if s := c.QueryParam("filter"); s != "" {
		filter = domain.LoanFilter(s)
	}

	loans, err := h.loanService.ListLoans(dc.Scope(), filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Invalid loan filter")
		}
		log.Error().Err(err).Msg("Failed to list loans")
		return NewInternalError(c, "Failed to list loans")
	}
	return c.JSON(http.StatusOK, loans)
}

// Get retrieves a loan
// @Summary Get loan
// @Tags loans
// @Security BearerAuth
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid loan ID", "path", "id")
	}

	loan, err := h.loanService.GetLoan(dc.Scope(), id)
	if err != nil {
		return loanError(c, err, "Failed to get loan")
	}
	return c.JSON(http.StatusOK, loan)
}

// Schedule returns the loan's full amortization schedule
// @Summary Get loan amortization schedule
// @Tags loans
// @Security BearerAuth
// @Router /loans/{id}/schedule [get]
func (h *LoanHandler) Schedule(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid loan ID", "path", "id")
	}

	schedule, err := h.loanService.Schedule(dc.Scope(), id)
	if err != nil {
		return loanError(c, err, "Failed to compute loan schedule")
	}
	return c.JSON(http.StatusOK, schedule)
}

// Update updates a loan's name, category or charge day
// @Summary Update loan
// @Tags loans
// @Security BearerAuth
// @Router /loans/{id} [put]
func (h *LoanHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid loan ID", "path", "id")
	}

	var req UpdateLoanRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	loan, err := h.loanService.UpdateLoan(dc.Scope(), id, service.UpdateLoanInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		DayOfMonth: req.DayOfMonth,
	})
	if err != nil {
		return loanError(c, err, "Failed to update loan")
	}
	return c.JSON(http.StatusOK, loan)
}

// Delete deletes a loan
// @Summary Delete loan
// @Tags loans
// @Security BearerAuth
// @Router /loans/{id} [delete]
func (h *LoanHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid loan ID", "path", "id")
	}

	if err := h.loanService.DeleteLoan(dc.Scope(), id); err != nil {
		return loanError(c, err, "Failed to delete loan")
	}
	return c.NoContent(http.StatusNoContent)
}

// Pay records the loan's next monthly payment
// @Summary Record loan payment
// @Tags loans
// @Security BearerAuth
// @Router /loans/{id}/pay [post]
func (h *LoanHandler) Pay(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid loan ID", "path", "id")
	}

	var req LoanPayRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	var amount *decimal.Decimal
	if req.Amount != nil {
		parsed, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return schemaError(c, "Invalid amount format", "body", "amount")
		}
		amount = &parsed
	}

	loan, transaction, err := h.loanService.RecordPayment(dc.Scope(), id, amount)
	if err != nil {
		return loanError(c, err, "Failed to record loan payment")
	}
	return c.JSON(http.StatusOK, LoanPaymentResponse{Loan: loan, Transaction: transaction})
}

// Reverse undoes the most recent loan payment
// @Summary Reverse loan payment
// @Tags loans
// @Security BearerAuth
// @Router /loans/{id}/reverse [post]
func (h *LoanHandler) Reverse(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid loan ID", "path", "id")
	}

	loan, err := h.loanService.ReversePayment(dc.Scope(), id)
	if err != nil {
		return loanError(c, err, "Failed to reverse loan payment")
	}
	return c.JSON(http.StatusOK, loan)
}

func loanError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrLoanNotFound):
		return NewNotFoundError(c, "Loan not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		return NewNotFoundError(c, "Category not found")
	case errors.Is(err, domain.ErrLoanCompleted):
		return NewConflictError(c, "Loan is already completed")
	case errors.Is(err, domain.ErrLoanNoPayments):
		return NewConflictError(c, "Loan has no payments to reverse")
	case errors.Is(err, domain.ErrCategoryArchived):
		return NewConflictError(c, "Category is archived")
	case errors.Is(err, domain.ErrLoanNeverAmortises):
		return NewValidationError(c, "Monthly payment does not cover the monthly interest")
	case errors.Is(err, domain.ErrLoanPaymentsInvalid):
		return NewValidationError(c, "Total payments must be positive")
	case errors.Is(err, domain.ErrLoanOverpayment):
		return NewValidationError(c, "Payment exceeds remaining balance")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountTooPrecise),
		errors.Is(err, domain.ErrAmountTooLarge):
		return NewValidationError(c, "Invalid amount")
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Invalid currency")
	case errors.Is(err, domain.ErrDayOfMonthInvalid):
		return NewValidationError(c, "Day of month must be between 1 and 31")
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Invalid loan name")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}

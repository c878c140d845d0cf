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

// InstallmentHandler handles installment plan related HTTP requests
type InstallmentHandler struct {
	installmentService *service.InstallmentService
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(installmentService *service.InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{installmentService: installmentService}
}

// CreateInstallmentRequest is the JSON request for creating an installment plan
type CreateInstallmentRequest struct {
	Name             string     `json:"name"`
	TotalAmount      string     `json:"totalAmount"`
	NumberOfPayments int32      `json:"numberOfPayments"`
	Type             string     `json:"type"`
	CategoryID       *uuid.UUID `json:"categoryId,omitempty"`
	StartDate        string     `json:"startDate"`
	DayOfMonth       int32      `json:"dayOfMonth"`
	Currency         string     `json:"currency"`
}

// UpdateInstallmentRequest is the JSON request for updating an installment plan
type UpdateInstallmentRequest struct {
	Name       string     `json:"name"`
	CategoryID *uuid.UUID `json:"categoryId,omitempty"`
	DayOfMonth int32      `json:"dayOfMonth"`
}

// InstallmentPaymentResponse pairs the updated plan with the transaction it produced
type InstallmentPaymentResponse struct {
	Installment *domain.Installment `json:"installment"`
	Transaction *domain.Transaction `json:"transaction"`
}

// Create creates an installment plan
// @Summary Create installment plan
// @Tags installments
// @Security BearerAuth
// @Router /installments [post]
func (h *InstallmentHandler) Create(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	totalAmount, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return schemaError(c, "Invalid totalAmount format", "body", "totalAmount")
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return schemaError(c, "Invalid startDate (expected YYYY-MM-DD)", "body", "startDate")
	}

	installment, err := h.installmentService.CreateInstallment(dc.Scope(), service.CreateInstallmentInput{
		Name:             req.Name,
		TotalAmount:      totalAmount,
		NumberOfPayments: req.NumberOfPayments,
		Type:             domain.TransactionType(req.Type),
		CategoryID:       req.CategoryID,
		StartDate:        startDate,
		DayOfMonth:       req.DayOfMonth,
		Currency:         req.Currency,
	})
	if err != nil {
		return installmentError(c, err, "Failed to create installment plan")
	}
	return c.JSON(http.StatusCreated, installment)
}

// List lists the scope's installment plans
// @Summary List installment plans
// @Tags installments
// @Security BearerAuth
// @Router /installments [get]
func (h *InstallmentHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	installments, err := h.installmentService.ListInstallments(dc.Scope())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list installment plans")
		return NewInternalError(c, "Failed to list installment plans")
	}
	return c.JSON(http.StatusOK, installments)
}

// Get retrieves an installment plan
// @Summary Get installment plan
// @Tags installments
// @Security BearerAuth
// @Router /installments/{id} [get]
func (h *InstallmentHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid installment ID", "path", "id")
	}

	installment, err := h.installmentService.GetInstallment(dc.Scope(), id)
	if err != nil {
		return installmentError(c, err, "Failed to get installment plan")
	}
	return c.JSON(http.StatusOK, installment)
}

// Update updates an installment plan's name, category or charge day
// @Summary Update installment plan
// @Tags installments
// @Security BearerAuth
// @Router /installments/{id} [put]
func (h *InstallmentHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid installment ID", "path", "id")
	}

	var req UpdateInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	installment, err := h.installmentService.UpdateInstallment(dc.Scope(), id, service.UpdateInstallmentInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		DayOfMonth: req.DayOfMonth,
	})
	if err != nil {
		return installmentError(c, err, "Failed to update installment plan")
	}
	return c.JSON(http.StatusOK, installment)
}

// Delete deletes an installment plan
// @Summary Delete installment plan
// @Tags installments
// @Security BearerAuth
// @Router /installments/{id} [delete]
func (h *InstallmentHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid installment ID", "path", "id")
	}

	if err := h.installmentService.DeleteInstallment(dc.Scope(), id); err != nil {
		return installmentError(c, err, "Failed to delete installment plan")
	}
	return c.NoContent(http.StatusNoContent)
}

// Pay records the next payment of an installment plan
// @Summary Pay installment
// @Tags installments
// @Security BearerAuth
// @Router /installments/{id}/pay [post]
func (h *InstallmentHandler) Pay(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid installment ID", "path", "id")
	}

	installment, transaction, err := h.installmentService.PayInstallment(dc.Scope(), id)
	if err != nil {
		return installmentError(c, err, "Failed to pay installment")
	}
	return c.JSON(http.StatusOK, InstallmentPaymentResponse{Installment: installment, Transaction: transaction})
}

// Reverse undoes the most recent installment payment
// @Summary Reverse installment payment
// @Tags installments
// @Security BearerAuth
// @Router /installments/{id}/reverse [post]
func (h *InstallmentHandler) Reverse(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid installment ID", "path", "id")
	}

	installment, err := h.installmentService.ReverseInstallmentPayment(dc.Scope(), id)
	if err != nil {
		return installmentError(c, err, "Failed to reverse installment payment")
	}
	return c.JSON(http.StatusOK, installment)
}

func installmentError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrInstallmentNotFound):
		return NewNotFoundError(c, "Installment plan not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		return NewNotFoundError(c, "Category not found")
	case errors.Is(err, domain.ErrInstallmentFullyPaid):
		return NewConflictError(c, "Installment plan is already fully paid")
	case errors.Is(err, domain.ErrInstallmentNoPayments):
		return NewConflictError(c, "Installment plan has no payments to reverse")
	case errors.Is(err, domain.ErrCategoryArchived):
		return NewConflictError(c, "Category is archived")
	case errors.Is(err, domain.ErrInstallmentCountInvalid):
		return NewValidationError(c, "Number of payments must be between 1 and 360")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountTooPrecise),
		errors.Is(err, domain.ErrAmountTooLarge):
		return NewValidationError(c, "Invalid amount")
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return NewValidationError(c, "Invalid installment type")
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Invalid currency")
	case errors.Is(err, domain.ErrDayOfMonthInvalid):
		return NewValidationError(c, "Day of month must be between 1 and 31")
	case errors.Is(err, domain.ErrCategoryTypeMismatch):
		return NewValidationError(c, "Category type does not match the installment type")
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Invalid installment name")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}

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

// ApprovalHandler handles expense approval workflow HTTP requests
type ApprovalHandler struct {
	approvalService *service.ApprovalService
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(approvalService *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

// SubmitApprovalRequest is the JSON request for submitting an expense for approval
type SubmitApprovalRequest struct {
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
	Description string     `json:"description"`
}

// RejectApprovalRequest is the JSON request for rejecting an expense
type RejectApprovalRequest struct {
	Reason string `json:"reason"`
}

// Submit submits an org expense for approval
// @Summary Submit expense approval
// @Tags approvals
// @Security BearerAuth
// @Router /approvals [post]
func (h *ApprovalHandler) Submit(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req SubmitApprovalRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return schemaError(c, "Invalid amount format", "body", "amount")
	}

	approval, err := h.approvalService.SubmitApproval(dc, service.SubmitApprovalInput{
		Amount:      amount,
		Currency:    req.Currency,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	})
	if err != nil {
		return approvalError(c, err, "Failed to submit approval")
	}
	return c.JSON(http.StatusCreated, approval)
}

// List lists the organization's expense approvals
// @Summary List expense approvals
// @Tags approvals
// @Security BearerAuth
// @Router /approvals [get]
func (h *ApprovalHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var status *domain.ApprovalStatus
	if s := c.QueryParam("status"); s != "" {
		st := domain.ApprovalStatus(s)
		switch st {
		case domain.ApprovalPending, domain.ApprovalApproved, domain.ApprovalRejected:
			status = &st
		default:
			return schemaError(c, "Invalid approval status", "query", "status")
		}
	}

	approvals, err := h.approvalService.ListApprovals(dc, status)
	if err != nil {
		return approvalError(c, err, "Failed to list approvals")
	}
	return c.JSON(http.StatusOK, approvals)
}

// Get retrieves an expense approval
// @Summary Get expense approval
// @Tags approvals
// @Security BearerAuth
// @Router /approvals/{id} [get]
func (h *ApprovalHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid approval ID", "path", "id")
	}

	approval, err := h.approvalService.GetApproval(dc, id)
	if err != nil {
		return approvalError(c, err, "Failed to get approval")
	}
	return c.JSON(http.StatusOK, approval)
}

// Approve resolves a pending approval as approved
// @Summary Approve expense
// @Tags approvals
// @Security BearerAuth
// @Router /approvals/{id}/approve [post]
func (h *ApprovalHandler) Approve(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid approval ID", "path", "id")
	}

	approval, err := h.approvalService.ApproveExpense(dc, id)
	if err != nil {
		return approvalError(c, err, "Failed to approve expense")
	}
	return c.JSON(http.StatusOK, approval)
}

// Reject resolves a pending approval as rejected with a reason
// @Summary Reject expense
// @Tags approvals
// @Security BearerAuth
// @Router /approvals/{id}/reject [post]
func (h *ApprovalHandler) Reject(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid approval ID", "path", "id")
	}

	var req RejectApprovalRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	approval, err := h.approvalService.RejectExpense(dc, id, req.Reason)
	if err != nil {
		return approvalError(c, err, "Failed to reject expense")
	}
	return c.JSON(http.StatusOK, approval)
}

func approvalError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, "Organization context and sufficient role required")
	case errors.Is(err, domain.ErrApprovalNotFound):
		return NewNotFoundError(c, "Approval not found")
	case errors.Is(err, domain.ErrApprovalResolved):
		return NewConflictError(c, "Approval is already resolved")
	case errors.Is(err, domain.ErrRejectionReasonNeeded):
		return NewValidationError(c, "Rejection reason is required")
	case errors.Is(err, domain.ErrCategoryNotFound):
		return NewNotFoundError(c, "Category not found")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountTooPrecise),
		errors.Is(err, domain.ErrAmountTooLarge):
		return NewValidationError(c, "Invalid amount")
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Invalid currency")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}

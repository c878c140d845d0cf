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

// SubscriptionHandler handles subscription related HTTP requests
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// SubscriptionRequest is the JSON request for creating or updating a subscription
type SubscriptionRequest struct {
	Name            string     `json:"name"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	BillingCycle    string     `json:"billingCycle"`
	NextRenewalDate string     `json:"nextRenewalDate"`
	AutoRenew       bool       `json:"autoRenew"`
	Provider        string     `json:"provider"`
	CreditCardID    *uuid.UUID `json:"creditCardId,omitempty"`
	CategoryID      *uuid.UUID `json:"categoryId,omitempty"`
}

// MonthlyCommitmentResponse is the normalised monthly cost of active subscriptions
type MonthlyCommitmentResponse struct {
	MonthlyCommitment decimal.Decimal `json:"monthlyCommitment"`
}

// Create creates a subscription
// @Summary Create subscription
// @Tags subscriptions
// @Security BearerAuth
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Create(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req SubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return schemaError(c, "Invalid amount format", "body", "amount")
	}
	nextRenewal, err := parseDate(req.NextRenewalDate)
	if err != nil {
		return schemaError(c, "Invalid nextRenewalDate (expected YYYY-MM-DD)", "body", "nextRenewalDate")
	}

	subscription, err := h.subscriptionService.CreateSubscription(dc.Scope(), service.CreateSubscriptionInput{
		Name:            req.Name,
		Amount:          amount,
		Currency:        req.Currency,
		BillingCycle:    domain.BillingCycle(req.BillingCycle),
		NextRenewalDate: nextRenewal,
		AutoRenew:       req.AutoRenew,
		Provider:        req.Provider,
		CreditCardID:    req.CreditCardID,
		CategoryID:      req.CategoryID,
	})
	if err != nil {
		return subscriptionError(c, err, "Failed to create subscription")
	}
	return c.JSON(http.StatusCreated, subscription)
}

// List lists the scope's subscriptions
// @Summary List subscriptions
// @Tags subscriptions
// @Security BearerAuth
// @Router /subscriptions [get]
func (h *SubscriptionHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	activeOnly := c.QueryParam("activeOnly") == "true"
	subscriptions, err := h.subscriptionService.ListSubscriptions(dc.Scope(), activeOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list subscriptions")
		return NewInternalError(c, "Failed to list subscriptions")
	}
	return c.JSON(http.StatusOK, subscriptions)
}

// Commitment returns the monthly cost of all active subscriptions
// @Summary Get monthly subscription commitment
// @Tags subscriptions
// @Security BearerAuth
// @Router /subscriptions/commitment [get]
func (h *SubscriptionHandler) Commitment(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	total, err := h.subscriptionService.MonthlyCommitment(dc.Scope())
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute subscription commitment")
		return NewInternalError(c, "Failed to compute subscription commitment")
	}
	return c.JSON(http.StatusOK, MonthlyCommitmentResponse{MonthlyCommitment: total})
}

// Get retrieves a subscription
// @Summary Get subscription
// @Tags subscriptions
// @Security BearerAuth
// @Router /subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid subscription ID", "path", "id")
	}

	subscription, err := h.subscriptionService.GetSubscription(dc.Scope(), id)
	if err != nil {
		return subscriptionError(c, err, "Failed to get subscription")
	}
	return c.JSON(http.StatusOK, subscription)
}

// Update updates a subscription
// @Summary Update subscription
// @Tags subscriptions
// @Security BearerAuth
// @Router /subscriptions/{id} [put]
func (h *SubscriptionHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid subscription ID", "path", "id")
	}

	var req SubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return schemaError(c, "Invalid amount format", "body", "amount")
	}
	nextRenewal, err := parseDate(req.NextRenewalDate)
	if err != nil {
		return schemaError(c, "Invalid nextRenewalDate (expected YYYY-MM-DD)", "body", "nextRenewalDate")
	}

	subscription, err := h.subscriptionService.UpdateSubscription(dc.Scope(), id, service.UpdateSubscriptionInput{
		Name:            req.Name,
		Amount:          amount,
		Currency:        req.Currency,
		BillingCycle:    domain.BillingCycle(req.BillingCycle),
		NextRenewalDate: nextRenewal,
		AutoRenew:       req.AutoRenew,
		Provider:        req.Provider,
		CreditCardID:    req.CreditCardID,
		CategoryID:      req.CategoryID,
	})
	if err != nil {
		return subscriptionError(c, err, "Failed to update subscription")
	}
	return c.JSON(http.StatusOK, subscription)
}

// Pause pauses a subscription
// @Summary Pause subscription
// @Tags subscriptions
// @Security BearerAuth
// @Router /subscriptions/{id}/pause [post]
func (h *SubscriptionHandler) Pause(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid subscription ID", "path", "id")
	}

	subscription, err := h.subscriptionService.PauseSubscription(dc.Scope(), id)
	if err != nil {
		return subscriptionError(c, err, "Failed to pause subscription")
	}
	return c.JSON(http.StatusOK, subscription)
}

// Resume resumes a paused subscription
// @Summary Resume subscription
// @Tags subscriptions
// @Security BearerAuth
// @Router /subscriptions/{id}/resume [post]
func (h *SubscriptionHandler) Resume(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid subscription ID", "path", "id")
	}

	subscription, err := h.subscriptionService.ResumeSubscription(dc.Scope(), id)
	if err != nil {
		return subscriptionError(c, err, "Failed to resume subscription")
	}
	return c.JSON(http.StatusOK, subscription)
}

// Cancel cancels a subscription
// @Summary Cancel subscription
// @Tags subscriptions
// @Security BearerAuth
// @Router /subscriptions/{id} [delete]
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid subscription ID", "path", "id")
	}

	if err := h.subscriptionService.CancelSubscription(dc.Scope(), id); err != nil {
		return subscriptionError(c, err, "Failed to cancel subscription")
	}
	return c.NoContent(http.StatusNoContent)
}

func subscriptionError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		return NewNotFoundError(c, "Subscription not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		return NewNotFoundError(c, "Category not found")
	case errors.Is(err, domain.ErrCreditCardNotFound):
		return NewNotFoundError(c, "Credit card not found")
	case errors.Is(err, domain.ErrBillingCycleInvalid):
		return NewValidationError(c, "Invalid billing cycle")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountTooPrecise),
		errors.Is(err, domain.ErrAmountTooLarge):
		return NewValidationError(c, "Invalid amount")
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Invalid currency")
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Invalid subscription name")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}

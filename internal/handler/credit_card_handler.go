package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// CreditCardHandler handles credit card related HTTP requests
type CreditCardHandler struct {
	cardService *service.CreditCardService
}

// NewCreditCardHandler creates a new CreditCardHandler
func NewCreditCardHandler(cardService *service.CreditCardService) *CreditCardHandler {
	return &CreditCardHandler{cardService: cardService}
}

// CreateCreditCardRequest is the JSON request for registering a credit card
type CreateCreditCardRequest struct {
	Name           string `json:"name"`
	LastFourDigits string `json:"lastFourDigits"`
	CardNetwork    string `json:"cardNetwork"`
	Issuer         string `json:"issuer"`
	CreditLimit    string `json:"creditLimit"`
	BillingDay     int32  `json:"billingDay"`
	Currency       string `json:"currency"`
	Color          string `json:"color"`
}

// UpdateCreditCardRequest is the JSON request for updating a credit card
type UpdateCreditCardRequest struct {
	Name        string `json:"name"`
	CardNetwork string `json:"cardNetwork"`
	Issuer      string `json:"issuer"`
	CreditLimit string `json:"creditLimit"`
	BillingDay  int32  `json:"billingDay"`
	Color       string `json:"color"`
	IsActive    bool   `json:"isActive"`
}

// Create registers a credit card
// @Summary Create credit card
// @Tags credit-cards
// @Security BearerAuth
// @Router /credit-cards [post]
func (h *CreditCardHandler) Create(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateCreditCardRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	creditLimit, err := decimal.NewFromString(req.CreditLimit)
	if err != nil {
		return schemaError(c, "Invalid creditLimit format", "body", "creditLimit")
	}

	card, err := h.cardService.CreateCreditCard(dc.Scope(), service.CreateCreditCardInput{
		Name:           req.Name,
		LastFourDigits: req.LastFourDigits,
		CardNetwork:    req.CardNetwork,
		Issuer:         req.Issuer,
		CreditLimit:    creditLimit,
		BillingDay:     req.BillingDay,
		Currency:       req.Currency,
		Color:          req.Color,
	})
	if err != nil {
		return creditCardError(c, err, "Failed to create credit card")
	}
	return c.JSON(http.StatusCreated, card)
}

// List lists the scope's credit cards
// @Summary List credit cards
// @Tags credit-cards
// @Security BearerAuth
// @Router /credit-cards [get]
func (h *CreditCardHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	activeOnly := c.QueryParam("activeOnly") == "true"
	cards, err := h.cardService.ListCreditCards(dc.Scope(), activeOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list credit cards")
		return NewInternalError(c, "Failed to list credit cards")
	}
	return c.JSON(http.StatusOK, cards)
}

// Get retrieves a credit card
// @Summary Get credit card
// @Tags credit-cards
// @Security BearerAuth
// @Router /credit-cards/{id} [get]
func (h *CreditCardHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid credit card ID", "path", "id")
	}

	card, err := h.cardService.GetCreditCard(dc.Scope(), id)
	if err != nil {
		return creditCardError(c, err, "Failed to get credit card")
	}
	return c.JSON(http.StatusOK, card)
}

// Update updates a credit card
// @Summary Update credit card
// @Tags credit-cards
// @Security BearerAuth
// @Router /credit-cards/{id} [put]
func (h *CreditCardHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid credit card ID", "path", "id")
	}

	var req UpdateCreditCardRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	creditLimit, err := decimal.NewFromString(req.CreditLimit)
	if err != nil {
		return schemaError(c, "Invalid creditLimit format", "body", "creditLimit")
	}

	card, err := h.cardService.UpdateCreditCard(dc.Scope(), id, service.UpdateCreditCardInput{
		Name:        req.Name,
		CardNetwork: req.CardNetwork,
		Issuer:      req.Issuer,
		CreditLimit: creditLimit,
		BillingDay:  req.BillingDay,
		Color:       req.Color,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return creditCardError(c, err, "Failed to update credit card")
	}
	return c.JSON(http.StatusOK, card)
}

// Delete deactivates a credit card
// @Summary Delete credit card
// @Tags credit-cards
// @Security BearerAuth
// @Router /credit-cards/{id} [delete]
func (h *CreditCardHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid credit card ID", "path", "id")
	}

	if err := h.cardService.DeleteCreditCard(dc.Scope(), id); err != nil {
		return creditCardError(c, err, "Failed to delete credit card")
	}
	return c.NoContent(http.StatusNoContent)
}

func creditCardError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrCreditCardNotFound):
		return NewNotFoundError(c, "Credit card not found")
	case errors.Is(err, domain.ErrBillingDayInvalid):
		return NewValidationError(c, "Billing day must be between 1 and 28")
	case errors.Is(err, domain.ErrCreditLimitInvalid):
		return NewValidationError(c, "Credit limit must be positive")
	case errors.Is(err, domain.ErrLastFourInvalid):
		return NewValidationError(c, "Last four digits must be exactly 4 digits")
	case errors.Is(err, domain.ErrColorInvalid):
		return NewValidationError(c, "Invalid color")
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Invalid currency")
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Invalid card name")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}

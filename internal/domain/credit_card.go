package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCreditCardNotFound = errors.New("credit card not found")
	ErrBillingDayInvalid  = errors.New("billing day must be between 1 and 28")
	ErrCreditLimitInvalid = errors.New("credit limit must be positive")
	ErrLastFourInvalid    = errors.New("last four digits must be exactly 4 digits")
)

// CreditCard is a payment card used by transactions and subscriptions.
type CreditCard struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	OrganizationID *uuid.UUID      `json:"organizationId,omitempty"`
	Name           string          `json:"name"`
	LastFourDigits string          `json:"lastFourDigits"`
	CardNetwork    string          `json:"cardNetwork"`
	Issuer         string          `json:"issuer"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	BillingDay     int32           `json:"billingDay"`
	Currency       string          `json:"currency"`
	IsActive       bool            `json:"isActive"`
	Color          string          `json:"color"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (c *CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if len(c.LastFourDigits) != 4 {
		return ErrLastFourInvalid
	}
	for _, r := range c.LastFourDigits {
		if r < '0' || r > '9' {
			return ErrLastFourInvalid
		}
	}
	if c.CreditLimit.LessThanOrEqual(decimal.Zero) {
		return ErrCreditLimitInvalid
	}
	if c.BillingDay < 1 || c.BillingDay > 28 {
		return ErrBillingDayInvalid
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return ErrColorInvalid
	}
	return ValidateCurrency(c.Currency)
}

// CreditCardRepository is the persistence contract for credit cards.
type CreditCardRepository interface {
	Create(scope Scope, card *CreditCard) (*CreditCard, error)
	GetByID(scope Scope, id uuid.UUID) (*CreditCard, error)
	List(scope Scope, activeOnly bool) ([]*CreditCard, error)
	Update(scope Scope, card *CreditCard) (*CreditCard, error)
	Delete(scope Scope, id uuid.UUID) error
}

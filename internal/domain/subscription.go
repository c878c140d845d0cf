package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrBillingCycleInvalid  = errors.New("invalid billing cycle")
)

// BillingCycle is a closed enumeration of renewal intervals.
type BillingCycle string

const (
	CycleMonthly    BillingCycle = "monthly"
	CycleQuarterly  BillingCycle = "quarterly"
	CycleSemiAnnual BillingCycle = "semi_annual"
	CycleAnnual     BillingCycle = "annual"
)

// Months returns the interval length in months.
func (c BillingCycle) Months() int {
	switch c {
	case CycleMonthly:
		return 1
	case CycleQuarterly:
		return 3
	case CycleSemiAnnual:
		return 6
	case CycleAnnual:
		return 12
	}
	return 0
}

func (c BillingCycle) Valid() bool {
	return c.Months() > 0
}

// Subscription is a recurring paid service.
type Subscription struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	OrganizationID  *uuid.UUID      `json:"organizationId,omitempty"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BillingCycle    BillingCycle    `json:"billingCycle"`
	NextRenewalDate time.Time       `json:"nextRenewalDate"`
	IsActive        bool            `json:"isActive"`
	PausedAt        *time.Time      `json:"pausedAt,omitempty"`
	AutoRenew       bool            `json:"autoRenew"`
	Provider        string          `json:"provider"`
	CreditCardID    *uuid.UUID      `json:"creditCardId,omitempty"`
	CategoryID      *uuid.UUID      `json:"categoryId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (s *Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrNameRequired
	}
	if len(s.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := ValidateAmount(s.Amount); err != nil {
		return err
	}
	if !s.BillingCycle.Valid() {
		return ErrBillingCycleInvalid
	}
	return ValidateCurrency(s.Currency)
}

// MonthlyCost normalises the subscription cost to a per-month amount.
func (s *Subscription) MonthlyCost() decimal.Decimal {
	return s.Amount.DivRound(decimal.NewFromInt(int64(s.BillingCycle.Months())), 2)
}

// SubscriptionRepository is the persistence contract for subscriptions.
type SubscriptionRepository interface {
	Create(scope Scope, sub *Subscription) (*Subscription, error)
	GetByID(scope Scope, id uuid.UUID) (*Subscription, error)
	List(scope Scope, activeOnly bool) ([]*Subscription, error)
	Update(scope Scope, sub *Subscription) (*Subscription, error)
	Delete(scope Scope, id uuid.UUID) error
}

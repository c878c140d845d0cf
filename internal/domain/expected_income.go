package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrExpectedIncomeNotFound = errors.New("expected income not found")
	ErrExpectedIncomeExists   = errors.New("expected income already set for this month")
)

// ExpectedIncome is a per-month income estimate used by the forecast when no
// materialised income exists yet. Unique on (scope, month); Month is always
// the first of the month.
type ExpectedIncome struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	OrganizationID *uuid.UUID      `json:"organizationId,omitempty"`
	Month          time.Time       `json:"month"`
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	Notes          string          `json:"notes"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (e *ExpectedIncome) Validate() error {
	if err := ValidateAmount(e.ExpectedAmount); err != nil {
		return err
	}
	if e.Month.Day() != 1 {
		return ErrInvalidInput
	}
	return nil
}

// ExpectedIncomeRepository is the persistence contract for expected income.
type ExpectedIncomeRepository interface {
	Upsert(scope Scope, income *ExpectedIncome) (*ExpectedIncome, error)
	GetByMonth(scope Scope, month time.Time) (*ExpectedIncome, error)
	ListRange(scope Scope, start, end time.Time) ([]*ExpectedIncome, error)
	Delete(scope Scope, id uuid.UUID) error
}

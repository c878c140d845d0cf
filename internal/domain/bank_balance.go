package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBankBalanceNotFound = errors.New("bank balance not found")
	ErrBalanceDateTaken    = errors.New("a balance already exists for this date")
)

// BankBalance is a point-in-time statement of an account balance. At most
// one row per scope has IsCurrent = true; inserting a new current balance
// flips any other current row to false.
type BankBalance struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	OrganizationID *uuid.UUID      `json:"organizationId,omitempty"`
	Balance        decimal.Decimal `json:"balance"` // may be negative
	Currency       string          `json:"currency"`
	EffectiveDate  time.Time       `json:"effectiveDate"`
	IsCurrent      bool            `json:"isCurrent"`
	Notes          string          `json:"notes"`
	BankAccountID  *uuid.UUID      `json:"bankAccountId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (b *BankBalance) Validate() error {
	if err := ValidateCurrency(b.Currency); err != nil {
		return err
	}
	if b.EffectiveDate.IsZero() {
		return ErrInvalidInput
	}
	return nil
}

// BankBalanceRepository is the persistence contract for bank balances.
// Create flips the previous current row inside the same transaction when the
// new row is current.
type BankBalanceRepository interface {
	Create(scope Scope, balance *BankBalance) (*BankBalance, error)
	GetByID(scope Scope, id uuid.UUID) (*BankBalance, error)
	GetCurrent(scope Scope) (*BankBalance, error)
	List(scope Scope) ([]*BankBalance, error)
	Update(scope Scope, balance *BankBalance) (*BankBalance, error)
	Delete(scope Scope, id uuid.UUID) error
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrAmountTooPrecise       = errors.New("amount must have at most 2 decimal places")
	ErrAmountTooLarge         = errors.New("amount exceeds maximum of 13 integer digits")
	ErrInvalidTransactionType = errors.New("transaction type must be income or expense")
	ErrInvalidEntryPattern    = errors.New("invalid entry pattern")
	ErrInvalidCurrency        = errors.New("currency must be a 3-letter code")
	ErrBatchTooLarge          = errors.New("bulk operation exceeds maximum batch size")
	ErrBatchEmpty             = errors.New("bulk operation requires at least one item")
)

// TransactionType is a closed enumeration of money directions.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// EntryPattern records how a transaction came to exist.
type EntryPattern string

const (
	EntryOneTime     EntryPattern = "one_time"
	EntryRecurring   EntryPattern = "recurring"
	EntryInstallment EntryPattern = "installment"
	EntryLoanPayment EntryPattern = "loan_payment"
)

func (p EntryPattern) Valid() bool {
	switch p {
	case EntryOneTime, EntryRecurring, EntryInstallment, EntryLoanPayment:
		return true
	}
	return false
}

// SourceKind identifies which recurring entity a projected or materialised
// occurrence came from.
type SourceKind string

const (
	SourceFixed       SourceKind = "fixed"
	SourceInstallment SourceKind = "installment"
	SourceLoan        SourceKind = "loan"
)

// MaterialisedKey is the dedupe fingerprint for projections: a recurring
// entity that already produced a transaction in (Year, Month) must not be
// projected again for that month.
type MaterialisedKey struct {
	Kind     SourceKind
	SourceID uuid.UUID
	Year     int
	Month    time.Month
}

// Transaction is a materialised money movement. Amount is stored converted
// to the base currency; the original triple is preserved when conversion
// happened. The four provenance links are mutually exclusive in meaning.
type Transaction struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"userId"`
	OrganizationID    *uuid.UUID       `json:"organizationId,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	Type              TransactionType  `json:"type"`
	CategoryID        *uuid.UUID       `json:"categoryId,omitempty"`
	Description       string           `json:"description"`
	Date              time.Time        `json:"date"`
	EntryPattern      EntryPattern     `json:"entryPattern"`
	IsRecurring       bool             `json:"isRecurring"`
	RecurringSourceID *uuid.UUID       `json:"recurringSourceId,omitempty"`
	InstallmentID     *uuid.UUID       `json:"installmentId,omitempty"`
	InstallmentNumber *int32           `json:"installmentNumber,omitempty"`
	LoanID            *uuid.UUID       `json:"loanId,omitempty"`
	CreditCardID      *uuid.UUID       `json:"creditCardId,omitempty"`
	BankAccountID     *uuid.UUID       `json:"bankAccountId,omitempty"`
	OriginalAmount    *decimal.Decimal `json:"originalAmount,omitempty"`
	OriginalCurrency  *string          `json:"originalCurrency,omitempty"`
	ExchangeRate      *decimal.Decimal `json:"exchangeRate,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// ValidateAmount enforces the monetary floor: positive, at most 2 decimal
// places, at most 13 integer digits.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return ErrAmountTooPrecise
	}
	if amount.Truncate(0).NumDigits() > 13 {
		return ErrAmountTooLarge
	}
	return nil
}

// ValidateCurrency enforces the 3-letter upper-case code floor.
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCurrency
		}
	}
	return nil
}

func (t *Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if !t.EntryPattern.Valid() {
		return ErrInvalidEntryPattern
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return err
	}
	if len(t.Description) > MaxDescriptionLength {
		return ErrNameTooLong
	}
	return nil
}

// TransactionFilters narrows List queries.
type TransactionFilters struct {
	StartDate    *time.Time
	EndDate      *time.Time
	Type         *TransactionType
	CategoryID   *uuid.UUID
	EntryPattern *EntryPattern
	Page         int32
	PageSize     int32
	SortBy       string // whitelisted: date, amount, created_at
	SortDesc     bool
}

// PaginatedTransactions is a page of transactions plus paging metadata.
type PaginatedTransactions struct {
	Items    []*Transaction `json:"items"`
	Total    int64          `json:"total"`
	Page     int32          `json:"page"`
	PageSize int32          `json:"pageSize"`
	Pages    int32          `json:"pages"`
}

// TransactionRepository is the persistence contract for transactions.
type TransactionRepository interface {
	Create(scope Scope, tx *Transaction) (*Transaction, error)
	BulkCreate(scope Scope, txs []*Transaction) ([]*Transaction, error)
	GetByID(scope Scope, id uuid.UUID) (*Transaction, error)
	List(scope Scope, filters *TransactionFilters) (*PaginatedTransactions, error)
	ListByDateRange(scope Scope, start, end time.Time) ([]*Transaction, error)
	Update(scope Scope, tx *Transaction) (*Transaction, error)
	BulkUpdate(scope Scope, txs []*Transaction) ([]*Transaction, error)
	Delete(scope Scope, id uuid.UUID) error
	BulkDelete(scope Scope, ids []uuid.UUID) (int64, error)

	// MaterialisedKeys returns the provenance fingerprints of transactions in
	// [start, end] so the projection engine can avoid double-counting.
	MaterialisedKeys(scope Scope, start, end time.Time) ([]MaterialisedKey, error)
	// ExistsForSource is the automation idempotency check: has the recurring
	// entity already been materialised on this date?
	ExistsForSource(scope Scope, kind SourceKind, sourceID uuid.UUID, date time.Time) (bool, error)
	// CountByCategory reports whether a category is referenced.
	CountByCategory(scope Scope, categoryID uuid.UUID) (int64, error)
}

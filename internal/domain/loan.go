package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanCompleted       = errors.New("loan is already completed")
	ErrLoanNoPayments      = errors.New("loan has no payments to reverse")
	ErrLoanOverpayment     = errors.New("payment exceeds remaining balance")
	ErrLoanNeverAmortises  = errors.New("monthly payment does not cover monthly interest")
	ErrLoanPaymentsInvalid = errors.New("total payments must be positive")
	ErrLoanStatusLocked    = errors.New("loan status transition not allowed")
)

// LoanStatus is a closed enumeration of loan states. completed implies
// payments_made = total_payments and remaining_balance = 0; the only way
// back from completed is reversing a payment.
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
	LoanPaused    LoanStatus = "paused"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanActive, LoanCompleted, LoanPaused:
		return true
	}
	return false
}

// Loan is an amortising loan repaid with a constant monthly payment
// (Spitzer / declining balance).
type Loan struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"userId"`
	OrganizationID   *uuid.UUID       `json:"organizationId,omitempty"`
	Name             string           `json:"name"`
	OriginalAmount   decimal.Decimal  `json:"originalAmount"`
	MonthlyPayment   decimal.Decimal  `json:"monthlyPayment"`
	InterestRate     decimal.Decimal  `json:"interestRate"` // annual percent
	TotalPayments    int32            `json:"totalPayments"`
	PaymentsMade     int32            `json:"paymentsMade"`
	RemainingBalance decimal.Decimal  `json:"remainingBalance"`
	Status           LoanStatus       `json:"status"`
	StartDate        time.Time        `json:"startDate"`
	DayOfMonth       int32            `json:"dayOfMonth"`
	CategoryID       *uuid.UUID       `json:"categoryId,omitempty"`
	Currency         string           `json:"currency"`
	OriginalAmountFX *decimal.Decimal `json:"originalAmountFx,omitempty"`
	OriginalCurrency *string          `json:"originalCurrency,omitempty"`
	ExchangeRate     *decimal.Decimal `json:"exchangeRate,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (l *Loan) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrNameRequired
	}
	if len(l.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := ValidateAmount(l.OriginalAmount); err != nil {
		return err
	}
	if l.MonthlyPayment.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if l.InterestRate.IsNegative() {
		return ErrInvalidInput
	}
	if l.TotalPayments < 1 {
		return ErrLoanPaymentsInvalid
	}
	if l.PaymentsMade < 0 || l.PaymentsMade > l.TotalPayments {
		return ErrInvalidInput
	}
	if !l.Status.Valid() {
		return ErrLoanStatusLocked
	}
	if l.DayOfMonth < 1 || l.DayOfMonth > 31 {
		return ErrDayOfMonthInvalid
	}
	if err := ValidateCurrency(l.Currency); err != nil {
		return err
	}
	// A positive-interest loan whose payment does not cover the first
	// month's interest would never amortise.
	if l.InterestRate.IsPositive() {
		monthlyInterest := l.OriginalAmount.Mul(MonthlyRate(l.InterestRate)).Round(2)
		if l.MonthlyPayment.LessThanOrEqual(monthlyInterest) {
			return ErrLoanNeverAmortises
		}
	}
	return nil
}

// MonthlyRate converts an annual percent rate to a monthly fraction.
func MonthlyRate(annualPercent decimal.Decimal) decimal.Decimal {
	return annualPercent.Div(decimal.NewFromInt(1200))
}

// ApplyPayment records one payment of amount against the loan. Rejected when
// the loan is completed, all payments are made, or amount exceeds the
// remaining balance. Reaching the terminal state sets completed and zeroes
// the balance.
func (l *Loan) ApplyPayment(amount decimal.Decimal) error {
	if l.Status == LoanCompleted {
		return ErrLoanCompleted
	}
	if l.PaymentsMade >= l.TotalPayments {
		return ErrLoanCompleted
	}
	if amount.GreaterThan(l.RemainingBalance) {
		return ErrLoanOverpayment
	}
	l.PaymentsMade++
	l.RemainingBalance = l.RemainingBalance.Sub(amount)
	if l.RemainingBalance.IsNegative() {
		l.RemainingBalance = decimal.Zero
	}
	if l.PaymentsMade == l.TotalPayments {
		l.Status = LoanCompleted
		l.RemainingBalance = decimal.Zero
	}
	return nil
}

// ReversePaymentTo rolls the counter back one payment and restores the
// remaining balance to the given value, reconstructed by the caller from the
// amortisation schedule. A completed loan becomes active again.
func (l *Loan) ReversePaymentTo(remaining decimal.Decimal) error {
	if l.PaymentsMade == 0 {
		return ErrLoanNoPayments
	}
	l.PaymentsMade--
	l.RemainingBalance = remaining
	if l.Status == LoanCompleted {
		l.Status = LoanActive
	}
	return nil
}

// NextPaymentDate returns the clamped due date of the next unpaid payment,
// or nil when the loan is fully paid.
func (l *Loan) NextPaymentDate() *time.Time {
	if l.PaymentsMade >= l.TotalPayments {
		return nil
	}
	next := monthsFrom(l.StartDate, l.PaymentsMade)
	d := clampToMonth(next.Year(), next.Month(), int(l.DayOfMonth))
	return &d
}

// RemainingPayments returns how many payments are still unpaid.
func (l *Loan) RemainingPayments() int32 {
	return l.TotalPayments - l.PaymentsMade
}

// PaymentIndexForMonth returns the 1-based payment index falling in
// (year, month), or 0 when outside the schedule.
func (l *Loan) PaymentIndexForMonth(year int, month time.Month) int32 {
	k := int32((year-l.StartDate.Year())*12+int(month)-int(l.StartDate.Month())) + 1
	if k < 1 || k > l.TotalPayments {
		return 0
	}
	return k
}

// LoanFilter narrows loan listings.
type LoanFilter string

const (
	LoanFilterAll       LoanFilter = "all"
	LoanFilterActive    LoanFilter = "active"
	LoanFilterCompleted LoanFilter = "completed"
)

// LoanRepository is the persistence contract for loans. Mutate and Charge
// run fn on the row under an exclusive lock and persist the result; both
// payment coordinators and the automation service go through them.
type LoanRepository interface {
	Create(scope Scope, loan *Loan) (*Loan, error)
	GetByID(scope Scope, id uuid.UUID) (*Loan, error)
	List(scope Scope, filter LoanFilter) ([]*Loan, error)
	Update(scope Scope, loan *Loan) (*Loan, error)
	Delete(scope Scope, id uuid.UUID) error
	Mutate(scope Scope, id uuid.UUID, fn func(*Loan) error) (*Loan, error)
	// Charge applies fn under the row lock and inserts the transaction fn
	// returns in the same database transaction, so the counter advance and
	// the materialised payment commit or roll back together. With a non-nil
	// guardDate, ErrAlreadyExists is returned without changes when a loan
	// transaction already exists on that date.
	Charge(scope Scope, id uuid.UUID, guardDate *time.Time, fn func(*Loan) (*Transaction, error)) (*Loan, *Transaction, error)
	// ListDue returns active loans with remaining payments whose day_of_month
	// equals refDate's day.
	ListDue(scope Scope, refDate time.Time) ([]*Loan, error)
}

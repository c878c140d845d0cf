package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInstallmentNotFound     = errors.New("installment not found")
	ErrInstallmentCountInvalid = errors.New("number of payments must be between 1 and 360")
	ErrInstallmentFullyPaid    = errors.New("installment is already fully paid")
	ErrInstallmentNoPayments   = errors.New("installment has no payments to reverse")
)

// InstallmentStatus is derived, never stored: completed when all paid,
// overdue when started and behind schedule, pending before start, else active.
type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentActive    InstallmentStatus = "active"
	InstallmentOverdue   InstallmentStatus = "overdue"
	InstallmentCompleted InstallmentStatus = "completed"
)

// Installment is a purchase split into equal monthly payments. The monthly
// amount is the total divided by the count, rounded half-up to the cent; the
// last scheduled payment absorbs the rounding residue so the schedule sums to
// the total exactly.
type Installment struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"userId"`
	OrganizationID    *uuid.UUID       `json:"organizationId,omitempty"`
	Name              string           `json:"name"`
	TotalAmount       decimal.Decimal  `json:"totalAmount"`
	MonthlyAmount     decimal.Decimal  `json:"monthlyAmount"`
	NumberOfPayments  int32            `json:"numberOfPayments"`
	PaymentsCompleted int32            `json:"paymentsCompleted"`
	Type              TransactionType  `json:"type"`
	CategoryID        *uuid.UUID       `json:"categoryId,omitempty"`
	StartDate         time.Time        `json:"startDate"`
	DayOfMonth        int32            `json:"dayOfMonth"`
	Currency          string           `json:"currency"`
	OriginalAmount    *decimal.Decimal `json:"originalAmount,omitempty"`
	OriginalCurrency  *string          `json:"originalCurrency,omitempty"`
	ExchangeRate      *decimal.Decimal `json:"exchangeRate,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

func (i *Installment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrNameRequired
	}
	if len(i.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := ValidateAmount(i.TotalAmount); err != nil {
		return err
	}
	if i.NumberOfPayments < 1 || i.NumberOfPayments > 360 {
		return ErrInstallmentCountInvalid
	}
	if i.PaymentsCompleted < 0 || i.PaymentsCompleted > i.NumberOfPayments {
		return ErrInvalidInput
	}
	if !i.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if i.DayOfMonth < 1 || i.DayOfMonth > 31 {
		return ErrDayOfMonthInvalid
	}
	return ValidateCurrency(i.Currency)
}

// CalculateMonthlyAmount returns the per-payment amount: total / n rounded
// half-up to the cent.
func CalculateMonthlyAmount(total decimal.Decimal, numberOfPayments int32) decimal.Decimal {
	return total.DivRound(decimal.NewFromInt32(numberOfPayments), 2)
}

// ScheduledAmount returns the amount of the k-th payment (1-based). All
// payments equal the monthly amount except the last, which absorbs the
// rounding residue so the schedule sums to the total exactly.
func (i *Installment) ScheduledAmount(k int32) decimal.Decimal {
	if k < i.NumberOfPayments {
		return i.MonthlyAmount
	}
	paidBefore := i.MonthlyAmount.Mul(decimal.NewFromInt32(i.NumberOfPayments - 1))
	return i.TotalAmount.Sub(paidBefore)
}

// PaymentIndexForMonth returns the 1-based payment index that falls in
// (year, month), or 0 when the month is outside the schedule.
func (i *Installment) PaymentIndexForMonth(year int, month time.Month) int32 {
	k := int32((year-i.StartDate.Year())*12+int(month)-int(i.StartDate.Month())) + 1
	if k < 1 || k > i.NumberOfPayments {
		return 0
	}
	return k
}

// MarkPaid advances the payment counter; Invalid when fully paid.
func (i *Installment) MarkPaid() error {
	if i.PaymentsCompleted >= i.NumberOfPayments {
		return ErrInstallmentFullyPaid
	}
	i.PaymentsCompleted++
	return nil
}

// ReversePayment rolls the counter back; Invalid at zero.
func (i *Installment) ReversePayment() error {
	if i.PaymentsCompleted == 0 {
		return ErrInstallmentNoPayments
	}
	i.PaymentsCompleted--
	return nil
}

// NextPaymentDate returns the clamped due date of the next unpaid payment,
// or nil when fully paid.
func (i *Installment) NextPaymentDate() *time.Time {
	if i.PaymentsCompleted >= i.NumberOfPayments {
		return nil
	}
	next := monthsFrom(i.StartDate, i.PaymentsCompleted)
	d := clampToMonth(next.Year(), next.Month(), int(i.DayOfMonth))
	return &d
}

// Status derives the installment state relative to today.
func (i *Installment) Status(today time.Time) InstallmentStatus {
	if i.PaymentsCompleted >= i.NumberOfPayments {
		return InstallmentCompleted
	}
	if i.StartDate.After(today) {
		return InstallmentPending
	}
	if next := i.NextPaymentDate(); next != nil && next.Before(today.Truncate(24*time.Hour)) {
		return InstallmentOverdue
	}
	return InstallmentActive
}

// RemainingPayments returns how many payments are still unpaid.
func (i *Installment) RemainingPayments() int32 {
	return i.NumberOfPayments - i.PaymentsCompleted
}

// monthsFrom returns the first day of the month n months after start's month.
// Stepping from day one keeps a day-29..31 start from rolling over into the
// month after the intended one.
func monthsFrom(start time.Time, n int32) time.Time {
	return time.Date(start.Year(), start.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

func clampToMonth(year int, month time.Month, day int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// InstallmentRepository is the persistence contract for installments.
// Mutate and Charge run fn on the row under an exclusive lock and persist the
// result; payment transitions go through them.
type InstallmentRepository interface {
	Create(scope Scope, installment *Installment) (*Installment, error)
	GetByID(scope Scope, id uuid.UUID) (*Installment, error)
	List(scope Scope) ([]*Installment, error)
	Update(scope Scope, installment *Installment) (*Installment, error)
	Delete(scope Scope, id uuid.UUID) error
	Mutate(scope Scope, id uuid.UUID, fn func(*Installment) error) (*Installment, error)
	// Charge applies fn under the row lock and inserts the transaction fn
	// returns in the same database transaction. With a non-nil guardDate,
	// ErrAlreadyExists is returned without changes when an installment
	// transaction already exists on that date.
	Charge(scope Scope, id uuid.UUID, guardDate *time.Time, fn func(*Installment) (*Transaction, error)) (*Installment, *Transaction, error)
	// ListDue returns installments with remaining payments whose day_of_month
	// equals refDate's day and whose schedule has started.
	ListDue(scope Scope, refDate time.Time) ([]*Installment, error)
}

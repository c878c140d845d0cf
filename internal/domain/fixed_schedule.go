package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrFixedScheduleNotFound = errors.New("fixed schedule not found")
	ErrDayOfMonthInvalid     = errors.New("day of month must be between 1 and 31")
	ErrEndBeforeStart        = errors.New("end date must not be before start date")
	ErrScheduleNotPaused     = errors.New("schedule is not paused")
	ErrScheduleAlreadyPaused = errors.New("schedule is already paused")
)

// FixedSchedule is a recurring income or expense with a fixed monthly amount
// and day of month. A day_of_month beyond the month's length clamps to the
// last day of that month.
type FixedSchedule struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	OrganizationID *uuid.UUID      `json:"organizationId,omitempty"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Type           TransactionType `json:"type"`
	CategoryID     *uuid.UUID      `json:"categoryId,omitempty"`
	DayOfMonth     int32           `json:"dayOfMonth"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	IsActive       bool            `json:"isActive"`
	PausedAt       *time.Time      `json:"pausedAt,omitempty"`
	ResumedAt      *time.Time      `json:"resumedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (f *FixedSchedule) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNameRequired
	}
	if len(f.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := ValidateAmount(f.Amount); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if err := ValidateCurrency(f.Currency); err != nil {
		return err
	}
	if f.DayOfMonth < 1 || f.DayOfMonth > 31 {
		return ErrDayOfMonthInvalid
	}
	if f.EndDate != nil && f.EndDate.Before(f.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// AppliesToMonth reports whether the schedule admits an occurrence in the
// month starting at monthStart: it must be active, started by month end, and
// not ended before month start.
func (f *FixedSchedule) AppliesToMonth(monthStart, monthEnd time.Time) bool {
	if !f.IsActive {
		return false
	}
	if f.StartDate.After(monthEnd) {
		return false
	}
	if f.EndDate != nil && f.EndDate.Before(monthStart) {
		return false
	}
	return true
}

// DueOn reports whether the schedule is due exactly on refDate. The due day
// clamps to the last day of short months.
func (f *FixedSchedule) DueOn(refDate time.Time) bool {
	if !f.IsActive {
		return false
	}
	due := clampToMonth(refDate.Year(), refDate.Month(), int(f.DayOfMonth))
	if due.Day() != refDate.Day() {
		return false
	}
	if f.StartDate.After(refDate) {
		return false
	}
	if f.EndDate != nil && f.EndDate.Before(refDate) {
		return false
	}
	return true
}

// FixedScheduleRepository is the persistence contract for fixed schedules.
type FixedScheduleRepository interface {
	Create(scope Scope, schedule *FixedSchedule) (*FixedSchedule, error)
	GetByID(scope Scope, id uuid.UUID) (*FixedSchedule, error)
	List(scope Scope, activeOnly bool) ([]*FixedSchedule, error)
	Update(scope Scope, schedule *FixedSchedule) (*FixedSchedule, error)
	Delete(scope Scope, id uuid.UUID) error
	// ListDue returns active schedules due on refDate, clamping day_of_month
	// to the last day of short months.
	ListDue(scope Scope, refDate time.Time) ([]*FixedSchedule, error)
	// Materialise inserts the occurrence transaction under an exclusive lock
	// on the schedule row, returning ErrAlreadyExists without changes when a
	// transaction for the schedule already exists on refDate.
	Materialise(scope Scope, id uuid.UUID, refDate time.Time, transaction *Transaction) (*Transaction, error)
}

package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

// LoanService handles loan business logic, including the manual payment
// coordinator and schedule views.
type LoanService struct {
	loanRepo        domain.LoanRepository
	transactionRepo domain.TransactionRepository
	categoryRepo    domain.CategoryRepository
	currencies      *CurrencyService
}

// NewLoanService creates a new LoanService
func NewLoanService(
	loanRepo domain.LoanRepository,
	transactionRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
	currencies *CurrencyService,
) *LoanService {
	return &LoanService{
		loanRepo:        loanRepo,
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		currencies:      currencies,
	}
}

// CreateLoanInput holds the input for creating a loan
type CreateLoanInput struct {
	Name           string
	OriginalAmount decimal.Decimal
	MonthlyPayment decimal.Decimal
	InterestRate   decimal.Decimal
	TotalPayments  int32
	StartDate      time.Time
	DayOfMonth     int32
	CategoryID     *uuid.UUID
	Currency       string
}

// CreateLoan creates an active loan with the full balance outstanding. A
// positive-interest loan whose payment does not cover the first month's
// interest is rejected as never amortising.
func (s *LoanService) CreateLoan(scope domain.Scope, input CreateLoanInput) (*domain.Loan, error) {
	loan := &domain.Loan{
		Name:           strings.TrimSpace(input.Name),
		OriginalAmount: input.OriginalAmount,
		MonthlyPayment: input.MonthlyPayment,
		InterestRate:   input.InterestRate,
		TotalPayments:  input.TotalPayments,
		Status:         domain.LoanActive,
		StartDate:      input.StartDate,
		DayOfMonth:     input.DayOfMonth,
		CategoryID:     input.CategoryID,
		Currency:       strings.ToUpper(strings.TrimSpace(input.Currency)),
	}
	if loan.Currency == "" {
		loan.Currency = s.currencies.BaseCurrency()
	}
	if err := loan.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, scope, loan.CategoryID, domain.TransactionExpense); err != nil {
		return nil, err
	}

	fields := s.currencies.PrepareCurrencyFields(loan.OriginalAmount, loan.Currency)
	loan.OriginalAmount = fields.Amount
	loan.Currency = s.currencies.BaseCurrency()
	loan.OriginalAmountFX = fields.OriginalAmount
	loan.OriginalCurrency = fields.OriginalCurrency
	loan.ExchangeRate = fields.ExchangeRate
	loan.RemainingBalance = loan.OriginalAmount

	return s.loanRepo.Create(scope, loan)
}

// GetLoan retrieves a loan by ID
func (s *LoanService) GetLoan(scope domain.Scope, id uuid.UUID) (*domain.Loan, error) {
	return s.loanRepo.GetByID(scope, id)
}

// ListLoans retrieves the loans in scope, optionally filtered by status
func (s *LoanService) ListLoans(scope domain.Scope, filter domain.LoanFilter) ([]*domain.Loan, error) {
	if filter == "" {
		filter = domain.LoanFilterAll
	}
	switch filter {
	case domain.LoanFilterAll, domain.LoanFilterActive, domain.LoanFilterCompleted:
	default:
		return nil, domain.ErrInvalidInput
	}
	return s.loanRepo.List(scope, filter)
}

// UpdateLoanInput holds the editable fields of a loan
type UpdateLoanInput struct {
	Name       string
	CategoryID *uuid.UUID
	DayOfMonth int32
}

// UpdateLoan updates the editable fields. The financial terms are immutable;
// a mistaken loan is deleted and recreated.
func (s *LoanService) UpdateLoan(scope domain.Scope, id uuid.UUID, input UpdateLoanInput) (*domain.Loan, error) {
	existing, err := s.loanRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.CategoryID = input.CategoryID
	existing.DayOfMonth = input.DayOfMonth

	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, scope, existing.CategoryID, domain.TransactionExpense); err != nil {
		return nil, err
	}
	return s.loanRepo.Update(scope, existing)
}

// DeleteLoan deletes a loan
func (s *LoanService) DeleteLoan(scope domain.Scope, id uuid.UUID) error {
	return s.loanRepo.Delete(scope, id)
}

// Schedule returns the full amortisation table with per-row status relative
// to today.
func (s *LoanService) Schedule(scope domain.Scope, id uuid.UUID) (*AmortizationSchedule, error) {
	loan, err := s.loanRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}
	return BuildAmortizationSchedule(loan, util.Today()), nil
}

// RecordPayment records the next loan payment manually. The counter advance
// and the materialised transaction commit atomically under the row lock.
// With a nil amount the scheduled monthly payment is charged, capped at the
// remaining balance; an explicit amount above the remaining balance is
// rejected.
func (s *LoanService) RecordPayment(scope domain.Scope, id uuid.UUID, amount *decimal.Decimal) (*domain.Loan, *domain.Transaction, error) {
	if amount != nil && amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, domain.ErrInvalidAmount
	}
	return s.loanRepo.Charge(scope, id, nil, func(l *domain.Loan) (*domain.Transaction, error) {
		if l.Status == domain.LoanCompleted || l.PaymentsMade >= l.TotalPayments {
			return nil, domain.ErrLoanCompleted
		}

		pay := l.MonthlyPayment
		if pay.GreaterThan(l.RemainingBalance) {
			pay = l.RemainingBalance
		}
		if amount != nil {
			pay = *amount
		}
		loanID := l.ID
		dueDate := l.NextPaymentDate()
		if err := l.ApplyPayment(pay); err != nil {
			return nil, err
		}
		return &domain.Transaction{
			Amount:       pay,
			Currency:     l.Currency,
			Type:         domain.TransactionExpense,
			CategoryID:   l.CategoryID,
			Description:  l.Name,
			Date:         *dueDate,
			EntryPattern: domain.EntryLoanPayment,
			IsRecurring:  true,
			LoanID:       &loanID,
		}, nil
	})
}

// ReversePayment rolls the last payment back. The remaining balance is
// reconstructed from the amortisation schedule, not by adding the payment
// amount, so interest splits stay exact. The transaction materialised for the
// reversed payment is removed when one exists.
func (s *LoanService) ReversePayment(scope domain.Scope, id uuid.UUID) (*domain.Loan, error) {
	updated, err := s.loanRepo.Mutate(scope, id, func(l *domain.Loan) error {
		if l.PaymentsMade == 0 {
			return domain.ErrLoanNoPayments
		}
		return l.ReversePaymentTo(RemainingBalanceAfter(l, l.PaymentsMade-1))
	})
	if err != nil {
		return nil, err
	}

	// The reversed payment is the one the counter now points at again.
	// Stepping months from the first of the start month keeps a day-31
	// start from rolling into the wrong month.
	number := updated.PaymentsMade + 1
	due := util.FirstOfMonth(updated.StartDate).AddDate(0, int(number-1), 0)
	monthStart := due
	txs, err := s.transactionRepo.ListByDateRange(scope, monthStart, util.EndOfMonth(due))
	if err != nil {
		return updated, nil
	}
	for _, tx := range txs {
		if tx.LoanID == nil || *tx.LoanID != id {
			continue
		}
		if delErr := s.transactionRepo.Delete(scope, tx.ID); delErr != nil {
			log.Error().Err(delErr).Str("transaction_id", tx.ID.String()).
				Msg("failed to remove reversed loan transaction")
		}
		break
	}
	return updated, nil
}

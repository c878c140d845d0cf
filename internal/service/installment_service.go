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

// InstallmentService handles installment business logic, including the
// manual payment coordinator.
type InstallmentService struct {
	installmentRepo domain.InstallmentRepository
	transactionRepo domain.TransactionRepository
	categoryRepo    domain.CategoryRepository
	currencies      *CurrencyService
}

// NewInstallmentService creates a new InstallmentService
func NewInstallmentService(
	installmentRepo domain.InstallmentRepository,
	transactionRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
	currencies *CurrencyService,
) *InstallmentService {
	return &InstallmentService{
		installmentRepo: installmentRepo,
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		currencies:      currencies,
	}
}

// CreateInstallmentInput holds the input for creating an installment
type CreateInstallmentInput struct {
	Name             string
	TotalAmount      decimal.Decimal
	NumberOfPayments int32
	Type             domain.TransactionType
	CategoryID       *uuid.UUID
	StartDate        time.Time
	DayOfMonth       int32
	Currency         string
}

// CreateInstallment creates an installment plan. The monthly amount is
// derived from the total, never supplied by the caller.
func (s *InstallmentService) CreateInstallment(scope domain.Scope, input CreateInstallmentInput) (*domain.Installment, error) {
	installment := &domain.Installment{
		Name:             strings.TrimSpace(input.Name),
		TotalAmount:      input.TotalAmount,
		NumberOfPayments: input.NumberOfPayments,
		Type:             input.Type,
		CategoryID:       input.CategoryID,
		StartDate:        input.StartDate,
		DayOfMonth:       input.DayOfMonth,
		Currency:         strings.ToUpper(strings.TrimSpace(input.Currency)),
	}
	if installment.Currency == "" {
		installment.Currency = s.currencies.BaseCurrency()
	}
	if err := installment.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, scope, installment.CategoryID, installment.Type); err != nil {
		return nil, err
	}

	fields := s.currencies.PrepareCurrencyFields(installment.TotalAmount, installment.Currency)
	installment.TotalAmount = fields.Amount
	installment.Currency = s.currencies.BaseCurrency()
	installment.OriginalAmount = fields.OriginalAmount
	installment.OriginalCurrency = fields.OriginalCurrency
	installment.ExchangeRate = fields.ExchangeRate
	installment.MonthlyAmount = domain.CalculateMonthlyAmount(installment.TotalAmount, installment.NumberOfPayments)

	return s.installmentRepo.Create(scope, installment)
}

// GetInstallment retrieves an installment by ID
func (s *InstallmentService) GetInstallment(scope domain.Scope, id uuid.UUID) (*domain.Installment, error) {
	return s.installmentRepo.GetByID(scope, id)
}

// ListInstallments retrieves the installments in scope
func (s *InstallmentService) ListInstallments(scope domain.Scope) ([]*domain.Installment, error) {
	return s.installmentRepo.List(scope)
}

// UpdateInstallmentInput holds the editable fields of an installment
type UpdateInstallmentInput struct {
	Name       string
	CategoryID *uuid.UUID
	DayOfMonth int32
}

// UpdateInstallment updates the editable fields. The financial shape (total,
// count, start date) is immutable once payments may have been materialised.
func (s *InstallmentService) UpdateInstallment(scope domain.Scope, id uuid.UUID, input UpdateInstallmentInput) (*domain.Installment, error) {
	existing, err := s.installmentRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.CategoryID = input.CategoryID
	existing.DayOfMonth = input.DayOfMonth

	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, scope, existing.CategoryID, existing.Type); err != nil {
		return nil, err
	}
	return s.installmentRepo.Update(scope, existing)
}

// DeleteInstallment deletes an installment plan
func (s *InstallmentService) DeleteInstallment(scope domain.Scope, id uuid.UUID) error {
	return s.installmentRepo.Delete(scope, id)
}

// PayInstallment records the next payment manually. The counter advance and
// the materialised transaction with the payment's provenance commit
// atomically under the row lock.
func (s *InstallmentService) PayInstallment(scope domain.Scope, id uuid.UUID) (*domain.Installment, *domain.Transaction, error) {
	return s.installmentRepo.Charge(scope, id, nil, func(i *domain.Installment) (*domain.Transaction, error) {
		number := i.PaymentsCompleted + 1
		installmentID := i.ID
		dueDate := i.NextPaymentDate()
		if err := i.MarkPaid(); err != nil {
			return nil, err
		}
		return &domain.Transaction{
			Amount:            i.ScheduledAmount(number),
			Currency:          i.Currency,
			Type:              i.Type,
			CategoryID:        i.CategoryID,
			Description:       i.Name,
			Date:              *dueDate,
			EntryPattern:      domain.EntryInstallment,
			IsRecurring:       true,
			InstallmentID:     &installmentID,
			InstallmentNumber: &number,
		}, nil
	})
}

// ReverseInstallmentPayment rolls the last payment back and removes the
// transaction materialised for it, when one exists.
func (s *InstallmentService) ReverseInstallmentPayment(scope domain.Scope, id uuid.UUID) (*domain.Installment, error) {
	updated, err := s.installmentRepo.Mutate(scope, id, func(i *domain.Installment) error {
		return i.ReversePayment()
	})
	if err != nil {
		return nil, err
	}

	// The reversed payment is the one the counter now points at again.
	// Stepping months from the first of the start month keeps a day-31
	// start from rolling into the wrong month.
	number := updated.PaymentsCompleted + 1
	due := util.FirstOfMonth(updated.StartDate).AddDate(0, int(number-1), 0)
	monthStart := due
	txs, err := s.transactionRepo.ListByDateRange(scope, monthStart, util.EndOfMonth(due))
	if err != nil {
		return updated, nil
	}
	for _, tx := range txs {
		if tx.InstallmentID == nil || *tx.InstallmentID != id {
			continue
		}
		if tx.InstallmentNumber != nil && *tx.InstallmentNumber != number {
			continue
		}
		if delErr := s.transactionRepo.Delete(scope, tx.ID); delErr != nil {
			log.Error().Err(delErr).Str("transaction_id", tx.ID.String()).
				Msg("failed to remove reversed installment transaction")
		}
		break
	}
	return updated, nil
}

// checkCategoryForType validates that an assigned category exists in scope,
// is not archived, and matches the money direction.
func checkCategoryForType(repo domain.CategoryRepository, scope domain.Scope, categoryID *uuid.UUID, txType domain.TransactionType) error {
	if categoryID == nil {
		return nil
	}
	category, err := repo.GetByID(scope, *categoryID)
	if err != nil {
		return err
	}
	if category.IsArchived {
		return domain.ErrCategoryArchived
	}
	if string(category.Type) != string(txType) {
		return domain.ErrCategoryTypeMismatch
	}
	return nil
}

package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

// ExpectedIncomeService handles per-month income estimates
type ExpectedIncomeService struct {
	incomeRepo domain.ExpectedIncomeRepository
}

// NewExpectedIncomeService creates a new ExpectedIncomeService
func NewExpectedIncomeService(incomeRepo domain.ExpectedIncomeRepository) *ExpectedIncomeService {
	return &ExpectedIncomeService{incomeRepo: incomeRepo}
}

// SetExpectedIncome sets the estimate for a month, replacing any previous
// value. The month normalises to its first day.
func (s *ExpectedIncomeService) SetExpectedIncome(scope domain.Scope, month time.Time, amount decimal.Decimal, notes string) (*domain.ExpectedIncome, error) {
	income := &domain.ExpectedIncome{
		Month:          util.FirstOfMonth(month),
		ExpectedAmount: amount,
		Notes:          notes,
	}
	if err := income.Validate(); err != nil {
		return nil, err
	}
	return s.incomeRepo.Upsert(scope, income)
}

// GetExpectedIncome retrieves the estimate for a month
func (s *ExpectedIncomeService) GetExpectedIncome(scope domain.Scope, month time.Time) (*domain.ExpectedIncome, error) {
	return s.incomeRepo.GetByMonth(scope, util.FirstOfMonth(month))
}

// ListExpectedIncome retrieves the estimates between two months inclusive
func (s *ExpectedIncomeService) ListExpectedIncome(scope domain.Scope, from, to time.Time) ([]*domain.ExpectedIncome, error) {
	start := util.FirstOfMonth(from)
	end := util.EndOfMonth(to)
	if end.Before(start) {
		return nil, domain.ErrInvalidInput
	}
	return s.incomeRepo.ListRange(scope, start, end)
}

// DeleteExpectedIncome removes an estimate
func (s *ExpectedIncomeService) DeleteExpectedIncome(scope domain.Scope, id uuid.UUID) error {
	return s.incomeRepo.Delete(scope, id)
}

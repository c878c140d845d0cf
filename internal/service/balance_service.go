package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

// BalanceService handles bank balance snapshots
type BalanceService struct {
	balanceRepo domain.BankBalanceRepository
	currencies  *CurrencyService
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(balanceRepo domain.BankBalanceRepository, currencies *CurrencyService) *BalanceService {
	return &BalanceService{
		balanceRepo: balanceRepo,
		currencies:  currencies,
	}
}

// RecordBalanceInput holds the input for recording a balance snapshot
type RecordBalanceInput struct {
	Balance       decimal.Decimal
	Currency      string
	EffectiveDate time.Time
	Notes         string
	BankAccountID *uuid.UUID
}

// RecordBalance records a balance snapshot. A snapshot dated today or later
// becomes the current balance; only one row per scope is current at a time.
func (s *BalanceService) RecordBalance(scope domain.Scope, input RecordBalanceInput) (*domain.BankBalance, error) {
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currencies.BaseCurrency()
	}

	balance := &domain.BankBalance{
		Balance:       input.Balance,
		Currency:      currency,
		EffectiveDate: input.EffectiveDate,
		Notes:         input.Notes,
		BankAccountID: input.BankAccountID,
	}
	if err := balance.Validate(); err != nil {
		return nil, err
	}

	// Negative balances are legal; only the currency converts.
	if balance.Currency != s.currencies.BaseCurrency() {
		converted, _ := s.currencies.Convert(balance.Balance, balance.Currency, s.currencies.BaseCurrency())
		balance.Balance = converted
		balance.Currency = s.currencies.BaseCurrency()
	}

	current, err := s.balanceRepo.GetCurrent(scope)
	if err == nil {
		balance.IsCurrent = !balance.EffectiveDate.Before(current.EffectiveDate)
	} else {
		balance.IsCurrent = true
	}

	return s.balanceRepo.Create(scope, balance)
}

// GetCurrentBalance returns the current balance snapshot, or a zero snapshot
// dated today when none was ever recorded.
func (s *BalanceService) GetCurrentBalance(scope domain.Scope) (*domain.BankBalance, error) {
	current, err := s.balanceRepo.GetCurrent(scope)
	if err != nil {
		if err == domain.ErrBankBalanceNotFound {
			return &domain.BankBalance{
				Balance:       decimal.Zero,
				Currency:      s.currencies.BaseCurrency(),
				EffectiveDate: util.Today(),
			}, nil
		}
		return nil, err
	}
	return current, nil
}

// ListBalances returns the balance history, newest first
func (s *BalanceService) ListBalances(scope domain.Scope) ([]*domain.BankBalance, error) {
	return s.balanceRepo.List(scope)
}

// UpdateBalanceInput holds the editable fields of a balance snapshot
type UpdateBalanceInput struct {
	Balance decimal.Decimal
	Notes   string
}

// UpdateBalance corrects a snapshot's amount or notes. The effective date is
// immutable; a misdated snapshot is deleted and re-recorded.
func (s *BalanceService) UpdateBalance(scope domain.Scope, id uuid.UUID, input UpdateBalanceInput) (*domain.BankBalance, error) {
	existing, err := s.balanceRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}
	existing.Balance = input.Balance
	existing.Notes = input.Notes
	return s.balanceRepo.Update(scope, existing)
}

// DeleteBalance removes a snapshot. Deleting the current snapshot promotes
// the next most recent one in the repository.
func (s *BalanceService) DeleteBalance(scope domain.Scope, id uuid.UUID) error {
	return s.balanceRepo.Delete(scope, id)
}

package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// TransactionService handles transaction business logic
type TransactionService struct {
	transactionRepo domain.TransactionRepository
	categoryRepo    domain.CategoryRepository
	currencies      *CurrencyService
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	transactionRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
	currencies *CurrencyService,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		currencies:      currencies,
	}
}

// CreateTransactionInput holds the input for creating a transaction
type CreateTransactionInput struct {
	Amount        decimal.Decimal
	Currency      string
	Type          domain.TransactionType
	CategoryID    *uuid.UUID
	Description   string
	Date          time.Time
	CreditCardID  *uuid.UUID
	BankAccountID *uuid.UUID
}

// CreateTransaction creates a one-time transaction. Amounts in a foreign
// currency are converted to the base currency with the original triple kept.
func (s *TransactionService) CreateTransaction(scope domain.Scope, input CreateTransactionInput) (*domain.Transaction, error) {
	tx := &domain.Transaction{
		Amount:        input.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(input.Currency)),
		Type:          input.Type,
		CategoryID:    input.CategoryID,
		Description:   strings.TrimSpace(input.Description),
		Date:          input.Date,
		EntryPattern:  domain.EntryOneTime,
		CreditCardID:  input.CreditCardID,
		BankAccountID: input.BankAccountID,
	}
	if tx.Currency == "" {
		tx.Currency = s.currencies.BaseCurrency()
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, scope, tx.CategoryID, tx.Type); err != nil {
		return nil, err
	}

	fields := s.currencies.PrepareCurrencyFields(tx.Amount, tx.Currency)
	tx.Amount = fields.Amount
	tx.Currency = s.currencies.BaseCurrency()
	tx.OriginalAmount = fields.OriginalAmount
	tx.OriginalCurrency = fields.OriginalCurrency
	tx.ExchangeRate = fields.ExchangeRate

	return s.transactionRepo.Create(scope, tx)
}

// BulkCreateTransactions creates up to MaxBatchSize transactions atomically.
func (s *TransactionService) BulkCreateTransactions(scope domain.Scope, inputs []CreateTransactionInput) ([]*domain.Transaction, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrBatchEmpty
	}
	if len(inputs) > domain.MaxBatchSize {
		return nil, domain.ErrBatchTooLarge
	}

	txs := make([]*domain.Transaction, 0, len(inputs))
	for _, input := range inputs {
		tx := &domain.Transaction{
			Amount:        input.Amount,
			Currency:      strings.ToUpper(strings.TrimSpace(input.Currency)),
			Type:          input.Type,
			CategoryID:    input.CategoryID,
			Description:   strings.TrimSpace(input.Description),
			Date:          input.Date,
			EntryPattern:  domain.EntryOneTime,
			CreditCardID:  input.CreditCardID,
			BankAccountID: input.BankAccountID,
		}
		if tx.Currency == "" {
			tx.Currency = s.currencies.BaseCurrency()
		}
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		if err := checkCategoryForType(s.categoryRepo, scope, tx.CategoryID, tx.Type); err != nil {
			return nil, err
		}

		fields := s.currencies.PrepareCurrencyFields(tx.Amount, tx.Currency)
		tx.Amount = fields.Amount
		tx.Currency = s.currencies.BaseCurrency()
		tx.OriginalAmount = fields.OriginalAmount
		tx.OriginalCurrency = fields.OriginalCurrency
		tx.ExchangeRate = fields.ExchangeRate
		txs = append(txs, tx)
	}

	return s.transactionRepo.BulkCreate(scope, txs)
}

// GetTransaction retrieves a transaction by ID
func (s *TransactionService) GetTransaction(scope domain.Scope, id uuid.UUID) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(scope, id)
}

// ListTransactions retrieves a filtered, paginated page of transactions
func (s *TransactionService) ListTransactions(scope domain.Scope, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = domain.DefaultPageSize
	}
	if filters.PageSize > domain.MaxPageSize {
		filters.PageSize = domain.MaxPageSize
	}
	switch filters.SortBy {
	case "", "date", "amount", "created_at":
	default:
		return nil, domain.ErrInvalidInput
	}
	return s.transactionRepo.List(scope, filters)
}

// UpdateTransactionInput holds the input for updating a transaction
type UpdateTransactionInput struct {
	Amount      decimal.Decimal
	Type        domain.TransactionType
	CategoryID  *uuid.UUID
	Description string
	Date        time.Time
}

// UpdateTransaction updates the editable fields of a transaction. The
// provenance links and entry pattern are immutable after creation.
func (s *TransactionService) UpdateTransaction(scope domain.Scope, id uuid.UUID, input UpdateTransactionInput) (*domain.Transaction, error) {
	existing, err := s.transactionRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	existing.Amount = input.Amount
	existing.Type = input.Type
	existing.CategoryID = input.CategoryID
	existing.Description = strings.TrimSpace(input.Description)
	existing.Date = input.Date

	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, scope, existing.CategoryID, existing.Type); err != nil {
		return nil, err
	}

	return s.transactionRepo.Update(scope, existing)
}

// BulkUpdateItem pairs a transaction ID with its replacement fields.
type BulkUpdateItem struct {
	ID    uuid.UUID
	Input UpdateTransactionInput
}

// BulkUpdateTransactions updates up to MaxBatchSize transactions atomically.
// A single missing or invalid item fails the whole batch.
func (s *TransactionService) BulkUpdateTransactions(scope domain.Scope, items []BulkUpdateItem) ([]*domain.Transaction, error) {
	if len(items) == 0 {
		return nil, domain.ErrBatchEmpty
	}
	if len(items) > domain.MaxBatchSize {
		return nil, domain.ErrBatchTooLarge
	}

	txs := make([]*domain.Transaction, 0, len(items))
	for _, item := range items {
		existing, err := s.transactionRepo.GetByID(scope, item.ID)
		if err != nil {
			return nil, err
		}

		existing.Amount = item.Input.Amount
		existing.Type = item.Input.Type
		existing.CategoryID = item.Input.CategoryID
		existing.Description = strings.TrimSpace(item.Input.Description)
		existing.Date = item.Input.Date

		if err := existing.Validate(); err != nil {
			return nil, err
		}
		if err := checkCategoryForType(s.categoryRepo, scope, existing.CategoryID, existing.Type); err != nil {
			return nil, err
		}
		txs = append(txs, existing)
	}

	return s.transactionRepo.BulkUpdate(scope, txs)
}

// DeleteTransaction deletes a transaction
func (s *TransactionService) DeleteTransaction(scope domain.Scope, id uuid.UUID) error {
	return s.transactionRepo.Delete(scope, id)
}

// BulkDeleteTransactions deletes up to MaxBatchSize transactions by ID and
// returns how many rows were actually removed.
func (s *TransactionService) BulkDeleteTransactions(scope domain.Scope, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, domain.ErrBatchEmpty
	}
	if len(ids) > domain.MaxBatchSize {
		return 0, domain.ErrBatchTooLarge
	}
	return s.transactionRepo.BulkDelete(scope, ids)
}

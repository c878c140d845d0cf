package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// CreditCardService handles credit card business logic
type CreditCardService struct {
	creditCardRepo domain.CreditCardRepository
}

// NewCreditCardService creates a new CreditCardService
func NewCreditCardService(creditCardRepo domain.CreditCardRepository) *CreditCardService {
	return &CreditCardService{creditCardRepo: creditCardRepo}
}

// CreateCreditCardInput holds the input for creating a credit card
type CreateCreditCardInput struct {
	Name           string
	LastFourDigits string
	CardNetwork    string
	Issuer         string
	CreditLimit    decimal.Decimal
	BillingDay     int32
	Currency       string
	Color          string
}

// CreateCreditCard creates an active credit card. The billing day is capped
// at 28 so every month has it.
func (s *CreditCardService) CreateCreditCard(scope domain.Scope, input CreateCreditCardInput) (*domain.CreditCard, error) {
	card := &domain.CreditCard{
		Name:           strings.TrimSpace(input.Name),
		LastFourDigits: strings.TrimSpace(input.LastFourDigits),
		CardNetwork:    strings.TrimSpace(input.CardNetwork),
		Issuer:         strings.TrimSpace(input.Issuer),
		CreditLimit:    input.CreditLimit,
		BillingDay:     input.BillingDay,
		Currency:       strings.ToUpper(strings.TrimSpace(input.Currency)),
		IsActive:       true,
		Color:          input.Color,
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return s.creditCardRepo.Create(scope, card)
}

// GetCreditCard retrieves a credit card by ID
func (s *CreditCardService) GetCreditCard(scope domain.Scope, id uuid.UUID) (*domain.CreditCard, error) {
	return s.creditCardRepo.GetByID(scope, id)
}

// ListCreditCards retrieves the credit cards in scope
func (s *CreditCardService) ListCreditCards(scope domain.Scope, activeOnly bool) ([]*domain.CreditCard, error) {
	return s.creditCardRepo.List(scope, activeOnly)
}

// UpdateCreditCardInput holds the editable fields of a credit card
type UpdateCreditCardInput struct {
	Name        string
	CardNetwork string
	Issuer      string
	CreditLimit decimal.Decimal
	BillingDay  int32
	Color       string
	IsActive    bool
}

// UpdateCreditCard updates a credit card. The last four digits are immutable;
// a replaced card is created as a new row.
func (s *CreditCardService) UpdateCreditCard(scope domain.Scope, id uuid.UUID, input UpdateCreditCardInput) (*domain.CreditCard, error) {
	existing, err := s.creditCardRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.CardNetwork = strings.TrimSpace(input.CardNetwork)
	existing.Issuer = strings.TrimSpace(input.Issuer)
	existing.CreditLimit = input.CreditLimit
	existing.BillingDay = input.BillingDay
	existing.Color = input.Color
	existing.IsActive = input.IsActive

	if err := existing.Validate(); err != nil {
		return nil, err
	}
	return s.creditCardRepo.Update(scope, existing)
}

// DeleteCreditCard removes a credit card
func (s *CreditCardService) DeleteCreditCard(scope domain.Scope, id uuid.UUID) error {
	return s.creditCardRepo.Delete(scope, id)
}

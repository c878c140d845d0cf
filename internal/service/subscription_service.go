package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

// SubscriptionService handles subscription business logic
type SubscriptionService struct {
	subscriptionRepo domain.SubscriptionRepository
	creditCardRepo   domain.CreditCardRepository
	categoryRepo     domain.CategoryRepository
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(
	subscriptionRepo domain.SubscriptionRepository,
	creditCardRepo domain.CreditCardRepository,
	categoryRepo domain.CategoryRepository,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		creditCardRepo:   creditCardRepo,
		categoryRepo:     categoryRepo,
	}
}

// CreateSubscriptionInput holds the input for creating a subscription
type CreateSubscriptionInput struct {
	Name            string
	Amount          decimal.Decimal
	Currency        string
	BillingCycle    domain.BillingCycle
	NextRenewalDate time.Time
	AutoRenew       bool
	Provider        string
	CreditCardID    *uuid.UUID
	CategoryID      *uuid.UUID
}

// CreateSubscription creates an active subscription
func (s *SubscriptionService) CreateSubscription(scope domain.Scope, input CreateSubscriptionInput) (*domain.Subscription, error) {
	sub := &domain.Subscription{
		Name:            strings.TrimSpace(input.Name),
		Amount:          input.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(input.Currency)),
		BillingCycle:    input.BillingCycle,
		NextRenewalDate: input.NextRenewalDate,
		IsActive:        true,
		AutoRenew:       input.AutoRenew,
		Provider:        strings.TrimSpace(input.Provider),
		CreditCardID:    input.CreditCardID,
		CategoryID:      input.CategoryID,
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if sub.CreditCardID != nil {
		if _, err := s.creditCardRepo.GetByID(scope, *sub.CreditCardID); err != nil {
			return nil, err
		}
	}
	if err := checkCategoryForType(s.categoryRepo, scope, sub.CategoryID, domain.TransactionExpense); err != nil {
		return nil, err
	}
	return s.subscriptionRepo.Create(scope, sub)
}

// GetSubscription retrieves a subscription by ID
func (s *SubscriptionService) GetSubscription(scope domain.Scope, id uuid.UUID) (*domain.Subscription, error) {
	return s.subscriptionRepo.GetByID(scope, id)
}

// ListSubscriptions retrieves the subscriptions in scope
func (s *SubscriptionService) ListSubscriptions(scope domain.Scope, activeOnly bool) ([]*domain.Subscription, error) {
	return s.subscriptionRepo.List(scope, activeOnly)
}

// MonthlyCommitment sums the active subscriptions normalised to a per-month
// amount.
func (s *SubscriptionService) MonthlyCommitment(scope domain.Scope) (decimal.Decimal, error) {
	subs, err := s.subscriptionRepo.List(scope, true)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, sub := range subs {
		total = total.Add(sub.MonthlyCost())
	}
	return total, nil
}

// UpdateSubscriptionInput holds the editable fields of a subscription
type UpdateSubscriptionInput struct {
	Name            string
	Amount          decimal.Decimal
	Currency        string
	BillingCycle    domain.BillingCycle
	NextRenewalDate time.Time
	AutoRenew       bool
	Provider        string
	CreditCardID    *uuid.UUID
	CategoryID      *uuid.UUID
}

// UpdateSubscription updates a subscription
func (s *SubscriptionService) UpdateSubscription(scope domain.Scope, id uuid.UUID, input UpdateSubscriptionInput) (*domain.Subscription, error) {
	existing, err := s.subscriptionRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Amount = input.Amount
	existing.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	existing.BillingCycle = input.BillingCycle
	existing.NextRenewalDate = input.NextRenewalDate
	existing.AutoRenew = input.AutoRenew
	existing.Provider = strings.TrimSpace(input.Provider)
	existing.CreditCardID = input.CreditCardID
	existing.CategoryID = input.CategoryID

	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if existing.CreditCardID != nil {
		if _, err := s.creditCardRepo.GetByID(scope, *existing.CreditCardID); err != nil {
			return nil, err
		}
	}
	if err := checkCategoryForType(s.categoryRepo, scope, existing.CategoryID, domain.TransactionExpense); err != nil {
		return nil, err
	}
	return s.subscriptionRepo.Update(scope, existing)
}

// PauseSubscription marks a subscription inactive without losing it
func (s *SubscriptionService) PauseSubscription(scope domain.Scope, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive {
		return nil, domain.ErrScheduleAlreadyPaused
	}
	now := util.Today()
	sub.IsActive = false
	sub.PausedAt = &now
	return s.subscriptionRepo.Update(scope, sub)
}

// ResumeSubscription reactivates a paused subscription
func (s *SubscriptionService) ResumeSubscription(scope domain.Scope, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}
	if sub.IsActive {
		return nil, domain.ErrScheduleNotPaused
	}
	sub.IsActive = true
	sub.PausedAt = nil
	return s.subscriptionRepo.Update(scope, sub)
}

// CancelSubscription removes a subscription permanently
func (s *SubscriptionService) CancelSubscription(scope domain.Scope, id uuid.UUID) error {
	return s.subscriptionRepo.Delete(scope, id)
}

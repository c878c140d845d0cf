package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// ApprovalService handles the organizational expense approval workflow:
// members submit, admins resolve, approval materialises an org expense.
type ApprovalService struct {
	approvalRepo domain.ApprovalRepository
	categoryRepo domain.CategoryRepository
	currencies   *CurrencyService
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	approvalRepo domain.ApprovalRepository,
	categoryRepo domain.CategoryRepository,
	currencies *CurrencyService,
) *ApprovalService {
	return &ApprovalService{
		approvalRepo: approvalRepo,
		categoryRepo: categoryRepo,
		currencies:   currencies,
	}
}

// SubmitApprovalInput holds the input for submitting an expense approval
type SubmitApprovalInput struct {
	Amount      decimal.Decimal
	Currency    string
	CategoryID  *uuid.UUID
	Description string
}

// SubmitApproval files a pending expense request; member role and above,
// org context only.
func (s *ApprovalService) SubmitApproval(dc domain.DataContext, input SubmitApprovalInput) (*domain.ExpenseApproval, error) {
	if !dc.IsOrgContext() {
		return nil, domain.ErrForbidden
	}
	if !dc.HasRole(domain.RoleMember) {
		return nil, domain.ErrForbidden
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currencies.BaseCurrency()
	}
	approval := &domain.ExpenseApproval{
		OrganizationID: *dc.OrganizationID,
		RequestedBy:    dc.UserID,
		Status:         domain.ApprovalPending,
		Amount:         input.Amount,
		Currency:       currency,
		CategoryID:     input.CategoryID,
		Description:    strings.TrimSpace(input.Description),
		RequestedAt:    time.Now().UTC(),
	}
	if err := approval.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, dc.Scope(), approval.CategoryID, domain.TransactionExpense); err != nil {
		return nil, err
	}
	return s.approvalRepo.Create(approval)
}

// GetApproval retrieves an approval in the caller's organization
func (s *ApprovalService) GetApproval(dc domain.DataContext, id uuid.UUID) (*domain.ExpenseApproval, error) {
	if !dc.IsOrgContext() {
		return nil, domain.ErrForbidden
	}
	return s.approvalRepo.GetByID(*dc.OrganizationID, id)
}

// ListApprovals retrieves the organization's approvals, optionally filtered
// by status
func (s *ApprovalService) ListApprovals(dc domain.DataContext, status *domain.ApprovalStatus) ([]*domain.ExpenseApproval, error) {
	if !dc.IsOrgContext() {
		return nil, domain.ErrForbidden
	}
	return s.approvalRepo.List(*dc.OrganizationID, status)
}

// ApproveExpense resolves a pending approval as approved; admin role and
// above. The org expense transaction is created atomically with the
// transition and linked back onto the approval.
func (s *ApprovalService) ApproveExpense(dc domain.DataContext, id uuid.UUID) (*domain.ExpenseApproval, error) {
	if !dc.HasRole(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	approval, err := s.approvalRepo.GetByID(*dc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := approval.Approve(dc.UserID, now); err != nil {
		return nil, err
	}

	fields := s.currencies.PrepareCurrencyFields(approval.Amount, approval.Currency)
	tx := &domain.Transaction{
		UserID:           dc.UserID,
		OrganizationID:   dc.OrganizationID,
		Amount:           fields.Amount,
		Currency:         s.currencies.BaseCurrency(),
		Type:             domain.TransactionExpense,
		CategoryID:       approval.CategoryID,
		Description:      approval.Description,
		Date:             now.Truncate(24 * time.Hour),
		EntryPattern:     domain.EntryOneTime,
		OriginalAmount:   fields.OriginalAmount,
		OriginalCurrency: fields.OriginalCurrency,
		ExchangeRate:     fields.ExchangeRate,
	}
	return s.approvalRepo.Resolve(approval, tx)
}

// RejectExpense resolves a pending approval as rejected; admin role and
// above, reason required.
func (s *ApprovalService) RejectExpense(dc domain.DataContext, id uuid.UUID, reason string) (*domain.ExpenseApproval, error) {
	if !dc.HasRole(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	approval, err := s.approvalRepo.GetByID(*dc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := approval.Reject(reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.approvalRepo.Resolve(approval, nil)
}

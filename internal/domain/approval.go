package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrApprovalNotFound      = errors.New("expense approval not found")
	ErrApprovalResolved      = errors.New("expense approval is already resolved")
	ErrRejectionReasonNeeded = errors.New("rejection reason is required")
)

// ApprovalStatus is a closed enumeration of approval states. approved and
// rejected are terminal.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ExpenseApproval is an org-scoped request to spend money. Approving it
// auto-creates an org expense transaction and links it back.
type ExpenseApproval struct {
	ID              uuid.UUID       `json:"id"`
	OrganizationID  uuid.UUID       `json:"organizationId"`
	RequestedBy     uuid.UUID       `json:"requestedBy"`
	Status          ApprovalStatus  `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	CategoryID      *uuid.UUID      `json:"categoryId,omitempty"`
	Description     string          `json:"description"`
	RejectionReason *string         `json:"rejectionReason,omitempty"`
	ApprovedBy      *uuid.UUID      `json:"approvedBy,omitempty"`
	TransactionID   *uuid.UUID      `json:"transactionId,omitempty"`
	RequestedAt     time.Time       `json:"requestedAt"`
	ResolvedAt      *time.Time      `json:"resolvedAt,omitempty"`
}

func (a *ExpenseApproval) Validate() error {
	if err := ValidateAmount(a.Amount); err != nil {
		return err
	}
	if err := ValidateCurrency(a.Currency); err != nil {
		return err
	}
	if strings.TrimSpace(a.Description) == "" {
		return ErrNameRequired
	}
	return nil
}

// Approve moves a pending approval to approved; terminal states reject a
// second transition.
func (a *ExpenseApproval) Approve(approverID uuid.UUID, now time.Time) error {
	if a.Status != ApprovalPending {
		return ErrApprovalResolved
	}
	a.Status = ApprovalApproved
	a.ApprovedBy = &approverID
	a.ResolvedAt = &now
	return nil
}

// Reject moves a pending approval to rejected with a mandatory reason.
func (a *ExpenseApproval) Reject(reason string, now time.Time) error {
	if a.Status != ApprovalPending {
		return ErrApprovalResolved
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRejectionReasonNeeded
	}
	a.Status = ApprovalRejected
	a.RejectionReason = &reason
	a.ResolvedAt = &now
	return nil
}

// ApprovalRepository is the persistence contract for expense approvals.
// Resolve persists a terminal transition together with the auto-created
// transaction (if any) atomically.
type ApprovalRepository interface {
	Create(approval *ExpenseApproval) (*ExpenseApproval, error)
	GetByID(orgID, id uuid.UUID) (*ExpenseApproval, error)
	List(orgID uuid.UUID, status *ApprovalStatus) ([]*ExpenseApproval, error)
	Resolve(approval *ExpenseApproval, tx *Transaction) (*ExpenseApproval, error)
}

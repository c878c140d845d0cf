package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrAlertNotFound = errors.New("alert not found")

// AlertSeverity is a closed enumeration of alert severities.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType identifies the condition an alert reports.
type AlertType string

const (
	AlertNegativeCashflow      AlertType = "negative_cashflow"
	AlertApproachingNegative   AlertType = "approaching_negative"
	AlertHighExpenses          AlertType = "high_expenses"
	AlertHighSingleExpense     AlertType = "high_single_expense"
	AlertHighIncome            AlertType = "high_income"
	AlertPaymentOverdue        AlertType = "payment_overdue"
	AlertUpcomingPayment       AlertType = "upcoming_payment"
	AlertLoanEndingSoon        AlertType = "loan_ending_soon"
	AlertInstallmentEndingSoon AlertType = "installment_ending_soon"
)

// AlertFamily partitions alerts by how they are regenerated. Each family is
// reconciled independently so a forecast failure does not retire
// entity-derived alerts.
type AlertFamily string

const (
	FamilyForecast AlertFamily = "forecast"
	FamilyEntity   AlertFamily = "entity"
)

// Family returns the regeneration family of an alert type.
func (t AlertType) Family() AlertFamily {
	switch t {
	case AlertNegativeCashflow, AlertApproachingNegative, AlertHighExpenses:
		return FamilyForecast
	}
	return FamilyEntity
}

// Alert is a generated notification. DedupKey is the deterministic identity
// used to match regenerations against existing rows so is_read survives.
type Alert struct {
	ID                uuid.UUID     `json:"id"`
	UserID            uuid.UUID     `json:"userId"`
	OrganizationID    *uuid.UUID    `json:"organizationId,omitempty"`
	AlertType         AlertType     `json:"alertType"`
	Severity          AlertSeverity `json:"severity"`
	Title             string        `json:"title"`
	Message           string        `json:"message"`
	RelatedEntityType string        `json:"relatedEntityType,omitempty"`
	RelatedEntityID   *uuid.UUID    `json:"relatedEntityId,omitempty"`
	RelatedMonth      *time.Time    `json:"relatedMonth,omitempty"`
	DedupKey          string        `json:"-"`
	IsRead            bool          `json:"isRead"`
	IsDismissed       bool          `json:"isDismissed"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// MonthKey builds the dedup key for a forecast-derived alert.
func MonthKey(alertType AlertType, month time.Time) string {
	return fmt.Sprintf("%s:%s", alertType, month.Format("2006-01"))
}

// EntityKey builds the dedup key for an entity-derived alert.
func EntityKey(alertType AlertType, parts ...string) string {
	key := string(alertType)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// AlertRepository is the persistence contract for alerts. Apply commits a
// reconciliation (in-place updates, inserts, deletions) atomically.
type AlertRepository interface {
	ListNonDismissed(scope Scope, family AlertFamily) ([]*Alert, error)
	List(scope Scope, unreadOnly bool) ([]*Alert, error)
	GetByID(scope Scope, id uuid.UUID) (*Alert, error)
	Apply(scope Scope, updates, inserts []*Alert, deleteIDs []uuid.UUID) error
	MarkRead(scope Scope, id uuid.UUID) (*Alert, error)
	MarkAllRead(scope Scope) (int64, error)
	Dismiss(scope Scope, id uuid.UUID) (*Alert, error)
}

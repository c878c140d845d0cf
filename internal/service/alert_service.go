package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

// Alert thresholds, amounts in the base currency.
var (
	negativeCriticalBelow  = decimal.NewFromInt(-5000)
	approachingNegativeMax = decimal.NewFromInt(1000)
	highExpensesNetBelow   = decimal.NewFromInt(-10000)
	highSingleExpenseOver  = decimal.NewFromInt(5000)
	highIncomeFactor       = decimal.NewFromFloat(1.5)
)

const (
	upcomingPaymentWindowDays  = 3
	loanEndingSoonBelow        = 3
	installmentEndingSoonBelow = 2
)

// AlertService regenerates alerts by reconciling desired state against the
// stored non-dismissed set. The deterministic dedup key is the identity:
// matching alerts are updated in place so is_read and created_at survive.
type AlertService struct {
	alertRepo       domain.AlertRepository
	transactionRepo domain.TransactionRepository
	installmentRepo domain.InstallmentRepository
	loanRepo        domain.LoanRepository
	forecasts       *ForecastService
}

// NewAlertService creates a new AlertService.
func NewAlertService(
	alertRepo domain.AlertRepository,
	transactionRepo domain.TransactionRepository,
	installmentRepo domain.InstallmentRepository,
	loanRepo domain.LoanRepository,
	forecasts *ForecastService,
) *AlertService {
	return &AlertService{
		alertRepo:       alertRepo,
		transactionRepo: transactionRepo,
		installmentRepo: installmentRepo,
		loanRepo:        loanRepo,
		forecasts:       forecasts,
	}
}

// Generate recomputes both alert families and returns the surviving set.
// A forecast computation failure is logged and skips the forecast family
// only; entity-derived alerts are still reconciled.
func (s *AlertService) Generate(scope domain.Scope, months int) ([]*domain.Alert, error) {
	return s.GenerateAt(scope, util.Today(), months)
}

// GenerateAt is Generate with an explicit reference date.
func (s *AlertService) GenerateAt(scope domain.Scope, today time.Time, months int) ([]*domain.Alert, error) {
	if months <= 0 {
		months = DefaultForecastMonths
	}

	forecastFresh, forecastErr := s.forecastAlerts(scope, today, months)
	if forecastErr != nil {
		log.Error().Err(forecastErr).Msg("forecast computation failed, skipping forecast alerts")
	} else {
		if err := s.reconcile(scope, domain.FamilyForecast, forecastFresh); err != nil {
			return nil, err
		}
	}

	entityFresh, err := s.entityAlerts(scope, today)
	if err != nil {
		return nil, err
	}
	if err := s.reconcile(scope, domain.FamilyEntity, entityFresh); err != nil {
		return nil, err
	}

	return s.alertRepo.List(scope, false)
}

// reconcile diffs the fresh desired set against stored non-dismissed alerts
// of one family: matched keys update title/message/severity in place, new
// keys insert unread, stale keys are deleted. One Apply commits all three.
func (s *AlertService) reconcile(scope domain.Scope, family domain.AlertFamily, fresh []*domain.Alert) error {
	existing, err := s.alertRepo.ListNonDismissed(scope, family)
	if err != nil {
		return err
	}
	byKey := make(map[string]*domain.Alert, len(existing))
	for _, a := range existing {
		byKey[a.DedupKey] = a
	}

	var updates, inserts []*domain.Alert
	seen := make(map[string]bool, len(fresh))
	for _, f := range fresh {
		seen[f.DedupKey] = true
		if current, ok := byKey[f.DedupKey]; ok {
			current.Title = f.Title
			current.Message = f.Message
			current.Severity = f.Severity
			updates = append(updates, current)
		} else {
			inserts = append(inserts, f)
		}
	}

	var deleteIDs []uuid.UUID
	for key, a := range byKey {
		if !seen[key] {
			deleteIDs = append(deleteIDs, a.ID)
		}
	}

	return s.alertRepo.Apply(scope, updates, inserts, deleteIDs)
}

func (s *AlertService) forecastAlerts(scope domain.Scope, today time.Time, months int) ([]*domain.Alert, error) {
	forecast, err := s.forecasts.MonthlyFrom(scope, today, months)
	if err != nil {
		return nil, err
	}

	var fresh []*domain.Alert
	for _, m := range forecast.Months {
		month := m.Month
		monthName := fmt.Sprintf("%s %d", util.HebrewMonth(month), month.Year())

		if m.Closing.IsNegative() {
			severity := domain.SeverityWarning
			if m.Closing.LessThan(negativeCriticalBelow) {
				severity = domain.SeverityCritical
			}
			fresh = append(fresh, &domain.Alert{
				AlertType:         domain.AlertNegativeCashflow,
				Severity:          severity,
				Title:             "Negative balance expected",
				Message:           fmt.Sprintf("Projected closing balance for %s is %s", monthName, util.FormatAmount(m.Closing)),
				RelatedEntityType: "forecast",
				RelatedMonth:      &month,
				DedupKey:          domain.MonthKey(domain.AlertNegativeCashflow, month),
			})
		} else if m.Closing.LessThan(approachingNegativeMax) {
			fresh = append(fresh, &domain.Alert{
				AlertType:         domain.AlertApproachingNegative,
				Severity:          domain.SeverityInfo,
				Title:             "Balance approaching zero",
				Message:           fmt.Sprintf("Projected closing balance for %s is only %s", monthName, util.FormatAmount(m.Closing)),
				RelatedEntityType: "forecast",
				RelatedMonth:      &month,
				DedupKey:          domain.MonthKey(domain.AlertApproachingNegative, month),
			})
		}

		if m.Net.LessThan(highExpensesNetBelow) {
			fresh = append(fresh, &domain.Alert{
				AlertType:         domain.AlertHighExpenses,
				Severity:          domain.SeverityInfo,
				Title:             "High expenses expected",
				Message:           fmt.Sprintf("Projected net for %s is %s", monthName, util.FormatAmount(m.Net)),
				RelatedEntityType: "forecast",
				RelatedMonth:      &month,
				DedupKey:          domain.MonthKey(domain.AlertHighExpenses, month),
			})
		}
	}
	return fresh, nil
}

func (s *AlertService) entityAlerts(scope domain.Scope, today time.Time) ([]*domain.Alert, error) {
	var fresh []*domain.Alert

	monthStart := util.FirstOfMonth(today)
	monthEnd := util.EndOfMonth(today)
	current, err := s.transactionRepo.ListByDateRange(scope, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	currentIncome := decimal.Zero
	for _, tx := range current {
		if tx.Type == domain.TransactionIncome {
			currentIncome = currentIncome.Add(tx.Amount)
			continue
		}
		if tx.Amount.GreaterThan(highSingleExpenseOver) {
			id := tx.ID
			fresh = append(fresh, &domain.Alert{
				AlertType:         domain.AlertHighSingleExpense,
				Severity:          domain.SeverityWarning,
				Title:             "Unusually large expense",
				Message:           fmt.Sprintf("%s: %s in %s %d", tx.Description, util.FormatAmount(tx.Amount), util.HebrewMonth(tx.Date), tx.Date.Year()),
				RelatedEntityType: "transaction",
				RelatedEntityID:   &id,
				DedupKey:          domain.EntityKey(domain.AlertHighSingleExpense, tx.ID.String()),
			})
		}
	}

	// High income: current month vs the average of the previous 3 months.
	prevStart := monthStart.AddDate(0, -3, 0)
	previous, err := s.transactionRepo.ListByDateRange(scope, prevStart, monthStart.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	prevIncome := decimal.Zero
	for _, tx := range previous {
		if tx.Type == domain.TransactionIncome {
			prevIncome = prevIncome.Add(tx.Amount)
		}
	}
	avgIncome := prevIncome.DivRound(decimal.NewFromInt(3), 2)
	if avgIncome.IsPositive() && currentIncome.GreaterThan(avgIncome.Mul(highIncomeFactor)) {
		month := monthStart
		fresh = append(fresh, &domain.Alert{
			AlertType:         domain.AlertHighIncome,
			Severity:          domain.SeverityInfo,
			Title:             "Income above usual",
			Message:           fmt.Sprintf("Income in %s %d is %s, above the 3-month average of %s", util.HebrewMonth(month), month.Year(), util.FormatAmount(currentIncome), util.FormatAmount(avgIncome)),
			RelatedEntityType: "month",
			RelatedMonth:      &month,
			DedupKey:          domain.EntityKey(domain.AlertHighIncome, month.Format("2006-01")),
		})
	}

	// Payment timing and ending-soon alerts from loans and installments.
	loans, err := s.loanRepo.List(scope, domain.LoanFilterActive)
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		id := loan.ID
		fresh = append(fresh, s.paymentTimingAlerts(today, string(domain.SourceLoan), loan.Name, &id, loan.NextPaymentDate())...)
		if r := loan.RemainingPayments(); r > 0 && r < loanEndingSoonBelow {
			fresh = append(fresh, &domain.Alert{
				AlertType:         domain.AlertLoanEndingSoon,
				Severity:          domain.SeverityInfo,
				Title:             "Loan ending soon",
				Message:           fmt.Sprintf("%s has %d payments left", loan.Name, r),
				RelatedEntityType: "loan",
				RelatedEntityID:   &id,
				DedupKey:          domain.EntityKey(domain.AlertLoanEndingSoon, loan.ID.String()),
			})
		}
	}

	installments, err := s.installmentRepo.List(scope)
	if err != nil {
		return nil, err
	}
	for _, inst := range installments {
		if inst.PaymentsCompleted >= inst.NumberOfPayments {
			continue
		}
		id := inst.ID
		fresh = append(fresh, s.paymentTimingAlerts(today, string(domain.SourceInstallment), inst.Name, &id, inst.NextPaymentDate())...)
		if r := inst.RemainingPayments(); r > 0 && r < installmentEndingSoonBelow {
			fresh = append(fresh, &domain.Alert{
				AlertType:         domain.AlertInstallmentEndingSoon,
				Severity:          domain.SeverityInfo,
				Title:             "Installment ending soon",
				Message:           fmt.Sprintf("%s has %d payments left", inst.Name, r),
				RelatedEntityType: "installment",
				RelatedEntityID:   &id,
				DedupKey:          domain.EntityKey(domain.AlertInstallmentEndingSoon, inst.ID.String()),
			})
		}
	}

	return fresh, nil
}

// paymentTimingAlerts derives overdue / upcoming alerts from the next
// expected payment date of a recurring entity.
func (s *AlertService) paymentTimingAlerts(today time.Time, kind, name string, id *uuid.UUID, next *time.Time) []*domain.Alert {
	if next == nil {
		return nil
	}
	entityType := kind
	if next.Before(today) {
		return []*domain.Alert{{
			AlertType:         domain.AlertPaymentOverdue,
			Severity:          domain.SeverityCritical,
			Title:             "Payment overdue",
			Message:           fmt.Sprintf("%s payment was due on %s", name, next.Format("2006-01-02")),
			RelatedEntityType: entityType,
			RelatedEntityID:   id,
			DedupKey:          domain.EntityKey(domain.AlertPaymentOverdue, kind, id.String()),
		}}
	}
	daysUntil := int(next.Sub(today).Hours() / 24)
	if daysUntil <= upcomingPaymentWindowDays {
		return []*domain.Alert{{
			AlertType:         domain.AlertUpcomingPayment,
			Severity:          domain.SeverityInfo,
			Title:             "Payment due soon",
			Message:           fmt.Sprintf("%s payment is due on %s", name, next.Format("2006-01-02")),
			RelatedEntityType: entityType,
			RelatedEntityID:   id,
			DedupKey:          domain.EntityKey(domain.AlertUpcomingPayment, kind, id.String(), next.Format("2006-01-02")),
		}}
	}
	return nil
}

// ListAlerts retrieves the scope's non-dismissed alerts
func (s *AlertService) ListAlerts(scope domain.Scope, unreadOnly bool) ([]*domain.Alert, error) {
	return s.alertRepo.List(scope, unreadOnly)
}

// MarkAlertRead marks one alert as read
func (s *AlertService) MarkAlertRead(scope domain.Scope, id uuid.UUID) (*domain.Alert, error) {
	return s.alertRepo.MarkRead(scope, id)
}

// MarkAllAlertsRead marks all of the scope's unread alerts as read
func (s *AlertService) MarkAllAlertsRead(scope domain.Scope) (int64, error) {
	return s.alertRepo.MarkAllRead(scope)
}

// DismissAlert tombstones an alert so regeneration will not resurrect it in
// place; a genuinely recurring condition comes back as a fresh unread alert
func (s *AlertService) DismissAlert(scope domain.Scope, id uuid.UUID) (*domain.Alert, error) {
	return s.alertRepo.Dismiss(scope, id)
}

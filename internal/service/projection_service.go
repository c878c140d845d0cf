package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

// Occurrence is one projected money movement: either a materialised
// transaction or a virtual occurrence of a recurring entity. Amounts are in
// the base currency. SourceID is nil for one-time transactions.
type Occurrence struct {
	Type         domain.TransactionType `json:"type"`
	Date         time.Time              `json:"date"`
	Amount       decimal.Decimal        `json:"amount"`
	Description  string                 `json:"description"`
	SourceKind   domain.SourceKind      `json:"sourceKind,omitempty"`
	SourceID     *uuid.UUID             `json:"sourceId,omitempty"`
	Materialised bool                   `json:"materialised"`
}

// MonthBuckets is the per-month aggregation the forecast consumes. One-time
// amounts come from materialised transactions only; the recurring buckets mix
// materialised and virtual occurrences without double-counting.
type MonthBuckets struct {
	FixedIncome         decimal.Decimal
	FixedExpenses       decimal.Decimal
	InstallmentPayments decimal.Decimal
	LoanPayments        decimal.Decimal
	OneTimeIncome       decimal.Decimal
	OneTimeExpenses     decimal.Decimal
}

// ProjectionSpan holds everything loaded for a date range so aggregation
// happens in memory. It never mutates state: it is the deterministic witness
// of what the books say will happen if nothing changes.
type ProjectionSpan struct {
	start        time.Time
	end          time.Time
	transactions []*domain.Transaction
	fixed        []*domain.FixedSchedule
	installments []*domain.Installment
	loans        []*domain.Loan
	materialised map[domain.MaterialisedKey]bool

	occurrences []Occurrence
}

// ProjectionService expands recurring entities into virtual occurrences over
// a date range, deduplicating against materialised transactions.
type ProjectionService struct {
	transactionRepo domain.TransactionRepository
	fixedRepo       domain.FixedScheduleRepository
	installmentRepo domain.InstallmentRepository
	loanRepo        domain.LoanRepository
}

// NewProjectionService creates a new ProjectionService.
func NewProjectionService(
	transactionRepo domain.TransactionRepository,
	fixedRepo domain.FixedScheduleRepository,
	installmentRepo domain.InstallmentRepository,
	loanRepo domain.LoanRepository,
) *ProjectionService {
	return &ProjectionService{
		transactionRepo: transactionRepo,
		fixedRepo:       fixedRepo,
		installmentRepo: installmentRepo,
		loanRepo:        loanRepo,
	}
}

// Load fetches the materialised transactions, active recurring entities and
// the dedupe fingerprints for [start, end].
func (s *ProjectionService) Load(scope domain.Scope, start, end time.Time) (*ProjectionSpan, error) {
	transactions, err := s.transactionRepo.ListByDateRange(scope, start, end)
	if err != nil {
		return nil, err
	}
	keys, err := s.transactionRepo.MaterialisedKeys(scope, start, end)
	if err != nil {
		return nil, err
	}
	fixed, err := s.fixedRepo.List(scope, true)
	if err != nil {
		return nil, err
	}
	installments, err := s.installmentRepo.List(scope)
	if err != nil {
		return nil, err
	}
	loans, err := s.loanRepo.List(scope, domain.LoanFilterActive)
	if err != nil {
		return nil, err
	}

	materialised := make(map[domain.MaterialisedKey]bool, len(keys))
	for _, k := range keys {
		materialised[k] = true
	}
	return &ProjectionSpan{
		start:        start,
		end:          end,
		transactions: transactions,
		fixed:        fixed,
		installments: installments,
		loans:        loans,
		materialised: materialised,
	}, nil
}

// Occurrences returns all movements in [start, end] sorted by date.
func (s *ProjectionService) Occurrences(scope domain.Scope, start, end time.Time) ([]Occurrence, error) {
	span, err := s.Load(scope, start, end)
	if err != nil {
		return nil, err
	}
	return span.Occurrences(), nil
}

// Totals aggregates the span into income and expense sums.
func (s *ProjectionService) Totals(scope domain.Scope, start, end time.Time) (decimal.Decimal, decimal.Decimal, error) {
	occurrences, err := s.Occurrences(scope, start, end)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	income, expenses := decimal.Zero, decimal.Zero
	for _, o := range occurrences {
		if o.Type == domain.TransactionIncome {
			income = income.Add(o.Amount)
		} else {
			expenses = expenses.Add(o.Amount)
		}
	}
	return income, expenses, nil
}

// Occurrences expands the loaded span. Materialised transactions are emitted
// as-is; each recurring entity emits at most one virtual occurrence per month
// it admits, dated with end-of-month clamping. The expansion is computed once
// and cached on the span.
func (p *ProjectionSpan) Occurrences() []Occurrence {
	if p.occurrences != nil {
		return p.occurrences
	}
	out := make([]Occurrence, 0, len(p.transactions))

	for _, tx := range p.transactions {
		sourceKind, sourceID := provenance(tx)
		out = append(out, Occurrence{
			Type:         tx.Type,
			Date:         tx.Date,
			Amount:       tx.Amount,
			Description:  tx.Description,
			SourceKind:   sourceKind,
			SourceID:     sourceID,
			Materialised: true,
		})
	}

	for month := util.FirstOfMonth(p.start); !month.After(p.end); month = month.AddDate(0, 1, 0) {
		monthEnd := util.EndOfMonth(month)
		year, m := month.Year(), month.Month()

		for _, f := range p.fixed {
			if !f.AppliesToMonth(month, monthEnd) {
				continue
			}
			if p.materialised[domain.MaterialisedKey{Kind: domain.SourceFixed, SourceID: f.ID, Year: year, Month: m}] {
				continue
			}
			date := util.ClampDayToMonth(year, m, int(f.DayOfMonth))
			if p.inRange(date) {
				id := f.ID
				out = append(out, Occurrence{
					Type:        f.Type,
					Date:        date,
					Amount:      f.Amount,
					Description: f.Name,
					SourceKind:  domain.SourceFixed,
					SourceID:    &id,
				})
			}
		}

		for _, inst := range p.installments {
			k := inst.PaymentIndexForMonth(year, m)
			if k == 0 || k <= inst.PaymentsCompleted {
				continue
			}
			if p.materialised[domain.MaterialisedKey{Kind: domain.SourceInstallment, SourceID: inst.ID, Year: year, Month: m}] {
				continue
			}
			date := util.ClampDayToMonth(year, m, int(inst.DayOfMonth))
			if p.inRange(date) {
				id := inst.ID
				out = append(out, Occurrence{
					Type:        inst.Type,
					Date:        date,
					Amount:      inst.ScheduledAmount(k),
					Description: inst.Name,
					SourceKind:  domain.SourceInstallment,
					SourceID:    &id,
				})
			}
		}

		for _, loan := range p.loans {
			k := loan.PaymentIndexForMonth(year, m)
			if k == 0 || k <= loan.PaymentsMade {
				continue
			}
			if p.materialised[domain.MaterialisedKey{Kind: domain.SourceLoan, SourceID: loan.ID, Year: year, Month: m}] {
				continue
			}
			date := util.ClampDayToMonth(year, m, int(loan.DayOfMonth))
			if p.inRange(date) {
				id := loan.ID
				out = append(out, Occurrence{
					Type:        domain.TransactionExpense,
					Date:        date,
					Amount:      loan.MonthlyPayment,
					Description: loan.Name,
					SourceKind:  domain.SourceLoan,
					SourceID:    &id,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	p.occurrences = out
	return out
}

// MonthBuckets aggregates one month of the span into the forecast buckets.
func (p *ProjectionSpan) MonthBuckets(year int, month time.Month) MonthBuckets {
	b := MonthBuckets{
		FixedIncome:         decimal.Zero,
		FixedExpenses:       decimal.Zero,
		InstallmentPayments: decimal.Zero,
		LoanPayments:        decimal.Zero,
		OneTimeIncome:       decimal.Zero,
		OneTimeExpenses:     decimal.Zero,
	}
	for _, o := range p.Occurrences() {
		if o.Date.Year() != year || o.Date.Month() != month {
			continue
		}
		switch o.SourceKind {
		case domain.SourceFixed:
			if o.Type == domain.TransactionIncome {
				b.FixedIncome = b.FixedIncome.Add(o.Amount)
			} else {
				b.FixedExpenses = b.FixedExpenses.Add(o.Amount)
			}
		case domain.SourceInstallment:
			b.InstallmentPayments = b.InstallmentPayments.Add(o.Amount)
		case domain.SourceLoan:
			b.LoanPayments = b.LoanPayments.Add(o.Amount)
		default:
			if o.Type == domain.TransactionIncome {
				b.OneTimeIncome = b.OneTimeIncome.Add(o.Amount)
			} else {
				b.OneTimeExpenses = b.OneTimeExpenses.Add(o.Amount)
			}
		}
	}
	return b
}

func (p *ProjectionSpan) inRange(date time.Time) bool {
	return !date.Before(p.start) && !date.After(p.end)
}

func provenance(tx *domain.Transaction) (domain.SourceKind, *uuid.UUID) {
	switch {
	case tx.RecurringSourceID != nil:
		return domain.SourceFixed, tx.RecurringSourceID
	case tx.InstallmentID != nil:
		return domain.SourceInstallment, tx.InstallmentID
	case tx.LoanID != nil:
		return domain.SourceLoan, tx.LoanID
	}
	return "", nil
}

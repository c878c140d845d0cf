package service

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

const (
	DefaultForecastMonths = 6
	MaxForecastMonths     = 24
	DefaultForecastWeeks  = 12
	MaxForecastWeeks      = 52
)

// ForecastService walks the balance forward month-by-month or week-by-week,
// sourcing from the projection engine, the expected-income table and the
// current bank balance.
type ForecastService struct {
	projections *ProjectionService
	incomeRepo  domain.ExpectedIncomeRepository
	balanceRepo domain.BankBalanceRepository
}

// NewForecastService creates a new ForecastService.
func NewForecastService(
	projections *ProjectionService,
	incomeRepo domain.ExpectedIncomeRepository,
	balanceRepo domain.BankBalanceRepository,
) *ForecastService {
	return &ForecastService{
		projections: projections,
		incomeRepo:  incomeRepo,
		balanceRepo: balanceRepo,
	}
}

// Monthly computes the month-by-month forecast starting at the current month.
func (s *ForecastService) Monthly(scope domain.Scope, months int) (*domain.MonthlyForecast, error) {
	return s.MonthlyFrom(scope, util.Today(), months)
}

// MonthlyFrom computes the forecast with an explicit reference date.
func (s *ForecastService) MonthlyFrom(scope domain.Scope, today time.Time, months int) (*domain.MonthlyForecast, error) {
	if months <= 0 {
		months = DefaultForecastMonths
	}
	if months > MaxForecastMonths {
		months = MaxForecastMonths
	}

	current, err := s.currentBalance(scope)
	if err != nil {
		return nil, err
	}

	start := util.FirstOfMonth(today)
	end := util.EndOfMonth(start.AddDate(0, months-1, 0))

	span, err := s.projections.Load(scope, start, end)
	if err != nil {
		return nil, err
	}
	expected, err := s.incomeRepo.ListRange(scope, start, end)
	if err != nil {
		return nil, err
	}
	expectedByMonth := make(map[time.Time]decimal.Decimal, len(expected))
	for _, e := range expected {
		expectedByMonth[util.FirstOfMonth(e.Month)] = e.ExpectedAmount
	}

	forecast := &domain.MonthlyForecast{
		CurrentBalance: current,
		Months:         make([]domain.ForecastMonth, 0, months),
	}
	running := current

	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0)
		buckets := span.MonthBuckets(month.Year(), month.Month())

		expectedIncome := decimal.Zero
		if amount, ok := expectedByMonth[month]; ok {
			expectedIncome = amount
		}

		totalIncome := buckets.FixedIncome.Add(expectedIncome).Add(buckets.OneTimeIncome)
		totalExpenses := buckets.FixedExpenses.
			Add(buckets.InstallmentPayments).
			Add(buckets.LoanPayments).
			Add(buckets.OneTimeExpenses)
		net := totalIncome.Sub(totalExpenses)
		closing := running.Add(net)

		forecast.Months = append(forecast.Months, domain.ForecastMonth{
			Month:               month,
			Opening:             running,
			FixedIncome:         buckets.FixedIncome,
			FixedExpenses:       buckets.FixedExpenses,
			InstallmentPayments: buckets.InstallmentPayments,
			LoanPayments:        buckets.LoanPayments,
			ExpectedIncome:      expectedIncome,
			OneTimeIncome:       buckets.OneTimeIncome,
			OneTimeExpenses:     buckets.OneTimeExpenses,
			TotalIncome:         totalIncome,
			TotalExpenses:       totalExpenses,
			Net:                 net,
			Closing:             closing,
		})

		if closing.IsNegative() && !forecast.HasNegativeMonths {
			forecast.HasNegativeMonths = true
			m := month
			forecast.FirstNegativeMonth = &m
		}
		running = closing
	}

	return forecast, nil
}

// Weekly computes the week-by-week forecast starting today.
func (s *ForecastService) Weekly(scope domain.Scope, weeks int) (*domain.WeeklyForecast, error) {
	return s.WeeklyFrom(scope, util.Today(), weeks)
}

// WeeklyFrom computes the weekly forecast with an explicit reference date.
// Each week is a 7-day window starting at the reference day; occurrences land
// in the week containing their due date.
func (s *ForecastService) WeeklyFrom(scope domain.Scope, today time.Time, weeks int) (*domain.WeeklyForecast, error) {
	if weeks <= 0 {
		weeks = DefaultForecastWeeks
	}
	if weeks > MaxForecastWeeks {
		weeks = MaxForecastWeeks
	}

	current, err := s.currentBalance(scope)
	if err != nil {
		return nil, err
	}

	start := today
	end := start.AddDate(0, 0, weeks*7-1)
	occurrences, err := s.projections.Occurrences(scope, start, end)
	if err != nil {
		return nil, err
	}

	forecast := &domain.WeeklyForecast{
		CurrentBalance: current,
		Weeks:          make([]domain.ForecastWeek, 0, weeks),
	}
	running := current

	for i := 0; i < weeks; i++ {
		weekStart := start.AddDate(0, 0, i*7)
		weekEnd := weekStart.AddDate(0, 0, 6)

		income, expenses := decimal.Zero, decimal.Zero
		for _, o := range occurrences {
			if o.Date.Before(weekStart) || o.Date.After(weekEnd) {
				continue
			}
			if o.Type == domain.TransactionIncome {
				income = income.Add(o.Amount)
			} else {
				expenses = expenses.Add(o.Amount)
			}
		}

		net := income.Sub(expenses)
		closing := running.Add(net)
		forecast.Weeks = append(forecast.Weeks, domain.ForecastWeek{
			WeekStart: weekStart,
			WeekEnd:   weekEnd,
			Opening:   running,
			Income:    income,
			Expenses:  expenses,
			Net:       net,
			Closing:   closing,
		})

		if closing.IsNegative() && !forecast.HasNegativeWeeks {
			forecast.HasNegativeWeeks = true
			w := weekStart
			forecast.FirstNegativeWeek = &w
		}
		running = closing
	}

	return forecast, nil
}

func (s *ForecastService) currentBalance(scope domain.Scope) (decimal.Decimal, error) {
	balance, err := s.balanceRepo.GetCurrent(scope)
	if err != nil {
		if errors.Is(err, domain.ErrBankBalanceNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return balance.Balance, nil
}

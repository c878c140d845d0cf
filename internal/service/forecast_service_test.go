package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

type forecastFixture struct {
	*projectionFixture
	incomes  *testutil.MockExpectedIncomeRepository
	balances *testutil.MockBankBalanceRepository
	service  *ForecastService
}

func newForecastFixture() *forecastFixture {
	pf := newProjectionFixture()
	f := &forecastFixture{
		projectionFixture: pf,
		incomes:           testutil.NewMockExpectedIncomeRepository(),
		balances:          testutil.NewMockBankBalanceRepository(),
	}
	f.service = NewForecastService(pf.service, f.incomes, f.balances)
	return f
}

func (f *forecastFixture) setBalance(amount decimal.Decimal) {
	_, err := f.balances.Create(f.scope, &domain.BankBalance{
		Balance:       amount,
		Currency:      "ILS",
		EffectiveDate: date(2026, time.March, 1),
		IsCurrent:     true,
	})
	if err != nil {
		panic(err)
	}
}

func TestMonthlyForecast_NegativeDetection(t *testing.T) {
	f := newForecastFixture()
	f.setBalance(decimal.NewFromInt(200))
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Office lease",
		Amount:     decimal.NewFromInt(15000),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 1,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	today := date(2026, time.March, 10)
	forecast, err := f.service.MonthlyFrom(f.scope, today, 3)
	require.NoError(t, err)

	require.Len(t, forecast.Months, 3)
	first := forecast.Months[0]
	assert.True(t, first.Closing.Equal(decimal.NewFromInt(-14800)),
		"expected -14800, got %s", first.Closing)
	assert.True(t, forecast.HasNegativeMonths)
	require.NotNil(t, forecast.FirstNegativeMonth)
	assert.Equal(t, date(2026, time.March, 1), *forecast.FirstNegativeMonth)
}

func TestMonthlyForecast_BalanceWalk(t *testing.T) {
	f := newForecastFixture()
	f.setBalance(decimal.NewFromInt(10000))
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Salary",
		Amount:     decimal.NewFromInt(14000),
		Currency:   "ILS",
		Type:       domain.TransactionIncome,
		DayOfMonth: 10,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)
	_, err = f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Rent",
		Amount:     decimal.NewFromInt(4500),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 1,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	forecast, err := f.service.MonthlyFrom(f.scope, date(2026, time.March, 5), 3)
	require.NoError(t, err)

	// Each month nets +9500; closings chain into openings
	require.Len(t, forecast.Months, 3)
	assert.True(t, forecast.Months[0].Opening.Equal(decimal.NewFromInt(10000)))
	assert.True(t, forecast.Months[0].Closing.Equal(decimal.NewFromInt(19500)))
	assert.True(t, forecast.Months[1].Opening.Equal(decimal.NewFromInt(19500)))
	assert.True(t, forecast.Months[2].Closing.Equal(decimal.NewFromInt(38500)))
	assert.False(t, forecast.HasNegativeMonths)
}

func TestMonthlyForecast_ExpectedIncomeBucket(t *testing.T) {
	f := newForecastFixture()
	f.setBalance(decimal.Zero)
	_, err := f.incomes.Upsert(f.scope, &domain.ExpectedIncome{
		Month:          date(2026, time.April, 1),
		ExpectedAmount: decimal.NewFromInt(8000),
	})
	require.NoError(t, err)

	forecast, err := f.service.MonthlyFrom(f.scope, date(2026, time.March, 15), 2)
	require.NoError(t, err)

	assert.True(t, forecast.Months[0].ExpectedIncome.IsZero())
	assert.True(t, forecast.Months[1].ExpectedIncome.Equal(decimal.NewFromInt(8000)))
	assert.True(t, forecast.Months[1].Closing.Equal(decimal.NewFromInt(8000)))
}

func TestMonthlyForecast_NoBalanceRowStartsAtZero(t *testing.T) {
	f := newForecastFixture()
	forecast, err := f.service.MonthlyFrom(f.scope, date(2026, time.March, 1), 1)
	require.NoError(t, err)
	assert.True(t, forecast.CurrentBalance.IsZero())
}

func TestMonthlyForecast_MaterialisedNotDoubleCounted(t *testing.T) {
	f := newForecastFixture()
	f.setBalance(decimal.Zero)
	schedule, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Rent",
		Amount:     decimal.NewFromInt(4500),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 1,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)
	scheduleID := schedule.ID
	_, err = f.transactions.Create(f.scope, &domain.Transaction{
		Amount:            decimal.NewFromInt(4500),
		Currency:          "ILS",
		Type:              domain.TransactionExpense,
		Description:       "Rent",
		Date:              date(2026, time.March, 1),
		EntryPattern:      domain.EntryRecurring,
		IsRecurring:       true,
		RecurringSourceID: &scheduleID,
	})
	require.NoError(t, err)

	forecast, err := f.service.MonthlyFrom(f.scope, date(2026, time.March, 1), 1)
	require.NoError(t, err)

	// The materialised rent counts once, in the fixed bucket
	month := forecast.Months[0]
	assert.True(t, month.FixedExpenses.Equal(decimal.NewFromInt(4500)),
		"got %s", month.FixedExpenses)
	assert.True(t, month.OneTimeExpenses.IsZero())
	assert.True(t, month.Closing.Equal(decimal.NewFromInt(-4500)))
}

func TestWeeklyForecast(t *testing.T) {
	f := newForecastFixture()
	f.setBalance(decimal.NewFromInt(1000))
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Cleaning",
		Amount:     decimal.NewFromInt(600),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 8,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	forecast, err := f.service.WeeklyFrom(f.scope, date(2026, time.March, 2), 2)
	require.NoError(t, err)

	// March 8 falls in the first week (Mar 2-8)
	require.Len(t, forecast.Weeks, 2)
	assert.True(t, forecast.Weeks[0].Expenses.Equal(decimal.NewFromInt(600)))
	assert.True(t, forecast.Weeks[0].Closing.Equal(decimal.NewFromInt(400)))
	assert.True(t, forecast.Weeks[1].Expenses.IsZero())
}

func TestWeeklyForecast_NegativeDetection(t *testing.T) {
	f := newForecastFixture()
	f.setBalance(decimal.NewFromInt(100))
	_, err := f.transactions.Create(f.scope, &domain.Transaction{
		Amount:       decimal.NewFromInt(500),
		Currency:     "ILS",
		Type:         domain.TransactionExpense,
		Description:  "Repair",
		Date:         date(2026, time.March, 12),
		EntryPattern: domain.EntryOneTime,
	})
	require.NoError(t, err)

	forecast, err := f.service.WeeklyFrom(f.scope, date(2026, time.March, 2), 3)
	require.NoError(t, err)

	assert.True(t, forecast.HasNegativeWeeks)
	require.NotNil(t, forecast.FirstNegativeWeek)
	assert.Equal(t, date(2026, time.March, 9), *forecast.FirstNegativeWeek)
}

func TestMonthlyForecast_ScopeIsolation(t *testing.T) {
	f := newForecastFixture()
	otherScope := domain.PersonalScope(uuid.New())
	_, err := f.balances.Create(otherScope, &domain.BankBalance{
		Balance:       decimal.NewFromInt(99999),
		Currency:      "ILS",
		EffectiveDate: date(2026, time.March, 1),
		IsCurrent:     true,
	})
	require.NoError(t, err)

	forecast, err := f.service.MonthlyFrom(f.scope, date(2026, time.March, 1), 1)
	require.NoError(t, err)
	assert.True(t, forecast.CurrentBalance.IsZero())
}

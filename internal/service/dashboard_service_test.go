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

type dashboardFixture struct {
	scope        domain.Scope
	transactions *testutil.MockTransactionRepository
	balances     *testutil.MockBankBalanceRepository
	categories   *testutil.MockCategoryRepository
	fixed        *testutil.MockFixedScheduleRepository
	installments *testutil.MockInstallmentRepository
	loans        *testutil.MockLoanRepository
	service      *DashboardService
}

func newDashboardFixture() *dashboardFixture {
	f := &dashboardFixture{
		scope:        domain.PersonalScope(uuid.New()),
		transactions: testutil.NewMockTransactionRepository(),
		balances:     testutil.NewMockBankBalanceRepository(),
		categories:   testutil.NewMockCategoryRepository(),
		fixed:        testutil.NewMockFixedScheduleRepository(),
		installments: testutil.NewMockInstallmentRepository(),
		loans:        testutil.NewMockLoanRepository(),
	}
	f.service = NewDashboardService(f.transactions, f.balances, f.categories, f.fixed, f.installments, f.loans)
	return f
}

func (f *dashboardFixture) setBalance(amount decimal.Decimal, effective time.Time) {
	_, err := f.balances.Create(f.scope, &domain.BankBalance{
		Balance:       amount,
		Currency:      "ILS",
		EffectiveDate: effective,
		IsCurrent:     true,
	})
	if err != nil {
		panic(err)
	}
}

func (f *dashboardFixture) addTransaction(txType domain.TransactionType, amount int64, on time.Time, categoryID *uuid.UUID) {
	_, err := f.transactions.Create(f.scope, &domain.Transaction{
		Amount:       decimal.NewFromInt(amount),
		Currency:     "ILS",
		Type:         txType,
		CategoryID:   categoryID,
		Description:  "test entry",
		Date:         on,
		EntryPattern: domain.EntryOneTime,
	})
	if err != nil {
		panic(err)
	}
}

func TestSummary_MonthToDateAndTrends(t *testing.T) {
	f := newDashboardFixture()
	f.setBalance(decimal.NewFromInt(12000), date(2026, time.March, 1))

	// February: 10000 income, 4000 expenses
	f.addTransaction(domain.TransactionIncome, 10000, date(2026, time.February, 10), nil)
	f.addTransaction(domain.TransactionExpense, 4000, date(2026, time.February, 12), nil)
	// March: 15000 income, 3000 expenses
	f.addTransaction(domain.TransactionIncome, 15000, date(2026, time.March, 10), nil)
	f.addTransaction(domain.TransactionExpense, 3000, date(2026, time.March, 12), nil)

	summary, err := f.service.Summary(f.scope, date(2026, time.March, 15))
	require.NoError(t, err)

	assert.True(t, summary.CurrentBalance.Equal(decimal.NewFromInt(12000)))
	assert.True(t, summary.MonthIncome.Equal(decimal.NewFromInt(15000)))
	assert.True(t, summary.MonthExpenses.Equal(decimal.NewFromInt(3000)))
	assert.True(t, summary.MonthNet.Equal(decimal.NewFromInt(12000)))
	// (15000-10000)/10000 = 50%, (3000-4000)/4000 = -25%
	assert.True(t, summary.IncomeTrend.Equal(decimal.NewFromInt(50)), "income trend %s", summary.IncomeTrend)
	assert.True(t, summary.ExpensesTrend.Equal(decimal.NewFromInt(-25)), "expenses trend %s", summary.ExpensesTrend)
}

func TestSummary_TrendZeroPrevious(t *testing.T) {
	f := newDashboardFixture()
	f.addTransaction(domain.TransactionIncome, 5000, date(2026, time.March, 10), nil)

	summary, err := f.service.Summary(f.scope, date(2026, time.March, 15))
	require.NoError(t, err)

	// 0 -> x is 100%, 0 -> 0 is 0%
	assert.True(t, summary.IncomeTrend.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.ExpensesTrend.IsZero())
	// No recorded balance reads as zero
	assert.True(t, summary.CurrentBalance.IsZero())
}

func TestPeriodSeries_MonthlyRunningBalance(t *testing.T) {
	f := newDashboardFixture()
	f.setBalance(decimal.NewFromInt(5000), date(2026, time.March, 1))
	f.addTransaction(domain.TransactionIncome, 10000, date(2026, time.February, 10), nil)
	f.addTransaction(domain.TransactionExpense, 7000, date(2026, time.February, 20), nil)
	f.addTransaction(domain.TransactionExpense, 2000, date(2026, time.March, 5), nil)

	points, err := f.service.PeriodSeries(f.scope, domain.PeriodMonthly, date(2026, time.March, 15))
	require.NoError(t, err)
	require.Len(t, points, 12)

	last := points[len(points)-1]
	assert.Equal(t, "2026-03", last.Label)
	assert.True(t, last.RunningBalance.Equal(decimal.NewFromInt(5000)))
	assert.True(t, last.Net.Equal(decimal.NewFromInt(-2000)))

	// February point backs off March's net: 5000 - (-2000) = 7000
	february := points[len(points)-2]
	assert.Equal(t, "2026-02", february.Label)
	assert.True(t, february.Net.Equal(decimal.NewFromInt(3000)))
	assert.True(t, february.RunningBalance.Equal(decimal.NewFromInt(7000)))

	// January backs off February's net as well: 7000 - 3000 = 4000
	january := points[len(points)-3]
	assert.True(t, january.RunningBalance.Equal(decimal.NewFromInt(4000)))
}

func TestPeriodSeries_QuarterlyLabels(t *testing.T) {
	f := newDashboardFixture()

	points, err := f.service.PeriodSeries(f.scope, domain.PeriodQuarterly, date(2026, time.March, 15))
	require.NoError(t, err)
	require.Len(t, points, 8)
	assert.Equal(t, "2026-Q1", points[len(points)-1].Label)
	assert.Equal(t, "2024-Q2", points[0].Label)
}

func TestPeriodSeries_InvalidGranularity(t *testing.T) {
	f := newDashboardFixture()
	_, err := f.service.PeriodSeries(f.scope, domain.PeriodGranularity("daily"), date(2026, time.March, 15))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCategoryBreakdown_GroupsAndPercentages(t *testing.T) {
	f := newDashboardFixture()
	groceries, err := f.categories.Create(f.scope, &domain.Category{
		Name:  "Groceries",
		Type:  domain.CategoryExpense,
		Color: "#22aa44",
	})
	require.NoError(t, err)

	groceriesID := groceries.ID
	f.addTransaction(domain.TransactionExpense, 600, date(2026, time.March, 3), &groceriesID)
	f.addTransaction(domain.TransactionExpense, 150, date(2026, time.March, 9), &groceriesID)
	f.addTransaction(domain.TransactionExpense, 250, date(2026, time.March, 11), nil)
	// Income and other months stay out of the breakdown
	f.addTransaction(domain.TransactionIncome, 9000, date(2026, time.March, 10), nil)
	f.addTransaction(domain.TransactionExpense, 999, date(2026, time.February, 10), &groceriesID)

	entries, err := f.service.CategoryBreakdown(f.scope, date(2026, time.March, 15))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Groceries", entries[0].Name)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(750)))
	assert.True(t, entries[0].Percentage.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, "#22aa44", entries[0].Color)

	assert.Equal(t, "Uncategorised", entries[1].Name)
	assert.Nil(t, entries[1].CategoryID)
	assert.True(t, entries[1].Percentage.Equal(decimal.NewFromInt(25)))
}

func TestUpcomingPayments_SortedWithinWindow(t *testing.T) {
	f := newDashboardFixture()
	today := date(2026, time.March, 10)

	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Rent",
		Amount:     decimal.NewFromInt(4500),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 12,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	total := decimal.NewFromInt(3000)
	_, err = f.installments.Create(f.scope, &domain.Installment{
		Name:             "Sofa",
		TotalAmount:      total,
		MonthlyAmount:    domain.CalculateMonthlyAmount(total, 6),
		NumberOfPayments: 6,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.March, 11),
		DayOfMonth:       11,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	// Loan due March 25 falls outside a 10-day window
	_, err = f.loans.Create(f.scope, &domain.Loan{
		Name:             "Car",
		OriginalAmount:   decimal.NewFromInt(10000),
		MonthlyPayment:   decimal.NewFromInt(1000),
		TotalPayments:    10,
		PaymentsMade:     1,
		RemainingBalance: decimal.NewFromInt(9000),
		Status:           domain.LoanActive,
		StartDate:        date(2026, time.February, 25),
		DayOfMonth:       25,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	payments, err := f.service.UpcomingPayments(f.scope, today, 10)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "Sofa", payments[0].Name)
	assert.Equal(t, "Rent", payments[1].Name)

	// A wider window picks up the loan too
	payments, err = f.service.UpcomingPayments(f.scope, today, 30)
	require.NoError(t, err)
	assert.Len(t, payments, 3)
}

func TestUpcomingPayments_SkipsIncomeSchedules(t *testing.T) {
	f := newDashboardFixture()
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Salary",
		Amount:     decimal.NewFromInt(14000),
		Currency:   "ILS",
		Type:       domain.TransactionIncome,
		DayOfMonth: 15,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	payments, err := f.service.UpcomingPayments(f.scope, date(2026, time.March, 10), 10)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestHealthScore_StrongProfile(t *testing.T) {
	f := newDashboardFixture()
	// Six months of expenses in the bank, 30% savings rate, steady spending
	f.setBalance(decimal.NewFromInt(42000), date(2026, time.March, 1))
	for i := 1; i <= 3; i++ {
		month := date(2026, time.March, 10).AddDate(0, -i, 0)
		f.addTransaction(domain.TransactionIncome, 10000, month, nil)
		f.addTransaction(domain.TransactionExpense, 7000, month, nil)
	}

	score, err := f.service.HealthScore(f.scope, date(2026, time.March, 15))
	require.NoError(t, err)

	assert.Equal(t, 100, score.SavingsScore)
	assert.Equal(t, 100, score.DebtScore)
	assert.Equal(t, 100, score.TrendScore)
	assert.Equal(t, 100, score.StabilityScore)
	assert.Equal(t, 100, score.EmergencyScore)
	assert.Equal(t, 100, score.Score)
	assert.Equal(t, domain.GradeExcellent, score.Grade)
}

func TestHealthScore_DebtLoadLowersScore(t *testing.T) {
	f := newDashboardFixture()
	f.setBalance(decimal.NewFromInt(42000), date(2026, time.March, 1))
	for i := 1; i <= 3; i++ {
		month := date(2026, time.March, 10).AddDate(0, -i, 0)
		f.addTransaction(domain.TransactionIncome, 10000, month, nil)
		f.addTransaction(domain.TransactionExpense, 7000, month, nil)
	}
	// 4500/month of debt service on 10000/month income: ratio 0.45
	_, err := f.loans.Create(f.scope, &domain.Loan{
		Name:             "Mortgage",
		OriginalAmount:   decimal.NewFromInt(500000),
		MonthlyPayment:   decimal.NewFromInt(4500),
		TotalPayments:    240,
		RemainingBalance: decimal.NewFromInt(400000),
		Status:           domain.LoanActive,
		StartDate:        date(2020, time.January, 10),
		DayOfMonth:       10,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	score, err := f.service.HealthScore(f.scope, date(2026, time.March, 15))
	require.NoError(t, err)
	assert.Equal(t, 20, score.DebtScore)
	// 100*0.30 + 20*0.25 + 100*0.20 + 100*0.15 + 100*0.10 = 80
	assert.Equal(t, 80, score.Score)
	assert.Equal(t, domain.GradeGood, score.Grade)
}

func TestHealthScore_NegativeSavings(t *testing.T) {
	f := newDashboardFixture()
	for i := 1; i <= 3; i++ {
		month := date(2026, time.March, 10).AddDate(0, -i, 0)
		f.addTransaction(domain.TransactionIncome, 5000, month, nil)
		f.addTransaction(domain.TransactionExpense, 6000, month, nil)
	}

	score, err := f.service.HealthScore(f.scope, date(2026, time.March, 15))
	require.NoError(t, err)
	assert.Equal(t, 0, score.SavingsScore)
	assert.Equal(t, 20, score.TrendScore)
	assert.Equal(t, 0, score.EmergencyScore)
}

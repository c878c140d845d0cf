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

type projectionFixture struct {
	scope        domain.Scope
	transactions *testutil.MockTransactionRepository
	fixed        *testutil.MockFixedScheduleRepository
	installments *testutil.MockInstallmentRepository
	loans        *testutil.MockLoanRepository
	service      *ProjectionService
}

func newProjectionFixture() *projectionFixture {
	f := &projectionFixture{
		scope:        domain.PersonalScope(uuid.New()),
		transactions: testutil.NewMockTransactionRepository(),
		fixed:        testutil.NewMockFixedScheduleRepository(),
		installments: testutil.NewMockInstallmentRepository(),
		loans:        testutil.NewMockLoanRepository(),
	}
	f.service = NewProjectionService(f.transactions, f.fixed, f.installments, f.loans)
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOccurrences_FixedScheduleVirtual(t *testing.T) {
	f := newProjectionFixture()
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

	occurrences, err := f.service.Occurrences(f.scope, date(2026, time.March, 1), date(2026, time.May, 31))
	require.NoError(t, err)

	require.Len(t, occurrences, 3)
	assert.Equal(t, date(2026, time.March, 10), occurrences[0].Date)
	assert.Equal(t, domain.SourceFixed, occurrences[0].SourceKind)
	assert.False(t, occurrences[0].Materialised)
}

func TestOccurrences_DedupeAgainstMaterialised(t *testing.T) {
	f := newProjectionFixture()
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

	// March is already materialised by the automation run
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

	occurrences, err := f.service.Occurrences(f.scope, date(2026, time.March, 1), date(2026, time.April, 30))
	require.NoError(t, err)

	// One materialised (March) + one virtual (April), never both for March
	require.Len(t, occurrences, 2)
	assert.True(t, occurrences[0].Materialised)
	assert.False(t, occurrences[1].Materialised)
	assert.Equal(t, date(2026, time.April, 1), occurrences[1].Date)
}

func TestOccurrences_EndOfMonthClamping(t *testing.T) {
	f := newProjectionFixture()
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Insurance",
		Amount:     decimal.NewFromInt(300),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 31,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	occurrences, err := f.service.Occurrences(f.scope, date(2026, time.February, 1), date(2026, time.February, 28))
	require.NoError(t, err)

	// Day 31 in February means Feb 28, not March 3
	require.Len(t, occurrences, 1)
	assert.Equal(t, date(2026, time.February, 28), occurrences[0].Date)
}

func TestOccurrences_InstallmentSchedule(t *testing.T) {
	f := newProjectionFixture()
	total := decimal.NewFromInt(1000)
	_, err := f.installments.Create(f.scope, &domain.Installment{
		Name:             "Fridge",
		TotalAmount:      total,
		MonthlyAmount:    domain.CalculateMonthlyAmount(total, 3),
		NumberOfPayments: 3,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.January, 15),
		DayOfMonth:       15,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	occurrences, err := f.service.Occurrences(f.scope, date(2026, time.January, 1), date(2026, time.June, 30))
	require.NoError(t, err)

	// Only 3 payments, not one per month of the span
	require.Len(t, occurrences, 3)
	sum := decimal.Zero
	for _, o := range occurrences {
		sum = sum.Add(o.Amount)
	}
	assert.True(t, sum.Equal(total), "expected %s, got %s", total, sum)
	// Last payment absorbs the residue: 1000 - 2*333.33 = 333.34
	assert.True(t, occurrences[2].Amount.Equal(decimal.NewFromFloat(333.34)),
		"got %s", occurrences[2].Amount)
}

func TestOccurrences_InstallmentSkipsCompletedPayments(t *testing.T) {
	f := newProjectionFixture()
	total := decimal.NewFromInt(900)
	_, err := f.installments.Create(f.scope, &domain.Installment{
		Name:              "Phone",
		TotalAmount:       total,
		MonthlyAmount:     domain.CalculateMonthlyAmount(total, 3),
		NumberOfPayments:  3,
		PaymentsCompleted: 2,
		Type:              domain.TransactionExpense,
		StartDate:         date(2026, time.January, 5),
		DayOfMonth:        5,
		Currency:          "ILS",
	})
	require.NoError(t, err)

	occurrences, err := f.service.Occurrences(f.scope, date(2026, time.January, 1), date(2026, time.June, 30))
	require.NoError(t, err)

	require.Len(t, occurrences, 1)
	assert.Equal(t, date(2026, time.March, 5), occurrences[0].Date)
}

func TestOccurrences_LoanPayments(t *testing.T) {
	f := newProjectionFixture()
	_, err := f.loans.Create(f.scope, &domain.Loan{
		Name:             "Car",
		OriginalAmount:   decimal.NewFromInt(10000),
		MonthlyPayment:   decimal.NewFromInt(1000),
		InterestRate:     decimal.Zero,
		TotalPayments:    10,
		PaymentsMade:     8,
		RemainingBalance: decimal.NewFromInt(2000),
		Status:           domain.LoanActive,
		StartDate:        date(2026, time.January, 20),
		DayOfMonth:       20,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	occurrences, err := f.service.Occurrences(f.scope, date(2026, time.January, 1), date(2026, time.December, 31))
	require.NoError(t, err)

	// Payments 9 and 10 remain: September and October
	require.Len(t, occurrences, 2)
	assert.Equal(t, date(2026, time.September, 20), occurrences[0].Date)
	assert.Equal(t, date(2026, time.October, 20), occurrences[1].Date)
	assert.Equal(t, domain.TransactionExpense, occurrences[0].Type)
}

func TestTotals(t *testing.T) {
	f := newProjectionFixture()
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
	_, err = f.transactions.Create(f.scope, &domain.Transaction{
		Amount:       decimal.NewFromInt(250),
		Currency:     "ILS",
		Type:         domain.TransactionExpense,
		Description:  "Groceries",
		Date:         date(2026, time.March, 3),
		EntryPattern: domain.EntryOneTime,
	})
	require.NoError(t, err)

	income, expenses, err := f.service.Totals(f.scope, date(2026, time.March, 1), date(2026, time.March, 31))
	require.NoError(t, err)
	assert.True(t, income.Equal(decimal.NewFromInt(14000)))
	assert.True(t, expenses.Equal(decimal.NewFromInt(250)))
}

func TestMonthBuckets(t *testing.T) {
	f := newProjectionFixture()
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
	_, err = f.loans.Create(f.scope, &domain.Loan{
		Name:             "Car",
		OriginalAmount:   decimal.NewFromInt(12000),
		MonthlyPayment:   decimal.NewFromInt(1000),
		TotalPayments:    12,
		RemainingBalance: decimal.NewFromInt(12000),
		Status:           domain.LoanActive,
		StartDate:        date(2026, time.January, 15),
		DayOfMonth:       15,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	span, err := f.service.Load(f.scope, date(2026, time.March, 1), date(2026, time.March, 31))
	require.NoError(t, err)

	buckets := span.MonthBuckets(2026, time.March)
	assert.True(t, buckets.FixedIncome.Equal(decimal.NewFromInt(14000)))
	assert.True(t, buckets.LoanPayments.Equal(decimal.NewFromInt(1000)))
	assert.True(t, buckets.OneTimeExpenses.IsZero())
}

func TestOccurrences_CrossTenantIsolation(t *testing.T) {
	f := newProjectionFixture()
	otherScope := domain.PersonalScope(uuid.New())
	_, err := f.fixed.Create(otherScope, &domain.FixedSchedule{
		Name:       "Other salary",
		Amount:     decimal.NewFromInt(9999),
		Currency:   "ILS",
		Type:       domain.TransactionIncome,
		DayOfMonth: 1,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	occurrences, err := f.service.Occurrences(f.scope, date(2026, time.January, 1), date(2026, time.December, 31))
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

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

type automationFixture struct {
	scope        domain.Scope
	transactions *testutil.MockTransactionRepository
	fixed        *testutil.MockFixedScheduleRepository
	installments *testutil.MockInstallmentRepository
	loans        *testutil.MockLoanRepository
	service      *AutomationService
}

func newAutomationFixture() *automationFixture {
	f := &automationFixture{
		scope:        domain.PersonalScope(uuid.New()),
		transactions: testutil.NewMockTransactionRepository(),
		fixed:        testutil.NewMockFixedScheduleRepository(),
		installments: testutil.NewMockInstallmentRepository(),
		loans:        testutil.NewMockLoanRepository(),
	}
	f.fixed.Transactions = f.transactions
	f.installments.Transactions = f.transactions
	f.loans.Transactions = f.transactions
	f.service = NewAutomationService(f.transactions, f.fixed, f.installments, f.loans)
	return f
}

func TestProcessRecurring_FixedIdempotency(t *testing.T) {
	f := newAutomationFixture()
	schedule, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Salary",
		Amount:     decimal.NewFromInt(14000),
		Currency:   "ILS",
		Type:       domain.TransactionIncome,
		DayOfMonth: 15,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	refDate := date(2026, time.February, 15)

	first, err := f.service.ProcessRecurring(f.scope, refDate, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.FixedCharged)
	assert.Equal(t, 0, first.Skipped)

	second, err := f.service.ProcessRecurring(f.scope, refDate, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FixedCharged)
	assert.Equal(t, 1, second.Skipped)

	// Exactly one transaction exists for this schedule on that date
	var count int
	for _, tx := range f.transactions.Transactions {
		if tx.RecurringSourceID != nil && *tx.RecurringSourceID == schedule.ID && tx.Date.Equal(refDate) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestProcessRecurring_LoanAdvancesCounter(t *testing.T) {
	f := newAutomationFixture()
	loan, err := f.loans.Create(f.scope, &domain.Loan{
		Name:             "Car",
		OriginalAmount:   decimal.NewFromInt(10000),
		MonthlyPayment:   decimal.NewFromInt(1000),
		InterestRate:     decimal.Zero,
		TotalPayments:    10,
		RemainingBalance: decimal.NewFromInt(10000),
		Status:           domain.LoanActive,
		StartDate:        date(2026, time.January, 10),
		DayOfMonth:       10,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	result, err := f.service.ProcessRecurring(f.scope, date(2026, time.February, 10), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.LoansCharged)

	updated, err := f.loans.GetByID(f.scope, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), updated.PaymentsMade)
	assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(9000)))

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, domain.EntryLoanPayment, result.Transactions[0].EntryPattern)
	assert.Equal(t, domain.TransactionExpense, result.Transactions[0].Type)

	// Re-running the same reference date charges nothing further
	second, err := f.service.ProcessRecurring(f.scope, date(2026, time.February, 10), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.LoansCharged)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, f.transactions.Transactions, 1)

	again, err := f.loans.GetByID(f.scope, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), again.PaymentsMade)
}

func TestProcessRecurring_WritePathRefusesDuplicate(t *testing.T) {
	f := newAutomationFixture()
	loan, err := f.loans.Create(f.scope, &domain.Loan{
		Name:             "Car",
		OriginalAmount:   decimal.NewFromInt(10000),
		MonthlyPayment:   decimal.NewFromInt(1000),
		TotalPayments:    10,
		RemainingBalance: decimal.NewFromInt(10000),
		Status:           domain.LoanActive,
		StartDate:        date(2026, time.January, 10),
		DayOfMonth:       10,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	refDate := date(2026, time.February, 10)
	_, err = f.service.ProcessRecurring(f.scope, refDate, false)
	require.NoError(t, err)

	// A writer that raced past the cheap existence check still stops at the
	// guard inside the charge itself
	_, _, err = f.loans.Charge(f.scope, loan.ID, &refDate, func(l *domain.Loan) (*domain.Transaction, error) {
		t.Fatal("charge callback ran despite an existing occurrence")
		return nil, nil
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Len(t, f.transactions.Transactions, 1)
}

func TestProcessRecurring_LoanFinalPaymentCompletes(t *testing.T) {
	f := newAutomationFixture()
	loan, err := f.loans.Create(f.scope, &domain.Loan{
		Name:             "Car",
		OriginalAmount:   decimal.NewFromInt(10000),
		MonthlyPayment:   decimal.NewFromInt(1000),
		TotalPayments:    10,
		PaymentsMade:     9,
		RemainingBalance: decimal.NewFromInt(1000),
		Status:           domain.LoanActive,
		StartDate:        date(2025, time.May, 10),
		DayOfMonth:       10,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	_, err = f.service.ProcessRecurring(f.scope, date(2026, time.February, 10), false)
	require.NoError(t, err)

	updated, err := f.loans.GetByID(f.scope, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanCompleted, updated.Status)
	assert.True(t, updated.RemainingBalance.IsZero())

	// Completed loan is no longer due
	result, err := f.service.ProcessRecurring(f.scope, date(2026, time.March, 10), false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.LoansCharged)
}

func TestProcessRecurring_InstallmentNumberStamped(t *testing.T) {
	f := newAutomationFixture()
	total := decimal.NewFromInt(1000)
	installment, err := f.installments.Create(f.scope, &domain.Installment{
		Name:              "Fridge",
		TotalAmount:       total,
		MonthlyAmount:     domain.CalculateMonthlyAmount(total, 3),
		NumberOfPayments:  3,
		PaymentsCompleted: 1,
		Type:              domain.TransactionExpense,
		StartDate:         date(2026, time.January, 5),
		DayOfMonth:        5,
		Currency:          "ILS",
	})
	require.NoError(t, err)

	result, err := f.service.ProcessRecurring(f.scope, date(2026, time.February, 5), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.InstallmentsCharged)

	require.Len(t, result.Transactions, 1)
	require.NotNil(t, result.Transactions[0].InstallmentNumber)
	assert.Equal(t, int32(2), *result.Transactions[0].InstallmentNumber)

	updated, err := f.installments.GetByID(f.scope, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), updated.PaymentsCompleted)

	// Re-running the same reference date leaves the counter alone
	second, err := f.service.ProcessRecurring(f.scope, date(2026, time.February, 5), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.InstallmentsCharged)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, f.transactions.Transactions, 1)
}

func TestProcessRecurring_PreviewWritesNothing(t *testing.T) {
	f := newAutomationFixture()
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Rent",
		Amount:     decimal.NewFromInt(4500),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 1,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	result, err := f.service.ProcessRecurring(f.scope, date(2026, time.March, 1), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FixedCharged)
	assert.Len(t, result.Transactions, 1)
	assert.Empty(t, f.transactions.Transactions)

	// A later real run still materialises
	real, err := f.service.ProcessRecurring(f.scope, date(2026, time.March, 1), false)
	require.NoError(t, err)
	assert.Equal(t, 1, real.FixedCharged)
}

func TestProcessRecurring_EndOfMonthClamping(t *testing.T) {
	f := newAutomationFixture()
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Hosting",
		Amount:     decimal.NewFromInt(120),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 31,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	require.NoError(t, err)

	// Feb 28 is the clamped due day for a day-31 schedule
	result, err := f.service.ProcessRecurring(f.scope, date(2026, time.February, 28), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FixedCharged)
}

func TestProcessRecurring_ScheduleWindowRespected(t *testing.T) {
	f := newAutomationFixture()
	end := date(2026, time.February, 28)
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Old gym",
		Amount:     decimal.NewFromInt(200),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 15,
		StartDate:  date(2026, time.January, 1),
		EndDate:    &end,
		IsActive:   true,
	})
	require.NoError(t, err)

	result, err := f.service.ProcessRecurring(f.scope, date(2026, time.March, 15), false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FixedCharged)
}

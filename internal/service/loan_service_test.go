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

type loanFixture struct {
	scope        domain.Scope
	loans        *testutil.MockLoanRepository
	transactions *testutil.MockTransactionRepository
	categories   *testutil.MockCategoryRepository
	service      *LoanService
}

func newLoanFixture() *loanFixture {
	f := &loanFixture{
		scope:        domain.PersonalScope(uuid.New()),
		loans:        testutil.NewMockLoanRepository(),
		transactions: testutil.NewMockTransactionRepository(),
		categories:   testutil.NewMockCategoryRepository(),
	}
	f.loans.Transactions = f.transactions
	currencies := NewCurrencyService("ILS", nil)
	f.service = NewLoanService(f.loans, f.transactions, f.categories, currencies)
	return f
}

func validLoanInput() CreateLoanInput {
	return CreateLoanInput{
		Name:           "Car loan",
		OriginalAmount: decimal.NewFromInt(10000),
		MonthlyPayment: decimal.NewFromFloat(856.07),
		InterestRate:   decimal.NewFromInt(5),
		TotalPayments:  12,
		StartDate:      date(2026, time.January, 10),
		DayOfMonth:     10,
		Currency:       "ILS",
	}
}

func TestCreateLoan_Valid(t *testing.T) {
	f := newLoanFixture()

	loan, err := f.service.CreateLoan(f.scope, validLoanInput())
	require.NoError(t, err)
	assert.Equal(t, domain.LoanActive, loan.Status)
	assert.True(t, loan.RemainingBalance.Equal(loan.OriginalAmount))
	assert.Equal(t, int32(0), loan.PaymentsMade)
}

func TestCreateLoan_NeverAmortises(t *testing.T) {
	f := newLoanFixture()

	// 10% annual on 10000 is 83.33/month in interest; a payment of 80 never
	// reduces the principal
	input := validLoanInput()
	input.InterestRate = decimal.NewFromInt(10)
	input.MonthlyPayment = decimal.NewFromInt(80)
	_, err := f.service.CreateLoan(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrLoanNeverAmortises)

	// Zero-interest loans cannot trip the check
	input.InterestRate = decimal.Zero
	_, err = f.service.CreateLoan(f.scope, input)
	assert.NoError(t, err)
}

func TestLoanSchedule_MatchesLoanTerms(t *testing.T) {
	f := newLoanFixture()
	loan, err := f.service.CreateLoan(f.scope, validLoanInput())
	require.NoError(t, err)

	schedule, err := f.service.Schedule(f.scope, loan.ID)
	require.NoError(t, err)
	require.Len(t, schedule.Rows, 12)

	// Principal across the schedule repays the loan exactly
	principal := decimal.Zero
	for _, row := range schedule.Rows {
		principal = principal.Add(row.Principal)
	}
	assert.True(t, principal.Equal(loan.OriginalAmount))
	assert.True(t, schedule.Rows[11].RemainingBalance.IsZero())
}

func TestRecordPayment_AdvancesAndMaterialises(t *testing.T) {
	f := newLoanFixture()
	loan, err := f.service.CreateLoan(f.scope, validLoanInput())
	require.NoError(t, err)

	updated, tx, err := f.service.RecordPayment(f.scope, loan.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), updated.PaymentsMade)
	assert.True(t, updated.RemainingBalance.LessThan(loan.OriginalAmount))
	assert.Equal(t, domain.EntryLoanPayment, tx.EntryPattern)
	assert.True(t, tx.Date.Equal(date(2026, time.January, 10)))
	require.NotNil(t, tx.LoanID)
	assert.Equal(t, loan.ID, *tx.LoanID)
}

func TestRecordPayment_RunsToCompletion(t *testing.T) {
	f := newLoanFixture()
	input := validLoanInput()
	input.InterestRate = decimal.Zero
	input.MonthlyPayment = decimal.NewFromInt(1000)
	input.TotalPayments = 10
	loan, err := f.service.CreateLoan(f.scope, input)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, _, err = f.service.RecordPayment(f.scope, loan.ID, nil)
		require.NoError(t, err)
	}

	completed, err := f.loans.GetByID(f.scope, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanCompleted, completed.Status)
	assert.True(t, completed.RemainingBalance.IsZero())

	_, _, err = f.service.RecordPayment(f.scope, loan.ID, nil)
	assert.ErrorIs(t, err, domain.ErrLoanCompleted)
}

func TestRecordPayment_ExplicitAmount(t *testing.T) {
	f := newLoanFixture()
	input := validLoanInput()
	input.InterestRate = decimal.Zero
	input.MonthlyPayment = decimal.NewFromInt(1000)
	input.TotalPayments = 10
	loan, err := f.service.CreateLoan(f.scope, input)
	require.NoError(t, err)

	amount := decimal.NewFromInt(250)
	updated, tx, err := f.service.RecordPayment(f.scope, loan.ID, &amount)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(amount))
	assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(9750)))
}

func TestRecordPayment_RejectsOverpayment(t *testing.T) {
	f := newLoanFixture()
	input := validLoanInput()
	input.InterestRate = decimal.Zero
	input.MonthlyPayment = decimal.NewFromInt(1000)
	input.TotalPayments = 10
	loan, err := f.service.CreateLoan(f.scope, input)
	require.NoError(t, err)

	amount := decimal.NewFromInt(10001)
	_, _, err = f.service.RecordPayment(f.scope, loan.ID, &amount)
	assert.ErrorIs(t, err, domain.ErrLoanOverpayment)

	// The rejected payment left nothing behind
	assert.Empty(t, f.transactions.Transactions)
	unchanged, err := f.loans.GetByID(f.scope, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), unchanged.PaymentsMade)
	assert.True(t, unchanged.RemainingBalance.Equal(decimal.NewFromInt(10000)))

	zero := decimal.Zero
	_, _, err = f.service.RecordPayment(f.scope, loan.ID, &zero)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRecordPayment_CompletedLoanLeavesNoTransaction(t *testing.T) {
	f := newLoanFixture()
	input := validLoanInput()
	input.InterestRate = decimal.Zero
	input.MonthlyPayment = decimal.NewFromInt(1000)
	input.TotalPayments = 10
	loan, err := f.service.CreateLoan(f.scope, input)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, _, err = f.service.RecordPayment(f.scope, loan.ID, nil)
		require.NoError(t, err)
	}
	require.Len(t, f.transactions.Transactions, 10)

	_, _, err = f.service.RecordPayment(f.scope, loan.ID, nil)
	assert.ErrorIs(t, err, domain.ErrLoanCompleted)
	assert.Len(t, f.transactions.Transactions, 10)
}

func TestReversePayment_ReconstructsBalance(t *testing.T) {
	f := newLoanFixture()
	loan, err := f.service.CreateLoan(f.scope, validLoanInput())
	require.NoError(t, err)

	_, _, err = f.service.RecordPayment(f.scope, loan.ID, nil)
	require.NoError(t, err)
	afterOne, tx, err := f.service.RecordPayment(f.scope, loan.ID, nil)
	require.NoError(t, err)

	reversed, err := f.service.ReversePayment(f.scope, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), reversed.PaymentsMade)
	assert.True(t, reversed.RemainingBalance.GreaterThan(afterOne.RemainingBalance))

	// The balance matches the schedule row after one payment
	schedule := BuildAmortizationSchedule(reversed, date(2026, time.March, 1))
	assert.True(t, reversed.RemainingBalance.Equal(schedule.Rows[0].RemainingBalance))

	// The second payment's transaction is gone, the first remains
	_, err = f.transactions.GetByID(f.scope, tx.ID)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	assert.Len(t, f.transactions.Transactions, 1)
}

func TestReversePayment_ReopensCompletedLoan(t *testing.T) {
	f := newLoanFixture()
	input := validLoanInput()
	input.InterestRate = decimal.Zero
	input.MonthlyPayment = decimal.NewFromInt(1000)
	input.TotalPayments = 10
	loan, err := f.service.CreateLoan(f.scope, input)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, _, err = f.service.RecordPayment(f.scope, loan.ID, nil)
		require.NoError(t, err)
	}

	reversed, err := f.service.ReversePayment(f.scope, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanActive, reversed.Status)
	assert.Equal(t, int32(9), reversed.PaymentsMade)
	assert.True(t, reversed.RemainingBalance.Equal(decimal.NewFromInt(1000)))
}

func TestReversePayment_NothingToReverse(t *testing.T) {
	f := newLoanFixture()
	loan, err := f.service.CreateLoan(f.scope, validLoanInput())
	require.NoError(t, err)

	_, err = f.service.ReversePayment(f.scope, loan.ID)
	assert.ErrorIs(t, err, domain.ErrLoanNoPayments)
}

func TestListLoans_FilterValidation(t *testing.T) {
	f := newLoanFixture()
	_, err := f.service.ListLoans(f.scope, domain.LoanFilter("bogus"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	loans, err := f.service.ListLoans(f.scope, "")
	require.NoError(t, err)
	assert.Empty(t, loans)
}

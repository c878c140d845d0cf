package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

func testLoan() *domain.Loan {
	return &domain.Loan{
		Name:             "Car loan",
		OriginalAmount:   decimal.NewFromInt(10000),
		MonthlyPayment:   decimal.NewFromFloat(856.07),
		InterestRate:     decimal.NewFromInt(5), // 5% annual
		TotalPayments:    12,
		RemainingBalance: decimal.NewFromInt(10000),
		Status:           domain.LoanActive,
		StartDate:        time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		DayOfMonth:       10,
		Currency:         "ILS",
	}
}

func TestBuildAmortizationSchedule_RowCount(t *testing.T) {
	loan := testLoan()
	schedule := BuildAmortizationSchedule(loan, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.Len(t, schedule.Rows, 12)
}

func TestBuildAmortizationSchedule_FirstRowInterest(t *testing.T) {
	loan := testLoan()
	schedule := BuildAmortizationSchedule(loan, time.Now())

	// First month: 10000 * (5/1200) = 41.67 rounded half-up
	first := schedule.Rows[0]
	assert.True(t, first.Interest.Equal(decimal.NewFromFloat(41.67)),
		"expected 41.67, got %s", first.Interest)
	assert.True(t, first.Principal.Equal(decimal.NewFromFloat(814.40)),
		"expected 814.40, got %s", first.Principal)
}

func TestBuildAmortizationSchedule_FinalRowClearsBalance(t *testing.T) {
	loan := testLoan()
	schedule := BuildAmortizationSchedule(loan, time.Now())

	last := schedule.Rows[len(schedule.Rows)-1]
	assert.True(t, last.RemainingBalance.IsZero(),
		"expected zero balance, got %s", last.RemainingBalance)
}

func TestBuildAmortizationSchedule_PrincipalSumsToOriginal(t *testing.T) {
	loan := testLoan()
	schedule := BuildAmortizationSchedule(loan, time.Now())

	sum := decimal.Zero
	for _, row := range schedule.Rows {
		sum = sum.Add(row.Principal)
	}
	assert.True(t, sum.Equal(loan.OriginalAmount),
		"expected principal to sum to %s, got %s", loan.OriginalAmount, sum)
}

func TestBuildAmortizationSchedule_ZeroInterest(t *testing.T) {
	loan := testLoan()
	loan.InterestRate = decimal.Zero
	loan.MonthlyPayment = decimal.NewFromFloat(833.34)

	schedule := BuildAmortizationSchedule(loan, time.Now())

	require.Len(t, schedule.Rows, 12)
	assert.True(t, schedule.TotalInterest.IsZero())
	// Final payment absorbs the rounding: 10000 - 11*833.34 = 833.26
	last := schedule.Rows[11]
	assert.True(t, last.Payment.Equal(decimal.NewFromFloat(833.26)),
		"expected 833.26, got %s", last.Payment)
}

func TestBuildAmortizationSchedule_RowStatuses(t *testing.T) {
	loan := testLoan()
	loan.PaymentsMade = 2

	today := time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC)
	schedule := BuildAmortizationSchedule(loan, today)

	assert.Equal(t, RowPaid, schedule.Rows[0].Status)
	assert.Equal(t, RowPaid, schedule.Rows[1].Status)
	// Row 3 was due March 10, before today
	assert.Equal(t, RowOverdue, schedule.Rows[2].Status)
	// Row 4 is due April 10, this month
	assert.Equal(t, RowDue, schedule.Rows[3].Status)
	assert.Equal(t, RowFuture, schedule.Rows[4].Status)
}

func TestBuildAmortizationSchedule_DueDateClamping(t *testing.T) {
	loan := testLoan()
	loan.StartDate = time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	loan.DayOfMonth = 31

	schedule := BuildAmortizationSchedule(loan, time.Now())

	// Second payment lands in February, clamped to the 28th
	assert.Equal(t, time.February, schedule.Rows[1].DueDate.Month())
	assert.Equal(t, 28, schedule.Rows[1].DueDate.Day())
	// April clamps to 30
	assert.Equal(t, 30, schedule.Rows[3].DueDate.Day())
}

func TestRemainingBalanceAfter(t *testing.T) {
	loan := testLoan()

	assert.True(t, RemainingBalanceAfter(loan, 0).Equal(loan.OriginalAmount))

	schedule := BuildAmortizationSchedule(loan, time.Now())
	for n := int32(1); n <= loan.TotalPayments; n++ {
		want := schedule.Rows[n-1].RemainingBalance
		got := RemainingBalanceAfter(loan, n)
		assert.True(t, got.Equal(want), "after %d payments: expected %s, got %s", n, want, got)
	}
}

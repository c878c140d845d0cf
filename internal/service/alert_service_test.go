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

type alertFixture struct {
	*forecastFixture
	alerts  *testutil.MockAlertRepository
	service *AlertService
}

func newAlertFixture() *alertFixture {
	ff := newForecastFixture()
	f := &alertFixture{
		forecastFixture: ff,
		alerts:          testutil.NewMockAlertRepository(),
	}
	f.service = NewAlertService(f.alerts, ff.transactions, ff.installments, ff.loans, ff.service)
	return f
}

func (f *alertFixture) addFixedExpense(amount int64) {
	_, err := f.fixed.Create(f.scope, &domain.FixedSchedule{
		Name:       "Office lease",
		Amount:     decimal.NewFromInt(amount),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 1,
		StartDate:  date(2026, time.January, 1),
		IsActive:   true,
	})
	if err != nil {
		panic(err)
	}
}

func findAlert(alerts []*domain.Alert, alertType domain.AlertType) *domain.Alert {
	for _, a := range alerts {
		if a.AlertType == alertType {
			return a
		}
	}
	return nil
}

func TestGenerate_NegativeCashflowCritical(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(200))
	f.addFixedExpense(15000)

	alerts, err := f.service.GenerateAt(f.scope, date(2026, time.March, 10), 3)
	require.NoError(t, err)

	alert := findAlert(alerts, domain.AlertNegativeCashflow)
	require.NotNil(t, alert, "expected a negative_cashflow alert")
	// Closing -14800 is below -5000
	assert.Equal(t, domain.SeverityCritical, alert.Severity)
	assert.Contains(t, alert.Message, "מרץ")
	assert.Contains(t, alert.Message, "-14,800")
}

func TestGenerate_ApproachingNegative(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(900))

	alerts, err := f.service.GenerateAt(f.scope, date(2026, time.March, 10), 1)
	require.NoError(t, err)

	alert := findAlert(alerts, domain.AlertApproachingNegative)
	require.NotNil(t, alert)
	assert.Equal(t, domain.SeverityInfo, alert.Severity)
}

func TestGenerate_PreservesReadStateAcrossRuns(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(200))
	f.addFixedExpense(15000)
	today := date(2026, time.March, 10)

	alerts, err := f.service.GenerateAt(f.scope, today, 3)
	require.NoError(t, err)
	first := findAlert(alerts, domain.AlertNegativeCashflow)
	require.NotNil(t, first)

	_, err = f.alerts.MarkRead(f.scope, first.ID)
	require.NoError(t, err)
	createdAt := first.CreatedAt

	// Regeneration with no state change leaves is_read and created_at intact
	alerts, err = f.service.GenerateAt(f.scope, today, 3)
	require.NoError(t, err)
	second := findAlert(alerts, domain.AlertNegativeCashflow)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsRead)
	assert.Equal(t, createdAt, second.CreatedAt)
}

func TestGenerate_StaleRetirement(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(200))
	f.addFixedExpense(15000)
	today := date(2026, time.March, 10)

	alerts, err := f.service.GenerateAt(f.scope, today, 3)
	require.NoError(t, err)
	require.NotNil(t, findAlert(alerts, domain.AlertNegativeCashflow))

	// Condition resolves: big opening balance covers the expenses
	_, err = f.balances.Create(f.scope, &domain.BankBalance{
		Balance:       decimal.NewFromInt(100000),
		Currency:      "ILS",
		EffectiveDate: date(2026, time.March, 11),
		IsCurrent:     true,
	})
	require.NoError(t, err)

	alerts, err = f.service.GenerateAt(f.scope, today, 3)
	require.NoError(t, err)
	assert.Nil(t, findAlert(alerts, domain.AlertNegativeCashflow))
}

func TestGenerate_DismissedAlertRegeneratesUnread(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(200))
	f.addFixedExpense(15000)
	today := date(2026, time.March, 10)

	alerts, err := f.service.GenerateAt(f.scope, today, 3)
	require.NoError(t, err)
	alert := findAlert(alerts, domain.AlertNegativeCashflow)
	require.NotNil(t, alert)

	_, err = f.alerts.Dismiss(f.scope, alert.ID)
	require.NoError(t, err)

	// The condition still holds, so regeneration inserts a fresh unread
	// alert; the dismissed row is not resurrected in place
	alerts, err = f.service.GenerateAt(f.scope, today, 3)
	require.NoError(t, err)
	fresh := findAlert(alerts, domain.AlertNegativeCashflow)
	require.NotNil(t, fresh)
	assert.NotEqual(t, alert.ID, fresh.ID)
	assert.False(t, fresh.IsRead)
}

func TestGenerate_HighSingleExpense(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(50000))
	_, err := f.transactions.Create(f.scope, &domain.Transaction{
		Amount:       decimal.NewFromInt(7200),
		Currency:     "ILS",
		Type:         domain.TransactionExpense,
		Description:  "New laptop",
		Date:         date(2026, time.March, 8),
		EntryPattern: domain.EntryOneTime,
	})
	require.NoError(t, err)

	alerts, err := f.service.GenerateAt(f.scope, date(2026, time.March, 10), 1)
	require.NoError(t, err)

	alert := findAlert(alerts, domain.AlertHighSingleExpense)
	require.NotNil(t, alert)
	assert.Equal(t, domain.SeverityWarning, alert.Severity)
	assert.Contains(t, alert.Message, "7,200")
}

func TestGenerate_HighIncome(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(1000))
	for _, m := range []time.Month{time.December, time.January, time.February} {
		year := 2026
		if m == time.December {
			year = 2025
		}
		_, err := f.transactions.Create(f.scope, &domain.Transaction{
			Amount:       decimal.NewFromInt(10000),
			Currency:     "ILS",
			Type:         domain.TransactionIncome,
			Description:  "Salary",
			Date:         date(year, m, 10),
			EntryPattern: domain.EntryOneTime,
		})
		require.NoError(t, err)
	}
	_, err := f.transactions.Create(f.scope, &domain.Transaction{
		Amount:       decimal.NewFromInt(20000),
		Currency:     "ILS",
		Type:         domain.TransactionIncome,
		Description:  "Salary plus bonus",
		Date:         date(2026, time.March, 10),
		EntryPattern: domain.EntryOneTime,
	})
	require.NoError(t, err)

	alerts, err := f.service.GenerateAt(f.scope, date(2026, time.March, 15), 1)
	require.NoError(t, err)

	// 20000 > 1.5 * 10000
	assert.NotNil(t, findAlert(alerts, domain.AlertHighIncome))
}

func TestGenerate_PaymentOverdueAndEndingSoon(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(1000))
	_, err := f.loans.Create(f.scope, &domain.Loan{
		Name:             "Car",
		OriginalAmount:   decimal.NewFromInt(10000),
		MonthlyPayment:   decimal.NewFromInt(1000),
		TotalPayments:    10,
		PaymentsMade:     8,
		RemainingBalance: decimal.NewFromInt(2000),
		Status:           domain.LoanActive,
		StartDate:        date(2025, time.May, 10),
		DayOfMonth:       10,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	// Payment 9 was due 2026-01-10, well before today
	alerts, err := f.service.GenerateAt(f.scope, date(2026, time.March, 20), 1)
	require.NoError(t, err)

	overdue := findAlert(alerts, domain.AlertPaymentOverdue)
	require.NotNil(t, overdue)
	assert.Equal(t, domain.SeverityCritical, overdue.Severity)

	// 2 payments remain, below the loan ending-soon threshold of 3
	assert.NotNil(t, findAlert(alerts, domain.AlertLoanEndingSoon))
}

func TestGenerate_UpcomingPayment(t *testing.T) {
	f := newAlertFixture()
	f.setBalance(decimal.NewFromInt(50000))
	total := decimal.NewFromInt(3000)
	_, err := f.installments.Create(f.scope, &domain.Installment{
		Name:             "Sofa",
		TotalAmount:      total,
		MonthlyAmount:    domain.CalculateMonthlyAmount(total, 6),
		NumberOfPayments: 6,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.March, 12),
		DayOfMonth:       12,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	// Next payment on March 12, two days out
	alerts, err := f.service.GenerateAt(f.scope, date(2026, time.March, 10), 1)
	require.NoError(t, err)
	assert.NotNil(t, findAlert(alerts, domain.AlertUpcomingPayment))
}

func TestGenerate_ScopeIsolation(t *testing.T) {
	f := newAlertFixture()
	otherScope := domain.PersonalScope(uuid.New())
	_, err := f.transactions.Create(otherScope, &domain.Transaction{
		Amount:       decimal.NewFromInt(9000),
		Currency:     "ILS",
		Type:         domain.TransactionExpense,
		Description:  "Other tenant expense",
		Date:         date(2026, time.March, 8),
		EntryPattern: domain.EntryOneTime,
	})
	require.NoError(t, err)

	alerts, err := f.service.GenerateAt(f.scope, date(2026, time.March, 10), 1)
	require.NoError(t, err)
	assert.Nil(t, findAlert(alerts, domain.AlertHighSingleExpense))
}

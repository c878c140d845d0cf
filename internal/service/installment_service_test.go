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

type installmentFixture struct {
	scope        domain.Scope
	installments *testutil.MockInstallmentRepository
	transactions *testutil.MockTransactionRepository
	categories   *testutil.MockCategoryRepository
	service      *InstallmentService
}

func newInstallmentFixture() *installmentFixture {
	f := &installmentFixture{
		scope:        domain.PersonalScope(uuid.New()),
		installments: testutil.NewMockInstallmentRepository(),
		transactions: testutil.NewMockTransactionRepository(),
		categories:   testutil.NewMockCategoryRepository(),
	}
	f.installments.Transactions = f.transactions
	currencies := NewCurrencyService("ILS", map[string]decimal.Decimal{
		"USD:ILS": decimal.NewFromFloat(3.65),
	})
	f.service = NewInstallmentService(f.installments, f.transactions, f.categories, currencies)
	return f
}

func TestCreateInstallment_DerivesMonthlyAmount(t *testing.T) {
	f := newInstallmentFixture()

	installment, err := f.service.CreateInstallment(f.scope, CreateInstallmentInput{
		Name:             "Fridge",
		TotalAmount:      decimal.NewFromInt(1000),
		NumberOfPayments: 3,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.January, 5),
		DayOfMonth:       5,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	// 1000/3 rounds half-up to 333.33; the last payment absorbs the residue
	assert.True(t, installment.MonthlyAmount.Equal(decimal.NewFromFloat(333.33)))
	assert.True(t, installment.ScheduledAmount(1).Equal(decimal.NewFromFloat(333.33)))
	assert.True(t, installment.ScheduledAmount(3).Equal(decimal.NewFromFloat(333.34)))
}

func TestCreateInstallment_ForeignCurrency(t *testing.T) {
	f := newInstallmentFixture()

	installment, err := f.service.CreateInstallment(f.scope, CreateInstallmentInput{
		Name:             "Laptop",
		TotalAmount:      decimal.NewFromInt(1200),
		NumberOfPayments: 12,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.February, 10),
		DayOfMonth:       10,
		Currency:         "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "ILS", installment.Currency)
	assert.True(t, installment.TotalAmount.Equal(decimal.NewFromInt(4380)))
	require.NotNil(t, installment.OriginalAmount)
	assert.True(t, installment.OriginalAmount.Equal(decimal.NewFromInt(1200)))
	assert.True(t, installment.MonthlyAmount.Equal(decimal.NewFromInt(365)))
}

func TestCreateInstallment_Validation(t *testing.T) {
	f := newInstallmentFixture()
	base := CreateInstallmentInput{
		Name:             "Bad",
		TotalAmount:      decimal.NewFromInt(1000),
		NumberOfPayments: 3,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.January, 5),
		DayOfMonth:       5,
		Currency:         "ILS",
	}

	input := base
	input.NumberOfPayments = 0
	_, err := f.service.CreateInstallment(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrInstallmentCountInvalid)

	input = base
	input.NumberOfPayments = 361
	_, err = f.service.CreateInstallment(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrInstallmentCountInvalid)

	input = base
	input.TotalAmount = decimal.Zero
	_, err = f.service.CreateInstallment(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestPayInstallment_CreatesTransactionAndAdvances(t *testing.T) {
	f := newInstallmentFixture()
	installment, err := f.service.CreateInstallment(f.scope, CreateInstallmentInput{
		Name:             "Sofa",
		TotalAmount:      decimal.NewFromInt(3000),
		NumberOfPayments: 6,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.January, 12),
		DayOfMonth:       12,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	updated, tx, err := f.service.PayInstallment(f.scope, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), updated.PaymentsCompleted)
	require.NotNil(t, tx.InstallmentNumber)
	assert.Equal(t, int32(1), *tx.InstallmentNumber)
	assert.Equal(t, domain.EntryInstallment, tx.EntryPattern)
	assert.True(t, tx.Date.Equal(date(2026, time.January, 12)))

	// Paying all six completes the plan; a seventh is rejected and leaves
	// no transaction behind
	for i := 0; i < 5; i++ {
		_, _, err = f.service.PayInstallment(f.scope, installment.ID)
		require.NoError(t, err)
	}
	require.Len(t, f.transactions.Transactions, 6)
	_, _, err = f.service.PayInstallment(f.scope, installment.ID)
	assert.ErrorIs(t, err, domain.ErrInstallmentFullyPaid)
	assert.Len(t, f.transactions.Transactions, 6)
}

func TestReverseInstallmentPayment_RemovesTransaction(t *testing.T) {
	f := newInstallmentFixture()
	installment, err := f.service.CreateInstallment(f.scope, CreateInstallmentInput{
		Name:             "Sofa",
		TotalAmount:      decimal.NewFromInt(3000),
		NumberOfPayments: 6,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.January, 12),
		DayOfMonth:       12,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	_, tx, err := f.service.PayInstallment(f.scope, installment.ID)
	require.NoError(t, err)

	updated, err := f.service.ReverseInstallmentPayment(f.scope, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), updated.PaymentsCompleted)
	_, err = f.transactions.GetByID(f.scope, tx.ID)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	// Nothing left to reverse
	_, err = f.service.ReverseInstallmentPayment(f.scope, installment.ID)
	assert.ErrorIs(t, err, domain.ErrInstallmentNoPayments)
}

func TestPayInstallment_CrossTenant(t *testing.T) {
	f := newInstallmentFixture()
	installment, err := f.service.CreateInstallment(f.scope, CreateInstallmentInput{
		Name:             "Sofa",
		TotalAmount:      decimal.NewFromInt(3000),
		NumberOfPayments: 6,
		Type:             domain.TransactionExpense,
		StartDate:        date(2026, time.January, 12),
		DayOfMonth:       12,
		Currency:         "ILS",
	})
	require.NoError(t, err)

	_, _, err = f.service.PayInstallment(domain.PersonalScope(uuid.New()), installment.ID)
	assert.ErrorIs(t, err, domain.ErrInstallmentNotFound)
}

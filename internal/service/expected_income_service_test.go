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

func TestSetExpectedIncome_UpsertPerMonth(t *testing.T) {
	scope := domain.PersonalScope(uuid.New())
	repo := testutil.NewMockExpectedIncomeRepository()
	service := NewExpectedIncomeService(repo)

	// Mid-month input normalises to the first
	first, err := service.SetExpectedIncome(scope, date(2026, time.March, 17), decimal.NewFromInt(12000), "")
	require.NoError(t, err)
	assert.True(t, first.Month.Equal(date(2026, time.March, 1)))

	// Setting the same month again replaces, not duplicates
	second, err := service.SetExpectedIncome(scope, date(2026, time.March, 2), decimal.NewFromInt(13000), "raise")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.ExpectedAmount.Equal(decimal.NewFromInt(13000)))

	got, err := service.GetExpectedIncome(scope, date(2026, time.March, 31))
	require.NoError(t, err)
	assert.True(t, got.ExpectedAmount.Equal(decimal.NewFromInt(13000)))
}

func TestSetExpectedIncome_Validation(t *testing.T) {
	scope := domain.PersonalScope(uuid.New())
	service := NewExpectedIncomeService(testutil.NewMockExpectedIncomeRepository())

	_, err := service.SetExpectedIncome(scope, date(2026, time.March, 1), decimal.NewFromInt(-5), "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestListExpectedIncome_Range(t *testing.T) {
	scope := domain.PersonalScope(uuid.New())
	repo := testutil.NewMockExpectedIncomeRepository()
	service := NewExpectedIncomeService(repo)

	for m := time.January; m <= time.April; m++ {
		_, err := service.SetExpectedIncome(scope, date(2026, m, 1), decimal.NewFromInt(10000), "")
		require.NoError(t, err)
	}

	incomes, err := service.ListExpectedIncome(scope, date(2026, time.February, 10), date(2026, time.March, 20))
	require.NoError(t, err)
	assert.Len(t, incomes, 2)

	_, err = service.ListExpectedIncome(scope, date(2026, time.April, 1), date(2026, time.January, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

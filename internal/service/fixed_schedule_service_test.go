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

type fixedScheduleFixture struct {
	scope      domain.Scope
	fixed      *testutil.MockFixedScheduleRepository
	categories *testutil.MockCategoryRepository
	service    *FixedScheduleService
}

func newFixedScheduleFixture() *fixedScheduleFixture {
	f := &fixedScheduleFixture{
		scope:      domain.PersonalScope(uuid.New()),
		fixed:      testutil.NewMockFixedScheduleRepository(),
		categories: testutil.NewMockCategoryRepository(),
	}
	f.service = NewFixedScheduleService(f.fixed, f.categories)
	return f
}

func validScheduleInput() CreateFixedScheduleInput {
	return CreateFixedScheduleInput{
		Name:       "Rent",
		Amount:     decimal.NewFromInt(4500),
		Currency:   "ILS",
		Type:       domain.TransactionExpense,
		DayOfMonth: 1,
		StartDate:  date(2026, time.January, 1),
	}
}

func TestCreateFixedSchedule_Valid(t *testing.T) {
	f := newFixedScheduleFixture()

	schedule, err := f.service.CreateFixedSchedule(f.scope, validScheduleInput())
	require.NoError(t, err)
	assert.True(t, schedule.IsActive)
	assert.Equal(t, f.scope.UserID, schedule.UserID)
}

func TestCreateFixedSchedule_Validation(t *testing.T) {
	f := newFixedScheduleFixture()

	input := validScheduleInput()
	input.DayOfMonth = 32
	_, err := f.service.CreateFixedSchedule(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrDayOfMonthInvalid)

	input = validScheduleInput()
	end := date(2025, time.December, 1)
	input.EndDate = &end
	_, err = f.service.CreateFixedSchedule(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrEndBeforeStart)

	input = validScheduleInput()
	input.Currency = "sheqel"
	_, err = f.service.CreateFixedSchedule(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
}

func TestCreateFixedSchedule_CategoryTypeChecked(t *testing.T) {
	f := newFixedScheduleFixture()
	income, err := f.categories.Create(f.scope, &domain.Category{
		Name: "Salary", Type: domain.CategoryIncome,
	})
	require.NoError(t, err)

	input := validScheduleInput()
	incomeID := income.ID
	input.CategoryID = &incomeID
	_, err = f.service.CreateFixedSchedule(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrCategoryTypeMismatch)
}

func TestPauseResumeFixedSchedule(t *testing.T) {
	f := newFixedScheduleFixture()
	schedule, err := f.service.CreateFixedSchedule(f.scope, validScheduleInput())
	require.NoError(t, err)

	paused, err := f.service.PauseFixedSchedule(f.scope, schedule.ID)
	require.NoError(t, err)
	assert.False(t, paused.IsActive)
	assert.NotNil(t, paused.PausedAt)

	// Paused schedules are not due
	due, err := f.fixed.ListDue(f.scope, date(2026, time.March, 1))
	require.NoError(t, err)
	assert.Empty(t, due)

	_, err = f.service.PauseFixedSchedule(f.scope, schedule.ID)
	assert.ErrorIs(t, err, domain.ErrScheduleAlreadyPaused)

	resumed, err := f.service.ResumeFixedSchedule(f.scope, schedule.ID)
	require.NoError(t, err)
	assert.True(t, resumed.IsActive)
	assert.NotNil(t, resumed.ResumedAt)

	_, err = f.service.ResumeFixedSchedule(f.scope, schedule.ID)
	assert.ErrorIs(t, err, domain.ErrScheduleNotPaused)
}

func TestFixedSchedule_CrossTenant(t *testing.T) {
	f := newFixedScheduleFixture()
	schedule, err := f.service.CreateFixedSchedule(f.scope, validScheduleInput())
	require.NoError(t, err)

	otherScope := domain.PersonalScope(uuid.New())
	_, err = f.service.GetFixedSchedule(otherScope, schedule.ID)
	assert.ErrorIs(t, err, domain.ErrFixedScheduleNotFound)

	_, err = f.service.PauseFixedSchedule(otherScope, schedule.ID)
	assert.ErrorIs(t, err, domain.ErrFixedScheduleNotFound)
}

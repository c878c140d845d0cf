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

type subscriptionFixture struct {
	scope         domain.Scope
	subscriptions *testutil.MockSubscriptionRepository
	cards         *testutil.MockCreditCardRepository
	categories    *testutil.MockCategoryRepository
	service       *SubscriptionService
}

func newSubscriptionFixture() *subscriptionFixture {
	f := &subscriptionFixture{
		scope:         domain.PersonalScope(uuid.New()),
		subscriptions: testutil.NewMockSubscriptionRepository(),
		cards:         testutil.NewMockCreditCardRepository(),
		categories:    testutil.NewMockCategoryRepository(),
	}
	f.service = NewSubscriptionService(f.subscriptions, f.cards, f.categories)
	return f
}

func validSubscriptionInput() CreateSubscriptionInput {
	return CreateSubscriptionInput{
		Name:            "Streaming",
		Amount:          decimal.NewFromInt(50),
		Currency:        "ILS",
		BillingCycle:    domain.CycleMonthly,
		NextRenewalDate: date(2026, time.April, 1),
		AutoRenew:       true,
	}
}

func TestCreateSubscription_Valid(t *testing.T) {
	f := newSubscriptionFixture()
	sub, err := f.service.CreateSubscription(f.scope, validSubscriptionInput())
	require.NoError(t, err)
	assert.True(t, sub.IsActive)
}

func TestCreateSubscription_Validation(t *testing.T) {
	f := newSubscriptionFixture()

	input := validSubscriptionInput()
	input.BillingCycle = domain.BillingCycle("weekly")
	_, err := f.service.CreateSubscription(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrBillingCycleInvalid)

	input = validSubscriptionInput()
	missing := uuid.New()
	input.CreditCardID = &missing
	_, err = f.service.CreateSubscription(f.scope, input)
	assert.ErrorIs(t, err, domain.ErrCreditCardNotFound)
}

func TestMonthlyCommitment_NormalisesCycles(t *testing.T) {
	f := newSubscriptionFixture()

	_, err := f.service.CreateSubscription(f.scope, validSubscriptionInput())
	require.NoError(t, err)

	annual := validSubscriptionInput()
	annual.Name = "Domain renewal"
	annual.Amount = decimal.NewFromInt(120)
	annual.BillingCycle = domain.CycleAnnual
	_, err = f.service.CreateSubscription(f.scope, annual)
	require.NoError(t, err)

	// 50 monthly + 120/12 annual
	total, err := f.service.MonthlyCommitment(f.scope)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(60)), "got %s", total)
}

func TestPauseCancelSubscription(t *testing.T) {
	f := newSubscriptionFixture()
	sub, err := f.service.CreateSubscription(f.scope, validSubscriptionInput())
	require.NoError(t, err)

	paused, err := f.service.PauseSubscription(f.scope, sub.ID)
	require.NoError(t, err)
	assert.False(t, paused.IsActive)
	assert.NotNil(t, paused.PausedAt)

	// Paused subscriptions drop out of the active commitment
	total, err := f.service.MonthlyCommitment(f.scope)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	_, err = f.service.PauseSubscription(f.scope, sub.ID)
	assert.ErrorIs(t, err, domain.ErrScheduleAlreadyPaused)

	resumed, err := f.service.ResumeSubscription(f.scope, sub.ID)
	require.NoError(t, err)
	assert.True(t, resumed.IsActive)
	assert.Nil(t, resumed.PausedAt)

	require.NoError(t, f.service.CancelSubscription(f.scope, sub.ID))
	_, err = f.service.GetSubscription(f.scope, sub.ID)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

func newCreditCardService() (*CreditCardService, domain.Scope) {
	return NewCreditCardService(testutil.NewMockCreditCardRepository()), domain.PersonalScope(uuid.New())
}

func validCardInput() CreateCreditCardInput {
	return CreateCreditCardInput{
		Name:           "Personal Visa",
		LastFourDigits: "4532",
		CardNetwork:    "visa",
		Issuer:         "Leumi",
		CreditLimit:    decimal.NewFromInt(20000),
		BillingDay:     10,
		Currency:       "ILS",
	}
}

func TestCreateCreditCard_Valid(t *testing.T) {
	service, scope := newCreditCardService()
	card, err := service.CreateCreditCard(scope, validCardInput())
	require.NoError(t, err)
	assert.True(t, card.IsActive)
}

func TestCreateCreditCard_Validation(t *testing.T) {
	service, scope := newCreditCardService()

	input := validCardInput()
	input.BillingDay = 29
	_, err := service.CreateCreditCard(scope, input)
	assert.ErrorIs(t, err, domain.ErrBillingDayInvalid)

	input = validCardInput()
	input.LastFourDigits = "12ab"
	_, err = service.CreateCreditCard(scope, input)
	assert.ErrorIs(t, err, domain.ErrLastFourInvalid)

	input = validCardInput()
	input.CreditLimit = decimal.Zero
	_, err = service.CreateCreditCard(scope, input)
	assert.ErrorIs(t, err, domain.ErrCreditLimitInvalid)
}

func TestUpdateCreditCard_KeepsLastFour(t *testing.T) {
	service, scope := newCreditCardService()
	card, err := service.CreateCreditCard(scope, validCardInput())
	require.NoError(t, err)

	updated, err := service.UpdateCreditCard(scope, card.ID, UpdateCreditCardInput{
		Name:        "Shared Visa",
		CardNetwork: "visa",
		Issuer:      "Leumi",
		CreditLimit: decimal.NewFromInt(30000),
		BillingDay:  15,
		IsActive:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Shared Visa", updated.Name)
	assert.Equal(t, "4532", updated.LastFourDigits)
}

func TestCreditCard_CrossTenant(t *testing.T) {
	service, scope := newCreditCardService()
	card, err := service.CreateCreditCard(scope, validCardInput())
	require.NoError(t, err)

	_, err = service.GetCreditCard(domain.PersonalScope(uuid.New()), card.ID)
	assert.ErrorIs(t, err, domain.ErrCreditCardNotFound)
}

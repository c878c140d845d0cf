package service

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CurrencyFields is the standard stamp for rows created from a foreign
// currency: the converted amount plus the preserved original triple.
type CurrencyFields struct {
	Amount           decimal.Decimal
	OriginalAmount   *decimal.Decimal
	OriginalCurrency *string
	ExchangeRate     *decimal.Decimal
}

// CurrencyService converts amounts between currencies using a snapshot rate
// table. Rates are not authoritative market data; a missing rate falls open
// to 1 and is logged.
type CurrencyService struct {
	baseCurrency string

	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewCurrencyService creates a CurrencyService with the given base currency
// and seed rates keyed "FROM:TO".
func NewCurrencyService(baseCurrency string, seed map[string]decimal.Decimal) *CurrencyService {
	rates := make(map[string]decimal.Decimal, len(seed))
	for k, v := range seed {
		rates[k] = v
	}
	return &CurrencyService{
		baseCurrency: baseCurrency,
		rates:        rates,
	}
}

// BaseCurrency returns the reporting currency amounts are stored in.
func (s *CurrencyService) BaseCurrency() string {
	return s.baseCurrency
}

// SetRate updates one rate in the table.
func (s *CurrencyService) SetRate(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[from+":"+to] = rate
}

// Rate looks up the conversion rate from one currency to another. Identical
// currencies are always rate 1. The second return reports whether the rate
// was actually known.
func (s *CurrencyService) Rate(from, to string) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, found := s.rates[from+":"+to]; found {
		return rate, true
	}
	// Derive from the inverse when only the opposite direction is seeded.
	if inverse, found := s.rates[to+":"+from]; found && inverse.IsPositive() {
		return decimal.NewFromInt(1).DivRound(inverse, 6), true
	}
	return decimal.NewFromInt(1), false
}

// Convert converts amount from one currency to another, rounding half-up to
// 2 decimals. A missing rate converts at 1 and logs a warning.
func (s *CurrencyService) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, decimal.Decimal) {
	rate, found := s.Rate(from, to)
	if !found {
		log.Warn().
			Str("from", from).
			Str("to", to).
			Msg("exchange rate missing, converting at 1")
	}
	return amount.Mul(rate).Round(2), rate
}

// PrepareCurrencyFields converts amount from the given currency to the base
// currency and stamps the original triple. Amounts already in the base
// currency pass through with no original fields.
func (s *CurrencyService) PrepareCurrencyFields(amount decimal.Decimal, from string) CurrencyFields {
	if from == s.baseCurrency {
		return CurrencyFields{Amount: amount}
	}
	converted, rate := s.Convert(amount, from, s.baseCurrency)
	original := amount
	originalCurrency := from
	return CurrencyFields{
		Amount:           converted,
		OriginalAmount:   &original,
		OriginalCurrency: &originalCurrency,
		ExchangeRate:     &rate,
	}
}

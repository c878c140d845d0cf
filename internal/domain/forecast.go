package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastMonth is one month of the forward walk: opening balance, the four
// projected buckets, and the resulting closing balance.
type ForecastMonth struct {
	Month               time.Time       `json:"month"`
	Opening             decimal.Decimal `json:"opening"`
	FixedIncome         decimal.Decimal `json:"fixedIncome"`
	FixedExpenses       decimal.Decimal `json:"fixedExpenses"`
	InstallmentPayments decimal.Decimal `json:"installmentPayments"`
	LoanPayments        decimal.Decimal `json:"loanPayments"`
	ExpectedIncome      decimal.Decimal `json:"expectedIncome"`
	OneTimeIncome       decimal.Decimal `json:"oneTimeIncome"`
	OneTimeExpenses     decimal.Decimal `json:"oneTimeExpenses"`
	TotalIncome         decimal.Decimal `json:"totalIncome"`
	TotalExpenses       decimal.Decimal `json:"totalExpenses"`
	Net                 decimal.Decimal `json:"net"`
	Closing             decimal.Decimal `json:"closing"`
}

// MonthlyForecast is the result of the month-by-month balance walk.
type MonthlyForecast struct {
	CurrentBalance     decimal.Decimal `json:"currentBalance"`
	Months             []ForecastMonth `json:"months"`
	HasNegativeMonths  bool            `json:"hasNegativeMonths"`
	FirstNegativeMonth *time.Time      `json:"firstNegativeMonth,omitempty"`
}

// ForecastWeek is one week of the weekly walk.
type ForecastWeek struct {
	WeekStart time.Time       `json:"weekStart"`
	WeekEnd   time.Time       `json:"weekEnd"`
	Opening   decimal.Decimal `json:"opening"`
	Income    decimal.Decimal `json:"income"`
	Expenses  decimal.Decimal `json:"expenses"`
	Net       decimal.Decimal `json:"net"`
	Closing   decimal.Decimal `json:"closing"`
}

// WeeklyForecast is the result of the week-by-week balance walk.
type WeeklyForecast struct {
	CurrentBalance    decimal.Decimal `json:"currentBalance"`
	Weeks             []ForecastWeek  `json:"weeks"`
	HasNegativeWeeks  bool            `json:"hasNegativeWeeks"`
	FirstNegativeWeek *time.Time      `json:"firstNegativeWeek,omitempty"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardSummary is the KPI header: current balance, month-to-date
// movement, and trend versus the previous month.
type DashboardSummary struct {
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	MonthIncome    decimal.Decimal `json:"monthIncome"`
	MonthExpenses  decimal.Decimal `json:"monthExpenses"`
	MonthNet       decimal.Decimal `json:"monthNet"`
	IncomeTrend    decimal.Decimal `json:"incomeTrend"`   // percent vs previous month
	ExpensesTrend  decimal.Decimal `json:"expensesTrend"` // percent vs previous month
}

// PeriodGranularity selects the dashboard series resolution.
type PeriodGranularity string

const (
	PeriodWeekly    PeriodGranularity = "weekly"
	PeriodMonthly   PeriodGranularity = "monthly"
	PeriodQuarterly PeriodGranularity = "quarterly"
)

// PeriodPoint is one point of the period series. RunningBalance is
// back-computed so the final point equals the current balance.
type PeriodPoint struct {
	Label          string          `json:"label"`
	PeriodStart    time.Time       `json:"periodStart"`
	Income         decimal.Decimal `json:"income"`
	Expenses       decimal.Decimal `json:"expenses"`
	Net            decimal.Decimal `json:"net"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
}

// CategoryBreakdownEntry is one slice of the current-month expense pie.
// Uncategorised expenses roll into a single bucket with a nil CategoryID.
type CategoryBreakdownEntry struct {
	CategoryID *uuid.UUID      `json:"categoryId,omitempty"`
	Name       string          `json:"name"`
	Color      string          `json:"color,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// UpcomingPayment is one entry of the next-N-days payment list.
type UpcomingPayment struct {
	Source   SourceKind      `json:"source"`
	SourceID uuid.UUID       `json:"sourceId"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"dueDate"`
}

// HealthGrade is the qualitative bucket of the financial health score.
type HealthGrade string

const (
	GradeExcellent HealthGrade = "excellent"
	GradeGood      HealthGrade = "good"
	GradeFair      HealthGrade = "fair"
	GradePoor      HealthGrade = "poor"
	GradeCritical  HealthGrade = "critical"
)

// HealthScore is the weighted 0-100 financial health score with its factor
// breakdown.
type HealthScore struct {
	Score          int         `json:"score"`
	Grade          HealthGrade `json:"grade"`
	SavingsScore   int         `json:"savingsScore"`
	DebtScore      int         `json:"debtScore"`
	TrendScore     int         `json:"trendScore"`
	StabilityScore int         `json:"stabilityScore"`
	EmergencyScore int         `json:"emergencyScore"`
}

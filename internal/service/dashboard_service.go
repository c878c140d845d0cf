package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

const (
	weeklyPoints    = 12
	monthlyPoints   = 12
	quarterlyPoints = 8

	DefaultUpcomingDays = 14
)

// Health score factor weights.
var (
	weightSavings   = decimal.NewFromFloat(0.30)
	weightDebt      = decimal.NewFromFloat(0.25)
	weightTrend     = decimal.NewFromFloat(0.20)
	weightStability = decimal.NewFromFloat(0.15)
	weightEmergency = decimal.NewFromFloat(0.10)
)

// DashboardService computes the read-only derived views: KPI summary, period
// series, category breakdown, upcoming payments and the health score.
type DashboardService struct {
	transactionRepo domain.TransactionRepository
	balanceRepo     domain.BankBalanceRepository
	categoryRepo    domain.CategoryRepository
	fixedRepo       domain.FixedScheduleRepository
	installmentRepo domain.InstallmentRepository
	loanRepo        domain.LoanRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(
	transactionRepo domain.TransactionRepository,
	balanceRepo domain.BankBalanceRepository,
	categoryRepo domain.CategoryRepository,
	fixedRepo domain.FixedScheduleRepository,
	installmentRepo domain.InstallmentRepository,
	loanRepo domain.LoanRepository,
) *DashboardService {
	return &DashboardService{
		transactionRepo: transactionRepo,
		balanceRepo:     balanceRepo,
		categoryRepo:    categoryRepo,
		fixedRepo:       fixedRepo,
		installmentRepo: installmentRepo,
		loanRepo:        loanRepo,
	}
}

// Summary returns the KPI header for the month containing today.
func (s *DashboardService) Summary(scope domain.Scope, today time.Time) (*domain.DashboardSummary, error) {
	balance, err := s.currentBalance(scope)
	if err != nil {
		return nil, err
	}

	monthStart := util.FirstOfMonth(today)
	income, expenses, err := s.sumRange(scope, monthStart, util.EndOfMonth(today))
	if err != nil {
		return nil, err
	}

	prevStart := util.PreviousMonth(today)
	prevIncome, prevExpenses, err := s.sumRange(scope, prevStart, util.EndOfMonth(prevStart))
	if err != nil {
		return nil, err
	}

	return &domain.DashboardSummary{
		CurrentBalance: balance,
		MonthIncome:    income,
		MonthExpenses:  expenses,
		MonthNet:       income.Sub(expenses),
		IncomeTrend:    trendPercent(prevIncome, income),
		ExpensesTrend:  trendPercent(prevExpenses, expenses),
	}, nil
}

// trendPercent is the month-over-month change: (curr - prev) / |prev| * 100,
// with 0 -> 0 meaning 0 and 0 -> x meaning 100.
func trendPercent(prev, curr decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		if curr.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return curr.Sub(prev).Div(prev.Abs()).Mul(decimal.NewFromInt(100)).Round(2)
}

// PeriodSeries returns the income/expense series at the requested
// granularity: weekly last 12, monthly last 12, quarterly last 8. Running
// balance is back-computed so the final point equals the current balance.
func (s *DashboardService) PeriodSeries(scope domain.Scope, granularity domain.PeriodGranularity, today time.Time) ([]domain.PeriodPoint, error) {
	var points []domain.PeriodPoint

	switch granularity {
	case domain.PeriodWeekly:
		for i := weeklyPoints - 1; i >= 0; i-- {
			start := today.AddDate(0, 0, -7*i-int(today.Weekday()))
			end := start.AddDate(0, 0, 6)
			income, expenses, err := s.sumRange(scope, start, end)
			if err != nil {
				return nil, err
			}
			points = append(points, periodPoint(start.Format("2006-01-02"), start, income, expenses))
		}
	case domain.PeriodMonthly:
		for i := monthlyPoints - 1; i >= 0; i-- {
			start := util.FirstOfMonth(today).AddDate(0, -i, 0)
			income, expenses, err := s.sumRange(scope, start, util.EndOfMonth(start))
			if err != nil {
				return nil, err
			}
			points = append(points, periodPoint(start.Format("2006-01"), start, income, expenses))
		}
	case domain.PeriodQuarterly:
		quarterStart := time.Date(today.Year(), ((today.Month()-1)/3)*3+1, 1, 0, 0, 0, 0, time.UTC)
		for i := quarterlyPoints - 1; i >= 0; i-- {
			start := quarterStart.AddDate(0, -3*i, 0)
			end := util.EndOfMonth(start.AddDate(0, 2, 0))
			income, expenses, err := s.sumRange(scope, start, end)
			if err != nil {
				return nil, err
			}
			label := fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
			points = append(points, periodPoint(label, start, income, expenses))
		}
	default:
		return nil, domain.ErrInvalidInput
	}

	// Back-compute the running balance: the last point pins to the current
	// balance, each earlier point subtracts the following net.
	balance, err := s.currentBalance(scope)
	if err != nil {
		return nil, err
	}
	running := balance
	for i := len(points) - 1; i >= 0; i-- {
		points[i].RunningBalance = running
		running = running.Sub(points[i].Net)
	}
	return points, nil
}

func periodPoint(label string, start time.Time, income, expenses decimal.Decimal) domain.PeriodPoint {
	return domain.PeriodPoint{
		Label:       label,
		PeriodStart: start,
		Income:      income,
		Expenses:    expenses,
		Net:         income.Sub(expenses),
	}
}

// CategoryBreakdown groups the current month's expenses by category, with
// uncategorised expenses rolled into one bucket.
func (s *DashboardService) CategoryBreakdown(scope domain.Scope, today time.Time) ([]domain.CategoryBreakdownEntry, error) {
	transactions, err := s.transactionRepo.ListByDateRange(scope, util.FirstOfMonth(today), util.EndOfMonth(today))
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(scope, true)
	if err != nil {
		return nil, err
	}
	names := make(map[string]*domain.Category, len(categories))
	for _, c := range categories {
		names[c.ID.String()] = c
	}

	sums := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, tx := range transactions {
		if tx.Type != domain.TransactionExpense {
			continue
		}
		key := ""
		if tx.CategoryID != nil {
			key = tx.CategoryID.String()
		}
		sums[key] = sums[key].Add(tx.Amount)
		total = total.Add(tx.Amount)
	}

	entries := make([]domain.CategoryBreakdownEntry, 0, len(sums))
	for key, amount := range sums {
		entry := domain.CategoryBreakdownEntry{
			Name:   "Uncategorised",
			Amount: amount,
		}
		if c, ok := names[key]; ok {
			id := c.ID
			entry.CategoryID = &id
			entry.Name = c.Name
			entry.Color = c.Color
		}
		if total.IsPositive() {
			entry.Percentage = amount.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Amount.GreaterThan(entries[j].Amount) })
	return entries, nil
}

// UpcomingPayments lists the next occurrences of fixed schedules,
// installments and active loans due within the next days, sorted by due date.
func (s *DashboardService) UpcomingPayments(scope domain.Scope, today time.Time, days int) ([]domain.UpcomingPayment, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	horizon := today.AddDate(0, 0, days)
	var out []domain.UpcomingPayment

	schedules, err := s.fixedRepo.List(scope, true)
	if err != nil {
		return nil, err
	}
	for _, f := range schedules {
		if f.Type != domain.TransactionExpense {
			continue
		}
		next := nextScheduleDate(f, today)
		if next == nil || next.After(horizon) {
			continue
		}
		out = append(out, domain.UpcomingPayment{
			Source:   domain.SourceFixed,
			SourceID: f.ID,
			Name:     f.Name,
			Amount:   f.Amount,
			DueDate:  *next,
		})
	}

	installments, err := s.installmentRepo.List(scope)
	if err != nil {
		return nil, err
	}
	for _, inst := range installments {
		next := inst.NextPaymentDate()
		if next == nil || next.Before(today) || next.After(horizon) {
			continue
		}
		out = append(out, domain.UpcomingPayment{
			Source:   domain.SourceInstallment,
			SourceID: inst.ID,
			Name:     inst.Name,
			Amount:   inst.ScheduledAmount(inst.PaymentsCompleted + 1),
			DueDate:  *next,
		})
	}

	loans, err := s.loanRepo.List(scope, domain.LoanFilterActive)
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		next := loan.NextPaymentDate()
		if next == nil || next.Before(today) || next.After(horizon) {
			continue
		}
		out = append(out, domain.UpcomingPayment{
			Source:   domain.SourceLoan,
			SourceID: loan.ID,
			Name:     loan.Name,
			Amount:   loan.MonthlyPayment,
			DueDate:  *next,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// nextScheduleDate returns the first due date of a fixed schedule on or after
// today, or nil when the schedule has ended.
func nextScheduleDate(f *domain.FixedSchedule, today time.Time) *time.Time {
	candidate := util.ClampDayToMonth(today.Year(), today.Month(), int(f.DayOfMonth))
	if candidate.Before(today) {
		next := util.FirstOfMonth(today).AddDate(0, 1, 0)
		candidate = util.ClampDayToMonth(next.Year(), next.Month(), int(f.DayOfMonth))
	}
	if f.StartDate.After(candidate) {
		candidate = util.ClampDayToMonth(f.StartDate.Year(), f.StartDate.Month(), int(f.DayOfMonth))
		if candidate.Before(f.StartDate) {
			next := util.FirstOfMonth(f.StartDate).AddDate(0, 1, 0)
			candidate = util.ClampDayToMonth(next.Year(), next.Month(), int(f.DayOfMonth))
		}
	}
	if f.EndDate != nil && candidate.After(*f.EndDate) {
		return nil
	}
	return &candidate
}

// HealthScore computes the weighted 0-100 financial health score.
//
// Factor buckets:
//   - savings ratio (net / income, last 3 months): >=20% 100, >=10% 60, >=0 20, negative 0
//   - debt ratio (loan+installment payments / income): <=20% 100, <=36% 60, <=50% 20, above 0
//   - balance trend (net over last 3 months): positive 100, zero 60, negative 20
//   - expense stability (coefficient of variation over last 3 months):
//     <=0.10 100, <=0.25 60, <=0.50 20, above 0
//   - emergency fund (months of expenses covered by the balance):
//     >=6 100, >=3 60, >=1 20, below 0
func (s *DashboardService) HealthScore(scope domain.Scope, today time.Time) (*domain.HealthScore, error) {
	balance, err := s.currentBalance(scope)
	if err != nil {
		return nil, err
	}

	// Factors are computed over the last 3 full months.
	var monthlyIncome, monthlyExpenses []decimal.Decimal
	totalIncome, totalExpenses := decimal.Zero, decimal.Zero
	for i := 3; i >= 1; i-- {
		start := util.FirstOfMonth(today).AddDate(0, -i, 0)
		income, expenses, err := s.sumRange(scope, start, util.EndOfMonth(start))
		if err != nil {
			return nil, err
		}
		monthlyIncome = append(monthlyIncome, income)
		monthlyExpenses = append(monthlyExpenses, expenses)
		totalIncome = totalIncome.Add(income)
		totalExpenses = totalExpenses.Add(expenses)
	}

	savingsScore := bucketSavings(totalIncome, totalExpenses)
	debtScore, err := s.bucketDebt(scope, totalIncome)
	if err != nil {
		return nil, err
	}
	trendScore := bucketTrend(totalIncome.Sub(totalExpenses))
	stabilityScore := bucketStability(monthlyExpenses)
	emergencyScore := bucketEmergency(balance, totalExpenses)

	weighted := decimal.NewFromInt(int64(savingsScore)).Mul(weightSavings).
		Add(decimal.NewFromInt(int64(debtScore)).Mul(weightDebt)).
		Add(decimal.NewFromInt(int64(trendScore)).Mul(weightTrend)).
		Add(decimal.NewFromInt(int64(stabilityScore)).Mul(weightStability)).
		Add(decimal.NewFromInt(int64(emergencyScore)).Mul(weightEmergency))
	score := int(weighted.Round(0).IntPart())

	return &domain.HealthScore{
		Score:          score,
		Grade:          gradeFor(score),
		SavingsScore:   savingsScore,
		DebtScore:      debtScore,
		TrendScore:     trendScore,
		StabilityScore: stabilityScore,
		EmergencyScore: emergencyScore,
	}, nil
}

func bucketSavings(income, expenses decimal.Decimal) int {
	if !income.IsPositive() {
		return 0
	}
	ratio := income.Sub(expenses).Div(income)
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromFloat(0.2)):
		return 100
	case ratio.GreaterThanOrEqual(decimal.NewFromFloat(0.1)):
		return 60
	case !ratio.IsNegative():
		return 20
	default:
		return 0
	}
}

func (s *DashboardService) bucketDebt(scope domain.Scope, income decimal.Decimal) (int, error) {
	loans, err := s.loanRepo.List(scope, domain.LoanFilterActive)
	if err != nil {
		return 0, err
	}
	installments, err := s.installmentRepo.List(scope)
	if err != nil {
		return 0, err
	}
	debt := decimal.Zero
	for _, l := range loans {
		debt = debt.Add(l.MonthlyPayment)
	}
	for _, i := range installments {
		if i.PaymentsCompleted < i.NumberOfPayments {
			debt = debt.Add(i.MonthlyAmount)
		}
	}
	if debt.IsZero() {
		return 100, nil
	}
	if !income.IsPositive() {
		return 0, nil
	}
	// Compare against average monthly income over the window.
	ratio := debt.Mul(decimal.NewFromInt(3)).Div(income)
	switch {
	case ratio.LessThanOrEqual(decimal.NewFromFloat(0.2)):
		return 100, nil
	case ratio.LessThanOrEqual(decimal.NewFromFloat(0.36)):
		return 60, nil
	case ratio.LessThanOrEqual(decimal.NewFromFloat(0.5)):
		return 20, nil
	default:
		return 0, nil
	}
}

func bucketTrend(net decimal.Decimal) int {
	switch {
	case net.IsPositive():
		return 100
	case net.IsZero():
		return 60
	default:
		return 20
	}
}

func bucketStability(monthlyExpenses []decimal.Decimal) int {
	if len(monthlyExpenses) == 0 {
		return 60
	}
	var values []float64
	sum := 0.0
	for _, e := range monthlyExpenses {
		v := e.InexactFloat64()
		values = append(values, v)
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 100
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	cv := math.Sqrt(variance) / mean
	switch {
	case cv <= 0.10:
		return 100
	case cv <= 0.25:
		return 60
	case cv <= 0.50:
		return 20
	default:
		return 0
	}
}

func bucketEmergency(balance, totalExpenses decimal.Decimal) int {
	avgExpenses := totalExpenses.Div(decimal.NewFromInt(3))
	if !avgExpenses.IsPositive() {
		if balance.IsPositive() {
			return 100
		}
		return 0
	}
	months := balance.Div(avgExpenses)
	switch {
	case months.GreaterThanOrEqual(decimal.NewFromInt(6)):
		return 100
	case months.GreaterThanOrEqual(decimal.NewFromInt(3)):
		return 60
	case months.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return 20
	default:
		return 0
	}
}

func gradeFor(score int) domain.HealthGrade {
	switch {
	case score >= 85:
		return domain.GradeExcellent
	case score >= 70:
		return domain.GradeGood
	case score >= 50:
		return domain.GradeFair
	case score >= 30:
		return domain.GradePoor
	default:
		return domain.GradeCritical
	}
}

func (s *DashboardService) sumRange(scope domain.Scope, start, end time.Time) (decimal.Decimal, decimal.Decimal, error) {
	transactions, err := s.transactionRepo.ListByDateRange(scope, start, end)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	income, expenses := decimal.Zero, decimal.Zero
	for _, tx := range transactions {
		if tx.Type == domain.TransactionIncome {
			income = income.Add(tx.Amount)
		} else {
			expenses = expenses.Add(tx.Amount)
		}
	}
	return income, expenses, nil
}

func (s *DashboardService) currentBalance(scope domain.Scope) (decimal.Decimal, error) {
	balance, err := s.balanceRepo.GetCurrent(scope)
	if err != nil {
		if errors.Is(err, domain.ErrBankBalanceNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return balance.Balance, nil
}

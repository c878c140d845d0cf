package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

// ScheduleRowStatus classifies one amortisation row relative to today and the
// loan's payment counter.
type ScheduleRowStatus string

const (
	RowPaid    ScheduleRowStatus = "paid"
	RowOverdue ScheduleRowStatus = "overdue"
	RowDue     ScheduleRowStatus = "due"
	RowFuture  ScheduleRowStatus = "future"
)

// ScheduleRow is one payment of the amortisation schedule.
type ScheduleRow struct {
	Number           int32             `json:"number"`
	DueDate          time.Time         `json:"dueDate"`
	Payment          decimal.Decimal   `json:"payment"`
	Principal        decimal.Decimal   `json:"principal"`
	Interest         decimal.Decimal   `json:"interest"`
	RemainingBalance decimal.Decimal   `json:"remainingBalance"`
	Status           ScheduleRowStatus `json:"status"`
}

// AmortizationSchedule is the full payment-by-payment breakdown of a loan.
type AmortizationSchedule struct {
	LoanID        string          `json:"loanId"`
	TotalInterest decimal.Decimal `json:"totalInterest"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	Rows          []ScheduleRow   `json:"rows"`
}

// BuildAmortizationSchedule walks the declining balance month by month with a
// constant payment. Each month's interest is balance times the monthly rate,
// rounded half-up to the cent; the rest of the payment is principal. The final
// payment is adjusted to clear the balance exactly.
func BuildAmortizationSchedule(loan *domain.Loan, today time.Time) *AmortizationSchedule {
	rate := domain.MonthlyRate(loan.InterestRate)
	balance := loan.OriginalAmount
	totalInterest := decimal.Zero
	totalPaid := decimal.Zero
	rows := make([]ScheduleRow, 0, loan.TotalPayments)

	for k := int32(1); k <= loan.TotalPayments; k++ {
		interest := balance.Mul(rate).Round(2)
		payment := loan.MonthlyPayment
		principal := payment.Sub(interest)

		if k == loan.TotalPayments || principal.GreaterThanOrEqual(balance) {
			// Final payment clears whatever is left.
			principal = balance
			payment = principal.Add(interest)
		}

		balance = balance.Sub(principal)
		totalInterest = totalInterest.Add(interest)
		totalPaid = totalPaid.Add(payment)

		// Advance months from the first of the start month so a day-31
		// start cannot roll over into the following month.
		due := util.FirstOfMonth(loan.StartDate).AddDate(0, len(rows), 0)
		dueDate := util.ClampDayToMonth(due.Year(), due.Month(), int(loan.DayOfMonth))

		rows = append(rows, ScheduleRow{
			Number:           int32(len(rows) + 1),
			DueDate:          dueDate,
			Payment:          payment,
			Principal:        principal,
			Interest:         interest,
			RemainingBalance: balance,
			Status:           rowStatus(int32(len(rows)+1), loan.PaymentsMade, dueDate, today),
		})

		if balance.IsZero() {
			break
		}
	}

	return &AmortizationSchedule{
		LoanID:        loan.ID.String(),
		TotalInterest: totalInterest,
		TotalPaid:     totalPaid,
		Rows:          rows,
	}
}

// RemainingBalanceAfter returns the scheduled balance after n payments, used
// to reconstruct the balance when a payment is reversed.
func RemainingBalanceAfter(loan *domain.Loan, n int32) decimal.Decimal {
	if n <= 0 {
		return loan.OriginalAmount
	}
	rate := domain.MonthlyRate(loan.InterestRate)
	balance := loan.OriginalAmount
	for k := int32(1); k <= n; k++ {
		interest := balance.Mul(rate).Round(2)
		principal := loan.MonthlyPayment.Sub(interest)
		// The final scheduled payment absorbs the rounding residue and
		// clears the balance, mirroring the schedule itself.
		if k == loan.TotalPayments || principal.GreaterThanOrEqual(balance) {
			return decimal.Zero
		}
		balance = balance.Sub(principal)
	}
	return balance
}

func rowStatus(number, paymentsMade int32, dueDate, today time.Time) ScheduleRowStatus {
	if number <= paymentsMade {
		return RowPaid
	}
	switch {
	case dueDate.Before(today):
		return RowOverdue
	case util.SameMonth(dueDate, today):
		return RowDue
	default:
		return RowFuture
	}
}

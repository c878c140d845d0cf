package service

import (
	"errors"
	"time"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// AutomationResult reports what a ProcessRecurring run materialised.
type AutomationResult struct {
	LoansCharged        int                   `json:"loansCharged"`
	FixedCharged        int                   `json:"fixedCharged"`
	InstallmentsCharged int                   `json:"installmentsCharged"`
	Skipped             int                   `json:"skipped"`
	Transactions        []*domain.Transaction `json:"transactions,omitempty"`
}

// AutomationService materialises due recurring occurrences into transactions,
// exactly once per (entity, reference date). Idempotency rides on the
// provenance fingerprint in the transactions table, not on the counters, so
// the system stays correct under manual edits.
type AutomationService struct {
	transactionRepo domain.TransactionRepository
	fixedRepo       domain.FixedScheduleRepository
	installmentRepo domain.InstallmentRepository
	loanRepo        domain.LoanRepository
}

// NewAutomationService creates a new AutomationService.
func NewAutomationService(
	transactionRepo domain.TransactionRepository,
	fixedRepo domain.FixedScheduleRepository,
	installmentRepo domain.InstallmentRepository,
	loanRepo domain.LoanRepository,
) *AutomationService {
	return &AutomationService{
		transactionRepo: transactionRepo,
		fixedRepo:       fixedRepo,
		installmentRepo: installmentRepo,
		loanRepo:        loanRepo,
	}
}

// ProcessRecurring materialises every due occurrence on refDate. In preview
// mode nothing is written; the result lists what would be created.
func (s *AutomationService) ProcessRecurring(scope domain.Scope, refDate time.Time, preview bool) (*AutomationResult, error) {
	result := &AutomationResult{}

	if err := s.processLoans(scope, refDate, preview, result); err != nil {
		return nil, err
	}
	if err := s.processFixed(scope, refDate, preview, result); err != nil {
		return nil, err
	}
	if err := s.processInstallments(scope, refDate, preview, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AutomationService) processLoans(scope domain.Scope, refDate time.Time, preview bool, result *AutomationResult) error {
	loans, err := s.loanRepo.ListDue(scope, refDate)
	if err != nil {
		return err
	}
	for _, loan := range loans {
		exists, err := s.transactionRepo.ExistsForSource(scope, domain.SourceLoan, loan.ID, refDate)
		if err != nil {
			return err
		}
		if exists {
			result.Skipped++
			continue
		}

		if preview {
			amount := loan.MonthlyPayment
			if amount.GreaterThan(loan.RemainingBalance) {
				amount = loan.RemainingBalance
			}
			loanID := loan.ID
			result.LoansCharged++
			result.Transactions = append(result.Transactions, &domain.Transaction{
				Amount:       amount,
				Currency:     loan.Currency,
				Type:         domain.TransactionExpense,
				CategoryID:   loan.CategoryID,
				Description:  loan.Name,
				Date:         refDate,
				EntryPattern: domain.EntryLoanPayment,
				IsRecurring:  true,
				LoanID:       &loanID,
			})
			continue
		}

		_, created, err := s.loanRepo.Charge(scope, loan.ID, &refDate, func(l *domain.Loan) (*domain.Transaction, error) {
			pay := l.MonthlyPayment
			if pay.GreaterThan(l.RemainingBalance) {
				pay = l.RemainingBalance
			}
			loanID := l.ID
			if err := l.ApplyPayment(pay); err != nil {
				return nil, err
			}
			return &domain.Transaction{
				Amount:       pay,
				Currency:     l.Currency,
				Type:         domain.TransactionExpense,
				CategoryID:   l.CategoryID,
				Description:  l.Name,
				Date:         refDate,
				EntryPattern: domain.EntryLoanPayment,
				IsRecurring:  true,
				LoanID:       &loanID,
			}, nil
		})
		if err != nil {
			// Another run won the row lock for this reference date.
			if errors.Is(err, domain.ErrAlreadyExists) {
				result.Skipped++
				continue
			}
			return err
		}
		result.LoansCharged++
		result.Transactions = append(result.Transactions, created)
	}
	return nil
}

func (s *AutomationService) processFixed(scope domain.Scope, refDate time.Time, preview bool, result *AutomationResult) error {
	schedules, err := s.fixedRepo.ListDue(scope, refDate)
	if err != nil {
		return err
	}
	for _, schedule := range schedules {
		exists, err := s.transactionRepo.ExistsForSource(scope, domain.SourceFixed, schedule.ID, refDate)
		if err != nil {
			return err
		}
		if exists {
			result.Skipped++
			continue
		}

		scheduleID := schedule.ID
		tx := &domain.Transaction{
			Amount:            schedule.Amount,
			Currency:          schedule.Currency,
			Type:              schedule.Type,
			CategoryID:        schedule.CategoryID,
			Description:       schedule.Name,
			Date:              refDate,
			EntryPattern:      domain.EntryRecurring,
			IsRecurring:       true,
			RecurringSourceID: &scheduleID,
		}

		if preview {
			result.FixedCharged++
			result.Transactions = append(result.Transactions, tx)
			continue
		}

		created, err := s.fixedRepo.Materialise(scope, schedule.ID, refDate, tx)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				result.Skipped++
				continue
			}
			return err
		}
		result.FixedCharged++
		result.Transactions = append(result.Transactions, created)
	}
	return nil
}

func (s *AutomationService) processInstallments(scope domain.Scope, refDate time.Time, preview bool, result *AutomationResult) error {
	installments, err := s.installmentRepo.ListDue(scope, refDate)
	if err != nil {
		return err
	}
	for _, installment := range installments {
		exists, err := s.transactionRepo.ExistsForSource(scope, domain.SourceInstallment, installment.ID, refDate)
		if err != nil {
			return err
		}
		if exists {
			result.Skipped++
			continue
		}

		if preview {
			number := installment.PaymentsCompleted + 1
			installmentID := installment.ID
			result.InstallmentsCharged++
			result.Transactions = append(result.Transactions, &domain.Transaction{
				Amount:            installment.ScheduledAmount(number),
				Currency:          installment.Currency,
				Type:              installment.Type,
				CategoryID:        installment.CategoryID,
				Description:       installment.Name,
				Date:              refDate,
				EntryPattern:      domain.EntryInstallment,
				IsRecurring:       true,
				InstallmentID:     &installmentID,
				InstallmentNumber: &number,
			})
			continue
		}

		_, created, err := s.installmentRepo.Charge(scope, installment.ID, &refDate, func(i *domain.Installment) (*domain.Transaction, error) {
			number := i.PaymentsCompleted + 1
			installmentID := i.ID
			if err := i.MarkPaid(); err != nil {
				return nil, err
			}
			return &domain.Transaction{
				Amount:            i.ScheduledAmount(number),
				Currency:          i.Currency,
				Type:              i.Type,
				CategoryID:        i.CategoryID,
				Description:       i.Name,
				Date:              refDate,
				EntryPattern:      domain.EntryInstallment,
				IsRecurring:       true,
				InstallmentID:     &installmentID,
				InstallmentNumber: &number,
			}, nil
		})
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				result.Skipped++
				continue
			}
			return err
		}
		result.InstallmentsCharged++
		result.Transactions = append(result.Transactions, created)
	}
	return nil
}

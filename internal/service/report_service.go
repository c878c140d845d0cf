package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/export"
)

// DownloadLinkTTL bounds how long a presigned report URL stays valid.
const DownloadLinkTTL = 15 * time.Minute

// ReportService generates CSV exports, stores them in object storage and
// keeps a metadata row per artifact
type ReportService struct {
	reportRepo      domain.ReportRepository
	store           domain.ReportStore
	transactionRepo domain.TransactionRepository
	categoryRepo    domain.CategoryRepository
	forecasts       *ForecastService
}

// NewReportService creates a new ReportService
func NewReportService(
	reportRepo domain.ReportRepository,
	store domain.ReportStore,
	transactionRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
	forecasts *ForecastService,
) *ReportService {
	return &ReportService{
		reportRepo:      reportRepo,
		store:           store,
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		forecasts:       forecasts,
	}
}

// GenerateReport builds the CSV for a report kind, uploads it and records
// the metadata row. Transactions and categories cover the trailing twelve
// months; the forecast covers the next twelve.
func (s *ReportService) GenerateReport(scope domain.Scope, kind domain.ReportKind) (*domain.Report, error) {
	if !kind.Valid() {
		return nil, domain.ErrReportKindInvalid
	}

	var (
		body []byte
		err  error
	)
	switch kind {
	case domain.ReportTransactions:
		body, err = s.transactionsCSV(scope)
	case domain.ReportForecast:
		body, err = s.forecastCSV(scope)
	case domain.ReportCategories:
		body, err = s.categoriesCSV(scope)
	}
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		Kind:        kind,
		RequestedBy: scope.UserID,
	}
	report.ObjectKey = objectKey(scope, kind)
	if err := s.store.Put(report.ObjectKey, body, "text/csv; charset=utf-8"); err != nil {
		return nil, err
	}

	created, err := s.reportRepo.Create(scope, report)
	if err != nil {
		// Orphaned objects are cheap but pointless; best-effort cleanup.
		if delErr := s.store.Delete(report.ObjectKey); delErr != nil {
			log.Error().Err(delErr).Str("key", report.ObjectKey).Msg("Failed to clean up report object")
		}
		return nil, err
	}
	return created, nil
}

// ListReports retrieves the scope's report metadata, newest first
func (s *ReportService) ListReports(scope domain.Scope) ([]*domain.Report, error) {
	return s.reportRepo.List(scope)
}

// DownloadLink returns a short-lived presigned URL for a stored report
func (s *ReportService) DownloadLink(scope domain.Scope, id uuid.UUID) (string, error) {
	report, err := s.reportRepo.GetByID(scope, id)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(report.ObjectKey, DownloadLinkTTL)
}

// DeleteReport removes the metadata row and the stored object
func (s *ReportService) DeleteReport(scope domain.Scope, id uuid.UUID) error {
	report, err := s.reportRepo.GetByID(scope, id)
	if err != nil {
		return err
	}
	if err := s.reportRepo.Delete(scope, id); err != nil {
		return err
	}
	if err := s.store.Delete(report.ObjectKey); err != nil {
		log.Error().Err(err).Str("key", report.ObjectKey).Msg("Failed to delete report object")
	}
	return nil
}

func (s *ReportService) transactionsCSV(scope domain.Scope) ([]byte, error) {
	end := time.Now().UTC()
	txs, err := s.transactionRepo.ListByDateRange(scope, end.AddDate(-1, 0, 0), end)
	if err != nil {
		return nil, err
	}

	categories, err := s.categoryNames(scope)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		categoryName := ""
		if tx.CategoryID != nil {
			categoryName = categories[*tx.CategoryID]
		}
		currency := tx.Currency
		amount := tx.Amount
		if tx.OriginalAmount != nil && tx.OriginalCurrency != nil {
			currency = *tx.OriginalCurrency
			amount = *tx.OriginalAmount
		}
		rows = append(rows, []string{
			tx.Date.Format("2006-01-02"),
			string(tx.Type),
			tx.Amount.StringFixed(2),
			fmt.Sprintf("%s %s", amount.StringFixed(2), currency),
			categoryName,
			tx.Description,
			string(tx.EntryPattern),
		})
	}
	return export.WriteCSV(
		[]string{"date", "type", "amount", "original", "category", "description", "entry"},
		rows,
	)
}

func (s *ReportService) forecastCSV(scope domain.Scope) ([]byte, error) {
	forecast, err := s.forecasts.Monthly(scope, 12)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(forecast.Months))
	for _, m := range forecast.Months {
		rows = append(rows, []string{
			m.Month.Format("2006-01"),
			m.Opening.StringFixed(2),
			m.TotalIncome.StringFixed(2),
			m.TotalExpenses.StringFixed(2),
			m.Net.StringFixed(2),
			m.Closing.StringFixed(2),
		})
	}
	return export.WriteCSV(
		[]string{"month", "opening", "income", "expenses", "net", "closing"},
		rows,
	)
}

func (s *ReportService) categoriesCSV(scope domain.Scope) ([]byte, error) {
	end := time.Now().UTC()
	txs, err := s.transactionRepo.ListByDateRange(scope, end.AddDate(-1, 0, 0), end)
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(scope, true)
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]decimal.Decimal)
	counts := make(map[uuid.UUID]int)
	for _, tx := range txs {
		if tx.CategoryID == nil {
			continue
		}
		totals[*tx.CategoryID] = totals[*tx.CategoryID].Add(tx.Amount)
		counts[*tx.CategoryID]++
	}

	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []string{
			c.Name,
			string(c.Type),
			totals[c.ID].StringFixed(2),
			fmt.Sprintf("%d", counts[c.ID]),
			fmt.Sprintf("%t", c.IsArchived),
		})
	}
	return export.WriteCSV(
		[]string{"category", "type", "total", "transactions", "archived"},
		rows,
	)
}

func (s *ReportService) categoryNames(scope domain.Scope) (map[uuid.UUID]string, error) {
	categories, err := s.categoryRepo.List(scope, true)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func objectKey(scope domain.Scope, kind domain.ReportKind) string {
	owner := scope.UserID.String()
	if scope.IsOrg() {
		owner = "org-" + scope.OrganizationID.String()
	}
	return fmt.Sprintf("reports/%s/%s-%s.csv", owner, kind, uuid.NewString())
}

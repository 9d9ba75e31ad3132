package service

import (
	"context"
	"fmt"
	"time"

	"github.com/askarbek/marketpay/internal/config"
	"github.com/askarbek/marketpay/internal/model"
	"github.com/askarbek/marketpay/internal/repository"
)

type ExcelGenerator interface {
	Generate(report model.EarningsReport) ([]byte, error)
}

type ReportService struct {
	repo         *repository.ReportRepository
	excel        ExcelGenerator
	defaultLimit int
}

type ExportResult struct {
	FileName string
	Content  []byte
}

// exportClientLimit bounds the clients sheet of the Excel export.
const exportClientLimit = 1000

func NewReportService(repo *repository.ReportRepository, excel ExcelGenerator, cfg *config.Config) *ReportService {
	return &ReportService{
		repo:         repo,
		excel:        excel,
		defaultLimit: cfg.Ledger.BestClientsLimit,
	}
}

// BestProfession returns the profession with the highest summed price over
// paid jobs in the range. Ties break lexicographically, so repeated queries
// see the same winner.
func (s *ReportService) BestProfession(ctx context.Context, start, end time.Time) (string, error) {
	from, to, err := paymentDateRange(start, end)
	if err != nil {
		return "", err
	}

	earnings, err := s.repo.ProfessionEarnings(ctx, from, to)
	if err != nil {
		return "", mapStoreError(err)
	}
	if len(earnings) == 0 {
		return "", ErrNotFound
	}
	return earnings[0].Profession, nil
}

// BestClients returns up to limit clients ranked by summed payments in the
// range. A non-positive limit falls back to the configured default.
func (s *ReportService) BestClients(ctx context.Context, start, end time.Time, limit int) ([]model.ClientPayment, error) {
	from, to, err := paymentDateRange(start, end)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	clients, err := s.repo.ClientPayments(ctx, from, to, limit)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if len(clients) == 0 {
		return nil, ErrNotFound
	}
	return clients, nil
}

// EarningsExport renders both aggregations for the range into one workbook.
func (s *ReportService) EarningsExport(ctx context.Context, start, end time.Time) (*ExportResult, error) {
	from, to, err := paymentDateRange(start, end)
	if err != nil {
		return nil, err
	}

	professions, err := s.repo.ProfessionEarnings(ctx, from, to)
	if err != nil {
		return nil, mapStoreError(err)
	}
	clients, err := s.repo.ClientPayments(ctx, from, to, exportClientLimit)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if len(professions) == 0 && len(clients) == 0 {
		return nil, ErrNotFound
	}

	report := model.EarningsReport{
		PeriodStart: dateOnly(start),
		PeriodEnd:   dateOnly(end),
		Professions: professions,
		Clients:     clients,
	}
	content, err := s.excel.Generate(report)
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("earnings-%s-%s.xlsx",
		report.PeriodStart.Format("20060102"), report.PeriodEnd.Format("20060102"))
	return &ExportResult{FileName: fileName, Content: content}, nil
}

// paymentDateRange expands calendar dates to the inclusive UTC instant range
// [start 00:00:00.000, end 23:59:59.999] used to filter payment dates.
func paymentDateRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	}

	from := dateOnly(start)
	to := dateOnly(end)
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start must be before or equal to end", ErrInvalidInput)
	}

	return from, to.Add(24*time.Hour - time.Millisecond), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

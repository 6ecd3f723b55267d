package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

type reportStorage struct {
	store  *Store
	logger *common.Logger
}

// NewReportStorage creates a ReportStorage backed by BadgerHold. Reports
// are keyed by stockCode:period, so re-running an analysis overwrites the
// stored report for that company and period.
func NewReportStorage(store *Store, logger *common.Logger) interfaces.ReportStorage {
	return &reportStorage{store: store, logger: logger}
}

func (s *reportStorage) GetReport(_ context.Context, stockCode, period string) (*models.AnalysisReport, error) {
	key := models.ReportKey(stockCode, period)
	var report models.AnalysisReport
	err := s.store.db.Get(key, &report)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("report for '%s' %w", key, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report for '%s': %w", key, err)
	}
	return &report, nil
}

func (s *reportStorage) SaveReport(_ context.Context, report *models.AnalysisReport) error {
	if report.Key == "" {
		report.Key = models.ReportKey(report.StockCode, report.ReportPeriod)
	}
	if err := s.store.db.Upsert(report.Key, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	s.logger.Debug().Str("key", report.Key).Msg("Report saved")
	return nil
}

func (s *reportStorage) ListReports(_ context.Context) ([]string, error) {
	var reports []models.AnalysisReport
	if err := s.store.db.Find(&reports, nil); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	keys := make([]string, len(reports))
	for i, r := range reports {
		keys[i] = r.Key
	}
	return keys, nil
}

func (s *reportStorage) DeleteReport(_ context.Context, stockCode, period string) error {
	key := models.ReportKey(stockCode, period)
	err := s.store.db.Delete(key, models.AnalysisReport{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete report for '%s': %w", key, err)
	}
	s.logger.Debug().Str("key", key).Msg("Report deleted")
	return nil
}

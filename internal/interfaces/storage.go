package interfaces

import (
	"context"

	"github.com/bobmcallan/finsight/internal/models"
)

// ReportStorage persists completed analysis reports.
type ReportStorage interface {
	GetReport(ctx context.Context, stockCode, period string) (*models.AnalysisReport, error)
	SaveReport(ctx context.Context, report *models.AnalysisReport) error
	ListReports(ctx context.Context) ([]string, error)
	DeleteReport(ctx context.Context, stockCode, period string) error
}

// StorageManager provides access to the storage areas.
type StorageManager interface {
	ReportStorage() ReportStorage
	Close() error
}

// Package storage wires the storage areas behind the StorageManager interface.
package storage

import (
	"fmt"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/storage/badger"
)

// Manager owns the report store lifecycle.
type Manager struct {
	store   *badger.Store
	reports interfaces.ReportStorage
	logger  *common.Logger
}

// NewManager opens the report store at the configured path.
func NewManager(cfg *common.Config, logger *common.Logger) (*Manager, error) {
	path := cfg.Storage.Reports.Path
	if path == "" {
		path = "./data/reports"
	}

	store, err := badger.NewStore(logger, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}

	logger.Info().Str("path", path).Msg("Storage initialized")
	return &Manager{
		store:   store,
		reports: badger.NewReportStorage(store, logger),
		logger:  logger,
	}, nil
}

// ReportStorage returns the analysis report store.
func (m *Manager) ReportStorage() interfaces.ReportStorage {
	return m.reports
}

// Close shuts down the underlying store.
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage")
	return m.store.Close()
}

var _ interfaces.StorageManager = (*Manager)(nil)

// Package app wires configuration, storage, clients, and services into one
// application container shared by the server entry point and tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/finsight/internal/clients/findata"
	"github.com/bobmcallan/finsight/internal/clients/gemini"
	"github.com/bobmcallan/finsight/internal/clients/milvus"
	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/industry"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/services/analysis"
	"github.com/bobmcallan/finsight/internal/services/quality"
	"github.com/bobmcallan/finsight/internal/services/retrieval"
	"github.com/bobmcallan/finsight/internal/storage"
)

// App holds all initialized services and clients.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Storage         interfaces.StorageManager
	DataClient      interfaces.FinancialDataClient
	VectorClient    interfaces.VectorSearchClient
	LLMClient       interfaces.LLMClient
	Industries      *industry.Registry
	AnalysisService interfaces.AnalysisService
	StartupTime     time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, and services. configPath may be
// empty, in which case FINSIGHT_CONFIG and the binary directory are tried.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("FINSIGHT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "finsight.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/finsight.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Reports.Path != "" && !filepath.IsAbs(config.Storage.Reports.Path) {
		config.Storage.Reports.Path = filepath.Join(binDir, config.Storage.Reports.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	industries := industry.NewRegistry()
	if err := industries.LoadDir(config.Analysis.IndustryConfigDir); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to load industry configs: %w", err)
	}

	dataClient, err := findata.NewClient(ctx, config.Clients.FinData.DSN,
		findata.WithLogger(logger),
		findata.WithTimeout(config.Clients.FinData.GetTimeout()),
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to connect financial data store: %w", err)
	}

	vectorClient := milvus.NewClient(
		milvus.WithBaseURL(config.Clients.Milvus.BaseURL),
		milvus.WithCollection(config.Clients.Milvus.Collection),
		milvus.WithRateLimit(config.Clients.Milvus.RateLimit),
		milvus.WithTimeout(config.Clients.Milvus.GetTimeout()),
		milvus.WithLogger(logger),
	)

	geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		dataClient.Close()
		storageManager.Close()
		return nil, fmt.Errorf("gemini API key not configured: %w", err)
	}
	llmClient, err := gemini.NewClient(ctx, geminiKey,
		gemini.WithModel(config.Clients.Gemini.Model),
		gemini.WithLogger(logger),
	)
	if err != nil {
		dataClient.Close()
		storageManager.Close()
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	retrievalService := retrieval.NewService(vectorClient, config.Analysis.MaxChunksPerFacet, logger)
	gate := quality.NewGate(quality.NewEvaluator(llmClient, logger), logger)

	analysisService := analysis.NewService(
		dataClient,
		retrievalService,
		llmClient,
		gate,
		industries,
		storageManager.ReportStorage(),
		analysis.OptionsFromConfig(config),
		logger,
	)

	logger.Info().
		Str("version", common.GetFullVersion()).
		Str("environment", config.Environment).
		Strs("industries", industries.List()).
		Msg("Application initialized")

	return &App{
		Config:          config,
		Logger:          logger,
		Storage:         storageManager,
		DataClient:      dataClient,
		VectorClient:    vectorClient,
		LLMClient:       llmClient,
		Industries:      industries,
		AnalysisService: analysisService,
		StartupTime:     time.Now(),
	}, nil
}

// Close shuts down clients and storage.
func (a *App) Close() {
	if a.DataClient != nil {
		a.DataClient.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
	a.Logger.Info().Msg("Application closed")
}

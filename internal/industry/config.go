// Package industry provides per-industry analysis configuration: indicator
// definitions, qualitative thresholds, and facet retrieval queries.
package industry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// IndicatorKind selects the computation applied to an indicator.
type IndicatorKind string

const (
	KindGrowth IndicatorKind = "growth" // (current - previous) / abs(previous) * 100
	KindRatio  IndicatorKind = "ratio"  // numerator / denominator * 100
	KindMargin IndicatorKind = "margin" // (denominator - numerator) / denominator * 100
)

// IndicatorSpec describes one indicator to compute for an industry.
type IndicatorSpec struct {
	Name        string               `toml:"name"`
	DisplayName string               `toml:"display_name"`
	Tier        models.IndicatorTier `toml:"tier"`
	Kind        IndicatorKind        `toml:"kind"`
	Statement   string               `toml:"statement"` // income, balance, cash_flow
	Field       string               `toml:"field"`     // growth indicators
	Numerator   string               `toml:"numerator"` // ratio/margin indicators
	Denominator string               `toml:"denominator"`
	Unit        string               `toml:"unit"`
	HighLabel   string               `toml:"high_label"` // Applied when value >= threshold
	LowLabel    string               `toml:"low_label"`
}

// Config is the full analysis configuration for one industry.
type Config struct {
	Code         string              `toml:"code"`
	Name         string              `toml:"name"`
	Description  string              `toml:"description"`
	Indicators   []IndicatorSpec     `toml:"indicators"`
	Thresholds   map[string]float64  `toml:"thresholds"`
	FacetQueries map[string][]string `toml:"facet_queries"`
}

// IndicatorsByTier returns the specs belonging to one tier, in config order.
func (c *Config) IndicatorsByTier(tier models.IndicatorTier) []IndicatorSpec {
	var out []IndicatorSpec
	for _, spec := range c.Indicators {
		if spec.Tier == tier {
			out = append(out, spec)
		}
	}
	return out
}

// Facets returns the configured facet names in deterministic order.
func (c *Config) Facets() []string {
	names := make([]string, 0, len(c.FacetQueries))
	for name := range c.FacetQueries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry holds industry configurations, looked up by code or name.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

// NewRegistry creates a registry seeded with the built-in configurations.
func NewRegistry() *Registry {
	r := &Registry{configs: make(map[string]*Config)}
	r.Register(computerIndustryConfig())
	return r
}

// Register adds or replaces an industry configuration.
func (r *Registry) Register(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.Code] = cfg
}

// Get returns the configuration for an industry code or display name.
func (r *Registry) Get(industry string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.configs[industry]; ok {
		return cfg, nil
	}
	for _, cfg := range r.configs {
		if strings.EqualFold(cfg.Name, industry) {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("unsupported industry '%s'", industry)
}

// List returns the registered industry codes.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.configs))
	for code := range r.configs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LoadDir registers every industry TOML file found in dir. Missing dir is
// not an error; the built-in configurations remain available.
func (r *Registry) LoadDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read industry config dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read industry config %s: %w", path, err)
		}
		var cfg Config
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse industry config %s: %w", path, err)
		}
		if cfg.Code == "" {
			return fmt.Errorf("industry config %s has no code", path)
		}
		r.Register(&cfg)
	}
	return nil
}

// GetThresholds implements interfaces.IndustryConfigProvider.
func (r *Registry) GetThresholds(industry string) (map[string]float64, error) {
	cfg, err := r.Get(industry)
	if err != nil {
		return nil, err
	}
	return cfg.Thresholds, nil
}

// GetFacetQueries implements interfaces.IndustryConfigProvider.
func (r *Registry) GetFacetQueries(industry string) (map[string][]string, error) {
	cfg, err := r.Get(industry)
	if err != nil {
		return nil, err
	}
	return cfg.FacetQueries, nil
}

var _ interfaces.IndustryConfigProvider = (*Registry)(nil)

// Package config loads the analyzer configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Simulation modes.
const (
	ModePortfolio = "portfolio"
	ModeSingle    = "single"
	ModeAll       = "all"
	ModeSelection = "selection"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Default         string            `yaml:"default"` // yahoo, alphavantage or mock
		BySymbol        map[string]string `yaml:"by_symbol"`
		AlphaVantageKey string            `yaml:"alphavantage_key"`
		Proxy           string            `yaml:"proxy"`
	} `yaml:"data_source"`
	Symbols []string `yaml:"symbols"`
	Indices []string `yaml:"indices"`
	Period  struct {
		Start string `yaml:"start"` // 2006-01-02
		End   string `yaml:"end"`
	} `yaml:"period"`
	Cleaning struct {
		RemoveDuplicates bool    `yaml:"remove_duplicates"`
		RemoveOutliers   bool    `yaml:"remove_outliers"`
		OutlierThreshold float64 `yaml:"outlier_threshold"`
	} `yaml:"cleaning"`
	Portfolio struct {
		Name    string             `yaml:"name"`
		Weights map[string]float64 `yaml:"weights"`
	} `yaml:"portfolio"`
	MonteCarlo struct {
		Mode             string    `yaml:"mode"` // portfolio, single, all, selection
		Symbol           string    `yaml:"symbol"`
		Symbols          []string  `yaml:"symbols"`
		Days             int       `yaml:"days"`
		Simulations      int       `yaml:"simulations"`
		InitialValue     float64   `yaml:"initial_value"`
		ConfidenceLevels []float64 `yaml:"confidence_levels"`
		Seed             int64     `yaml:"seed"`
	} `yaml:"montecarlo"`
	Report struct {
		RiskFreeRate    float64 `yaml:"risk_free_rate"`
		IncludeStats    bool    `yaml:"include_stats"`
		IncludeWarnings bool    `yaml:"include_warnings"`
		OutputPath      string  `yaml:"output_path"`
	} `yaml:"report"`
	Charts struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"charts"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Extraction struct {
		Parallel   bool `yaml:"parallel"`
		MaxWorkers int  `yaml:"max_workers"`
	} `yaml:"extraction"`
	Schedule struct {
		Cron string `yaml:"cron"` // empty runs once and exits
	} `yaml:"schedule"`
	LogLevel string `yaml:"log_level"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; env and defaults
// still apply.
func Load(path string) (*Config, error) {
	// Optional .env file for keys kept out of the YAML.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Cleaning.RemoveDuplicates = true
	cfg.Cleaning.RemoveOutliers = true
	cfg.Report.IncludeStats = true
	cfg.Report.IncludeWarnings = true
	// Seeded before unmarshal so an explicit zero rate in the YAML sticks.
	cfg.Report.RiskFreeRate = 0.02
	cfg.Charts.Enabled = true
	cfg.Extraction.Parallel = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.DataSource.AlphaVantageKey = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource.Default = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REPORT_PATH"); v != "" {
		cfg.Report.OutputPath = v
	}
	if v := os.Getenv("MC_SIMULATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MonteCarlo.Simulations = n
		}
	}
	if v := os.Getenv("MC_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MonteCarlo.Seed = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Defaults
	if cfg.DataSource.Default == "" {
		cfg.DataSource.Default = "yahoo"
	}
	if cfg.Cleaning.OutlierThreshold == 0 {
		cfg.Cleaning.OutlierThreshold = 3.0
	}
	if cfg.Portfolio.Name == "" {
		cfg.Portfolio.Name = "Portfolio"
	}
	if cfg.MonteCarlo.Mode == "" {
		cfg.MonteCarlo.Mode = ModePortfolio
	}
	if cfg.MonteCarlo.Days == 0 {
		cfg.MonteCarlo.Days = 252
	}
	if cfg.MonteCarlo.Simulations == 0 {
		cfg.MonteCarlo.Simulations = 1000
	}
	if cfg.MonteCarlo.InitialValue == 0 {
		cfg.MonteCarlo.InitialValue = 10000
	}
	if len(cfg.MonteCarlo.ConfidenceLevels) == 0 {
		cfg.MonteCarlo.ConfidenceLevels = []float64{5, 25, 50, 75, 95}
	}
	if cfg.Report.OutputPath == "" {
		cfg.Report.OutputPath = "output/report.md"
	}
	if cfg.Charts.Dir == "" {
		cfg.Charts.Dir = "output/charts"
	}
	if cfg.Extraction.MaxWorkers == 0 {
		cfg.Extraction.MaxWorkers = 5
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// AllSymbols returns tickers plus resolved index aliases, deduplicated in
// declaration order. Resolution of alias names is left to the fetcher layer;
// this keeps config free of provider knowledge.
func (c *Config) AllSymbols() []string {
	seen := make(map[string]struct{}, len(c.Symbols)+len(c.Indices))
	out := make([]string, 0, len(c.Symbols)+len(c.Indices))
	for _, s := range append(append([]string{}, c.Symbols...), c.Indices...) {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.DataSource.Default {
	case "yahoo", "alphavantage", "mock":
	default:
		return fmt.Errorf("data_source.default must be yahoo, alphavantage or mock, got %q", c.DataSource.Default)
	}
	if c.DataSource.Default == "alphavantage" && c.DataSource.AlphaVantageKey == "" {
		return fmt.Errorf("data_source.alphavantage_key is required when alphavantage is the default source")
	}
	if len(c.AllSymbols()) == 0 {
		return fmt.Errorf("at least one symbol or index is required")
	}

	switch c.MonteCarlo.Mode {
	case ModePortfolio, ModeSingle, ModeAll, ModeSelection:
	default:
		return fmt.Errorf("montecarlo.mode must be one of portfolio, single, all, selection, got %q", c.MonteCarlo.Mode)
	}
	if c.MonteCarlo.Mode == ModeSingle && c.MonteCarlo.Symbol == "" {
		return fmt.Errorf("montecarlo.symbol is required in single mode")
	}
	if c.MonteCarlo.Mode == ModeSelection && len(c.MonteCarlo.Symbols) == 0 {
		return fmt.Errorf("montecarlo.symbols is required in selection mode")
	}
	if c.MonteCarlo.Days <= 0 {
		return fmt.Errorf("montecarlo.days must be positive")
	}
	if c.MonteCarlo.Simulations <= 0 {
		return fmt.Errorf("montecarlo.simulations must be positive")
	}
	if c.MonteCarlo.InitialValue <= 0 {
		return fmt.Errorf("montecarlo.initial_value must be positive")
	}
	for _, level := range c.MonteCarlo.ConfidenceLevels {
		if level < 0 || level > 100 {
			return fmt.Errorf("montecarlo.confidence_levels must be within [0, 100], got %g", level)
		}
	}

	for sym, w := range c.Portfolio.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("portfolio.weights[%s] must be within [0, 1], got %g", sym, w)
		}
	}

	if c.Cleaning.OutlierThreshold <= 0 {
		return fmt.Errorf("cleaning.outlier_threshold must be positive")
	}
	if c.Extraction.MaxWorkers < 1 {
		return fmt.Errorf("extraction.max_workers must be at least 1")
	}
	return nil
}

// Warnings reports configuration oddities that do not block a run.
func (c *Config) Warnings() []string {
	var warns []string

	if len(c.Portfolio.Weights) > 0 {
		var total float64
		for _, w := range c.Portfolio.Weights {
			total += w
		}
		if total < 0.999 || total > 1.001 {
			warns = append(warns, fmt.Sprintf("portfolio weights sum to %.4f, not 1.0", total))
		}
		known := make(map[string]struct{})
		for _, s := range c.AllSymbols() {
			known[s] = struct{}{}
		}
		for sym := range c.Portfolio.Weights {
			if _, ok := known[sym]; !ok {
				warns = append(warns, fmt.Sprintf("portfolio weight for %s has no matching symbol", sym))
			}
		}
	}

	if c.MonteCarlo.Mode == ModeSingle && c.MonteCarlo.Symbol != "" {
		if !contains(c.AllSymbols(), c.MonteCarlo.Symbol) {
			warns = append(warns, fmt.Sprintf("montecarlo.symbol %s is not among configured symbols", c.MonteCarlo.Symbol))
		}
	}
	if c.MonteCarlo.Mode == ModeSelection {
		for _, sym := range c.MonteCarlo.Symbols {
			if !contains(c.AllSymbols(), sym) {
				warns = append(warns, fmt.Sprintf("montecarlo selection symbol %s is not among configured symbols", sym))
			}
		}
	}

	for sym, src := range c.DataSource.BySymbol {
		switch strings.ToLower(src) {
		case "yahoo", "alphavantage", "mock":
		default:
			warns = append(warns, fmt.Sprintf("data_source.by_symbol[%s] names unknown provider %q", sym, src))
		}
	}

	return warns
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

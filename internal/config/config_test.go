package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.DataSource.Default)
	assert.Equal(t, ModePortfolio, cfg.MonteCarlo.Mode)
	assert.Equal(t, 252, cfg.MonteCarlo.Days)
	assert.Equal(t, 1000, cfg.MonteCarlo.Simulations)
	assert.Equal(t, 10000.0, cfg.MonteCarlo.InitialValue)
	assert.Equal(t, []float64{5, 25, 50, 75, 95}, cfg.MonteCarlo.ConfidenceLevels)
	assert.Equal(t, 3.0, cfg.Cleaning.OutlierThreshold)
	assert.True(t, cfg.Cleaning.RemoveDuplicates)
	assert.True(t, cfg.Cleaning.RemoveOutliers)
	assert.Equal(t, 0.02, cfg.Report.RiskFreeRate)
	assert.Equal(t, 5, cfg.Extraction.MaxWorkers)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
data_source:
  default: mock
symbols: [AAPL, MSFT]
indices: [sp500]
portfolio:
  name: Growth
  weights:
    AAPL: 0.5
    MSFT: 0.5
montecarlo:
  mode: portfolio
  days: 60
  simulations: 500
`)
	t.Setenv("MC_SIMULATIONS", "250")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.DataSource.Default)
	assert.Equal(t, "Growth", cfg.Portfolio.Name)
	assert.Equal(t, 60, cfg.MonteCarlo.Days)
	assert.Equal(t, 250, cfg.MonteCarlo.Simulations)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"AAPL", "MSFT", "sp500"}, cfg.AllSymbols())
}

func TestLoad_ExplicitZeroRiskFreeRate(t *testing.T) {
	path := writeConfig(t, `
symbols: [AAPL]
report:
  risk_free_rate: 0.0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Report.RiskFreeRate)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		cfg.Symbols = []string{"AAPL"}
		return cfg
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Symbols = nil
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DataSource.Default = "bloomberg"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DataSource.Default = "alphavantage"
	assert.Error(t, cfg.Validate())
	cfg.DataSource.AlphaVantageKey = "demo"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.MonteCarlo.Mode = ModeSingle
	assert.Error(t, cfg.Validate())
	cfg.MonteCarlo.Symbol = "AAPL"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.MonteCarlo.Mode = ModeSelection
	assert.Error(t, cfg.Validate())
	cfg.MonteCarlo.Symbols = []string{"AAPL"}
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.MonteCarlo.Days = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Portfolio.Weights = map[string]float64{"AAPL": 1.5}
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.MonteCarlo.ConfidenceLevels = []float64{5, 101}
	assert.Error(t, cfg.Validate())
}

func TestWarnings(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Symbols = []string{"AAPL", "MSFT"}
	cfg.Portfolio.Weights = map[string]float64{"AAPL": 0.5, "GOOG": 0.2}

	warns := cfg.Warnings()
	require.NotEmpty(t, warns)

	joined := ""
	for _, w := range warns {
		joined += w + "\n"
	}
	assert.Contains(t, joined, "weights sum to 0.7000")
	assert.Contains(t, joined, "GOOG has no matching symbol")
}

func TestWarnings_SelectionSymbols(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Symbols = []string{"AAPL"}
	cfg.MonteCarlo.Mode = ModeSelection
	cfg.MonteCarlo.Symbols = []string{"AAPL", "TSLA"}

	warns := cfg.Warnings()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "TSLA")
}

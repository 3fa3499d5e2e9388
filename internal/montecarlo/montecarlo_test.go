package montecarlo

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PortfolioLab/internal/model"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func bar(n int, close float64) model.PricePoint {
	return model.PricePoint{Date: day(n), Open: close, High: close * 1.02, Low: close * 0.98, Close: close, Volume: 1000}
}

// noisySeries builds a series with mild alternating returns.
func noisySeries(symbol string, n int) *model.PriceSeries {
	points := make([]model.PricePoint, 0, n)
	close := 100.0
	for i := 0; i < n; i++ {
		points = append(points, bar(i, close))
		if i%2 == 0 {
			close *= 1.012
		} else {
			close *= 0.995
		}
	}
	return model.NewPriceSeries(symbol, symbol, "test", "USD", points)
}

func TestSimulate_Shape(t *testing.T) {
	sim := NewSimulator(42, nil, testLogger())
	res, err := sim.Simulate(noisySeries("A", 60), 30, 50, 10000)
	require.NoError(t, err)

	assert.Equal(t, 50, res.Simulations)
	assert.Equal(t, 30, res.Days)
	assert.Equal(t, 10000.0, res.InitialValue)
	require.Len(t, res.Paths, 50)
	for _, path := range res.Paths {
		assert.Len(t, path, 30)
		for _, v := range path {
			assert.Greater(t, v, 0.0)
		}
	}
	assert.Len(t, res.Terminal, 50)
	assert.LessOrEqual(t, res.MinFinal, res.MeanFinal)
	assert.GreaterOrEqual(t, res.MaxFinal, res.MeanFinal)
}

func TestSimulate_PercentilesMonotonic(t *testing.T) {
	sim := NewSimulator(7, nil, testLogger())
	res, err := sim.Simulate(noisySeries("A", 100), 20, 200, 5000)
	require.NoError(t, err)

	require.Len(t, res.Percentiles, len(DefaultPercentileLevels))
	for i := 1; i < len(res.Percentiles); i++ {
		assert.GreaterOrEqual(t, res.Percentiles[i].Value, res.Percentiles[i-1].Value)
	}
	assert.GreaterOrEqual(t, res.Percentiles[0].Value, res.MinFinal)
	assert.LessOrEqual(t, res.Percentiles[len(res.Percentiles)-1].Value, res.MaxFinal)
}

func TestSimulate_SeededRunsReproduce(t *testing.T) {
	a, err := NewSimulator(99, nil, testLogger()).Simulate(noisySeries("A", 60), 15, 40, 1000)
	require.NoError(t, err)
	b, err := NewSimulator(99, nil, testLogger()).Simulate(noisySeries("A", 60), 15, 40, 1000)
	require.NoError(t, err)

	assert.Equal(t, a.Terminal, b.Terminal)
}

func TestSimulate_DefaultsToLatestClose(t *testing.T) {
	series := noisySeries("A", 40)
	latest, ok := series.LatestClose()
	require.True(t, ok)

	sim := NewSimulator(1, nil, testLogger())
	res, err := sim.Simulate(series, 10, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, latest, res.InitialValue)
}

func TestSimulate_InsufficientHistory(t *testing.T) {
	sim := NewSimulator(1, nil, testLogger())

	_, err := sim.Simulate(model.NewPriceSeries("A", "A", "test", "USD", []model.PricePoint{bar(0, 100)}), 10, 10, 100)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = sim.Simulate(nil, 10, 10, 100)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestSimulate_RejectsBadShape(t *testing.T) {
	sim := NewSimulator(1, nil, testLogger())
	_, err := sim.Simulate(noisySeries("A", 40), 0, 10, 100)
	assert.Error(t, err)
	_, err = sim.Simulate(noisySeries("A", 40), 10, 0, 100)
	assert.Error(t, err)
}

func flatSeries(symbol string, n int) *model.PriceSeries {
	points := make([]model.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, bar(i, 100))
	}
	return model.NewPriceSeries(symbol, symbol, "test", "USD", points)
}

func TestSimulate_ZeroVolatilityRejected(t *testing.T) {
	// Constant closes leave zero return deviation, which carries no signal
	// to project from.
	sim := NewSimulator(1, nil, testLogger())
	res, err := sim.Simulate(flatSeries("FLAT", 10), 5, 20, 1000)
	assert.ErrorIs(t, err, ErrNoVariability)
	assert.Nil(t, res)
}

func portfolioOf(t *testing.T, holdings map[string]float64, series map[string]*model.PriceSeries) *model.Portfolio {
	t.Helper()
	p := model.NewPortfolio("test")
	for sym, w := range holdings {
		require.NoError(t, p.AddHolding(sym, w, series[sym]))
	}
	return p
}

func TestSimulatePortfolio_Shape(t *testing.T) {
	series := map[string]*model.PriceSeries{
		"A": noisySeries("A", 80),
		"B": noisySeries("B", 80),
	}
	p := portfolioOf(t, map[string]float64{"A": 0.6, "B": 0.4}, series)

	sim := NewSimulator(11, nil, testLogger())
	res, err := sim.SimulatePortfolio(p, 25, 60, 10000)
	require.NoError(t, err)

	assert.Equal(t, 60, res.Simulations)
	assert.Equal(t, 25, res.Days)
	assert.Empty(t, res.Excluded)
	require.Len(t, res.Paths, 60)
	for _, path := range res.Paths {
		assert.Len(t, path, 25)
	}
}

func TestSimulatePortfolio_IdenticalAssetsMatchSingle(t *testing.T) {
	// Two identical holdings at half weight each behave like one asset.
	// The singular covariance gets a ridge instead of failing the run.
	series := map[string]*model.PriceSeries{
		"A": noisySeries("A", 80),
		"B": noisySeries("B", 80),
	}
	p := portfolioOf(t, map[string]float64{"A": 0.5, "B": 0.5}, series)

	sim := NewSimulator(3, nil, testLogger())
	res, err := sim.SimulatePortfolio(p, 20, 400, 10000)
	require.NoError(t, err)

	single, err := NewSimulator(3, nil, testLogger()).Simulate(noisySeries("A", 80), 20, 400, 10000)
	require.NoError(t, err)

	// Distributions share mean and spread up to sampling noise.
	assert.InEpsilon(t, single.MeanFinal, res.MeanFinal, 0.05)
	ratio := res.StdFinal / single.StdFinal
	assert.Greater(t, ratio, 0.5)
	assert.Less(t, ratio, 2.0)
}

func TestSimulatePortfolio_ExcludesNonOverlappingHolding(t *testing.T) {
	far := make([]model.PricePoint, 0, 20)
	for i := 0; i < 20; i++ {
		far = append(far, bar(500+i, 50))
	}
	series := map[string]*model.PriceSeries{
		"A": noisySeries("A", 60),
		"B": noisySeries("B", 60),
		"Z": model.NewPriceSeries("Z", "Z", "test", "USD", far),
	}
	p := portfolioOf(t, map[string]float64{"A": 0.4, "B": 0.4, "Z": 0.2}, series)

	sim := NewSimulator(5, nil, testLogger())
	res, err := sim.SimulatePortfolio(p, 10, 30, 10000)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z"}, res.Excluded)

	// The excluded weight is dropped, not redistributed, so paths start
	// below the requested initial value.
	for _, path := range res.Paths {
		assert.Less(t, path[0], 10000.0)
	}
}

func TestSimulatePortfolio_ZeroVolatilityHoldingRejected(t *testing.T) {
	series := map[string]*model.PriceSeries{
		"A":    noisySeries("A", 40),
		"FLAT": flatSeries("FLAT", 40),
	}
	p := portfolioOf(t, map[string]float64{"A": 0.5, "FLAT": 0.5}, series)

	sim := NewSimulator(1, nil, testLogger())
	_, err := sim.SimulatePortfolio(p, 10, 10, 1000)
	assert.ErrorIs(t, err, ErrNoVariability)
}

func TestSimulatePortfolio_EmptyPortfolio(t *testing.T) {
	sim := NewSimulator(1, nil, testLogger())
	_, err := sim.SimulatePortfolio(model.NewPortfolio("empty"), 10, 10, 1000)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestSimulatePortfolio_RejectsBadInitial(t *testing.T) {
	series := map[string]*model.PriceSeries{"A": noisySeries("A", 40)}
	p := portfolioOf(t, map[string]float64{"A": 1.0}, series)

	sim := NewSimulator(1, nil, testLogger())
	_, err := sim.SimulatePortfolio(p, 10, 10, 0)
	assert.Error(t, err)
	_, err = sim.SimulatePortfolio(p, 10, 10, math.Inf(-1))
	assert.Error(t, err)
}

func TestSimulatePortfolio_SeededRunsReproduce(t *testing.T) {
	build := func() *model.Portfolio {
		series := map[string]*model.PriceSeries{
			"A": noisySeries("A", 50),
			"B": noisySeries("B", 50),
		}
		return portfolioOf(t, map[string]float64{"A": 0.5, "B": 0.5}, series)
	}

	a, err := NewSimulator(21, nil, testLogger()).SimulatePortfolio(build(), 12, 25, 10000)
	require.NoError(t, err)
	b, err := NewSimulator(21, nil, testLogger()).SimulatePortfolio(build(), 12, 25, 10000)
	require.NoError(t, err)

	assert.Equal(t, a.Terminal, b.Terminal)
}

package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func pointAt(n int, close float64) PricePoint {
	return PricePoint{Date: day(n), Open: close, High: close * 1.01, Low: close * 0.99, Close: close, Volume: 1000}
}

func TestNewPricePoint_Valid(t *testing.T) {
	p, err := NewPricePoint(day(0), 10, 12, 9, 11, 500)
	require.NoError(t, err)
	assert.Equal(t, 11.0, p.Close)
}

func TestNewPricePoint_HighBelowLow(t *testing.T) {
	_, err := NewPricePoint(day(0), 11, 9, 8, 10, 0)
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNewPricePoint_OpenOutsideRange(t *testing.T) {
	_, err := NewPricePoint(day(0), 13, 12, 9, 11, 0)
	assert.Error(t, err)

	_, err = NewPricePoint(day(0), 10, 12, 9, 13, 0)
	assert.Error(t, err)
}

func TestPriceSeries_StatsAbsentBelowTwoPoints(t *testing.T) {
	s := NewPriceSeries("AAPL", "Apple", "test", "USD", nil)
	assert.Nil(t, s.Stats())

	s.AddPoint(pointAt(0, 100))
	assert.Nil(t, s.Stats())

	s.AddPoint(pointAt(1, 102))
	require.NotNil(t, s.Stats())
	assert.Len(t, s.Stats().Returns, 1)
	assert.InDelta(t, math.Log(102.0/100.0), s.Stats().Mean, 1e-12)
}

func TestPriceSeries_StatsSortBeforeComputing(t *testing.T) {
	// Deliver points out of order; returns must follow chronological pairs.
	points := []PricePoint{pointAt(2, 110), pointAt(0, 100), pointAt(1, 105)}
	s := NewPriceSeries("X", "X", "test", "USD", points)

	require.NotNil(t, s.Stats())
	want := []float64{math.Log(105.0 / 100.0), math.Log(110.0 / 105.0)}
	require.Len(t, s.Stats().Returns, 2)
	assert.InDelta(t, want[0], s.Stats().Returns[0], 1e-12)
	assert.InDelta(t, want[1], s.Stats().Returns[1], 1e-12)
}

func TestPriceSeries_LatestCloseAndPeriod(t *testing.T) {
	s := NewPriceSeries("X", "X", "test", "USD", []PricePoint{
		pointAt(3, 108), pointAt(1, 101), pointAt(2, 104),
	})

	latest, ok := s.LatestClose()
	require.True(t, ok)
	assert.Equal(t, 108.0, latest)

	start, end, ok := s.Period()
	require.True(t, ok)
	assert.Equal(t, day(1), start)
	assert.Equal(t, day(3), end)
}

func TestPriceSeries_CloneIsIndependent(t *testing.T) {
	s := NewPriceSeries("X", "X", "test", "USD", []PricePoint{pointAt(0, 100), pointAt(1, 101)})
	c := s.Clone()
	c.AddPoint(pointAt(2, 200))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, c.Len())
}

func TestPortfolio_AddHoldingRenormalizesAboveOne(t *testing.T) {
	p := NewPortfolio("test")
	require.NoError(t, p.AddHolding("A", 0.8, nil))
	require.NoError(t, p.AddHolding("B", 0.6, nil))

	assert.InDelta(t, 1.0, p.TotalWeight(), 1e-9)
	assert.InDelta(t, 0.8/1.4, p.Holdings["A"], 1e-9)
	assert.InDelta(t, 0.6/1.4, p.Holdings["B"], 1e-9)
}

func TestPortfolio_AddHoldingRejectsBadWeight(t *testing.T) {
	p := NewPortfolio("test")
	assert.Error(t, p.AddHolding("A", -0.1, nil))
	assert.Error(t, p.AddHolding("A", 1.5, nil))
}

func TestPortfolio_MissingSeries(t *testing.T) {
	p := NewPortfolio("test")
	require.NoError(t, p.AddHolding("A", 0.5, NewPriceSeries("A", "A", "test", "USD", []PricePoint{pointAt(0, 10)})))
	require.NoError(t, p.AddHolding("B", 0.5, nil))

	assert.Equal(t, []string{"B"}, p.MissingSeries())
}

func TestPortfolio_ReturnsOverCommonDates(t *testing.T) {
	// A covers days 0..3, B covers days 1..4; common range is days 1..3.
	a := NewPriceSeries("A", "A", "test", "USD", []PricePoint{
		pointAt(0, 100), pointAt(1, 100), pointAt(2, 110), pointAt(3, 121),
	})
	b := NewPriceSeries("B", "B", "test", "USD", []PricePoint{
		pointAt(1, 50), pointAt(2, 55), pointAt(3, 60.5), pointAt(4, 66),
	})

	p := NewPortfolio("test")
	require.NoError(t, p.AddHolding("A", 0.5, a))
	require.NoError(t, p.AddHolding("B", 0.5, b))

	assert.Len(t, p.CommonDates(), 3)

	returns, ok := p.Returns()
	require.True(t, ok)
	require.Len(t, returns, 2)
	// Both assets gain 10% on each common day, so the weighted combination
	// matches either asset's log-return.
	assert.InDelta(t, math.Log(1.1), returns[0], 1e-12)
	assert.InDelta(t, math.Log(1.1), returns[1], 1e-12)
}

func TestPortfolio_ValueSeries(t *testing.T) {
	a := NewPriceSeries("A", "A", "test", "USD", []PricePoint{
		pointAt(0, 100), pointAt(1, 110), pointAt(2, 121),
	})
	p := NewPortfolio("test")
	require.NoError(t, p.AddHolding("A", 1.0, a))

	dates, values, ok := p.ValueSeries(10000)
	require.True(t, ok)
	require.Len(t, dates, 3)
	require.Len(t, values, 3)
	assert.InDelta(t, 10000, values[0], 1e-9)
	assert.InDelta(t, 11000, values[1], 1e-6)
	assert.InDelta(t, 12100, values[2], 1e-6)
}

func TestPortfolio_ReturnsAbsentWithoutOverlap(t *testing.T) {
	a := NewPriceSeries("A", "A", "test", "USD", []PricePoint{pointAt(0, 100), pointAt(1, 101)})
	b := NewPriceSeries("B", "B", "test", "USD", []PricePoint{pointAt(10, 50), pointAt(11, 51)})

	p := NewPortfolio("test")
	require.NoError(t, p.AddHolding("A", 0.5, a))
	require.NoError(t, p.AddHolding("B", 0.5, b))

	_, ok := p.Returns()
	assert.False(t, ok)
}

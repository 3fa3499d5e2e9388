package fetcher

import (
	"fmt"
	"time"

	"PortfolioLab/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	BasePrice float64
	// Series overrides the generated data per symbol when set.
	Series map[string]*model.PriceSeries
	// Err fails every fetch when set.
	Err error
}

func (m *MockFetcher) Name() string { return "mock" }

// FetchHistory returns canned data for symbol, generating a gently trending
// series when none was preloaded.
func (m *MockFetcher) FetchHistory(symbol string, start, end time.Time) (*model.PriceSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if s, ok := m.Series[symbol]; ok {
		return s.Clone(), nil
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return nil, fmt.Errorf("mock: empty period for %s", symbol)
	}
	base := m.BasePrice
	if base <= 0 {
		base = 100
	}
	return generateMockSeries(symbol, base, start, days), nil
}

func generateMockSeries(symbol string, basePrice float64, start time.Time, count int) *model.PriceSeries {
	points := make([]model.PricePoint, 0, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		points = append(points, model.PricePoint{
			Date:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
	}
	return model.NewPriceSeries(symbol, symbol, "mock", "USD", points)
}

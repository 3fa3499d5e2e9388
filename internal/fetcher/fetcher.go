// Package fetcher retrieves historical price series from market data
// providers.
package fetcher

import (
	"time"

	"PortfolioLab/internal/model"
)

// Fetcher defines the interface for retrieving historical prices.
type Fetcher interface {
	// FetchHistory returns daily bars for symbol between start and end
	// inclusive, sorted by date ascending.
	FetchHistory(symbol string, start, end time.Time) (*model.PriceSeries, error)
	Name() string
}

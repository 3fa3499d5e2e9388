package fetcher

import (
	"fmt"
	"time"

	"PortfolioLab/internal/model"
)

// MultiFetcher routes each symbol to a provider, with a default for symbols
// that have no explicit route.
type MultiFetcher struct {
	Default  Fetcher
	BySymbol map[string]Fetcher
}

// NewMultiFetcher creates a router with the given default provider.
func NewMultiFetcher(def Fetcher) *MultiFetcher {
	return &MultiFetcher{Default: def, BySymbol: map[string]Fetcher{}}
}

// Route sends all future fetches for symbol through f.
func (m *MultiFetcher) Route(symbol string, f Fetcher) {
	m.BySymbol[symbol] = f
}

func (m *MultiFetcher) Name() string { return "multi" }

func (m *MultiFetcher) FetchHistory(symbol string, start, end time.Time) (*model.PriceSeries, error) {
	f := m.Default
	if routed, ok := m.BySymbol[symbol]; ok {
		f = routed
	}
	if f == nil {
		return nil, fmt.Errorf("fetcher: no provider for symbol %s", symbol)
	}
	return f.FetchHistory(symbol, start, end)
}
